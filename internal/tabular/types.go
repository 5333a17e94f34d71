package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ColumnType is a dialect-independent column type. Stores map it to DDL.
type ColumnType string

const (
	TypeInteger   ColumnType = "INTEGER"
	TypeBigInt    ColumnType = "BIGINT"
	TypeFloat     ColumnType = "FLOAT"
	TypeBoolean   ColumnType = "BOOLEAN"
	TypeTimestamp ColumnType = "TIMESTAMP"
	TypeText      ColumnType = "TEXT"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"1/2/2006 15:04",
	"1/2/2006",
	"1/2/06 15:04",
	"1/2/06",
}

// InferType picks the narrowest type that parses every non-empty value.
// A column with no non-empty values is TEXT.
func InferType(values []string) ColumnType {
	seen := false
	allInt, allInt32, allFloat, allBool, allTime := true, true, true, true, true
	for _, raw := range values {
		v := strings.TrimSpace(raw)
		if v == "" {
			continue
		}
		seen = true
		if allInt {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				allInt = false
			} else if n < math.MinInt32 || n > math.MaxInt32 {
				allInt32 = false
			}
		}
		if allFloat {
			if _, ok := parseFloat(v); !ok {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := parseBool(v); !ok {
				allBool = false
			}
		}
		if allTime {
			if _, ok := parseTime(v); !ok {
				allTime = false
			}
		}
		if !allInt && !allFloat && !allBool && !allTime {
			return TypeText
		}
	}
	switch {
	case !seen:
		return TypeText
	case allInt && allInt32:
		return TypeInteger
	case allInt:
		return TypeBigInt
	case allFloat:
		return TypeFloat
	case allBool:
		return TypeBoolean
	case allTime:
		return TypeTimestamp
	default:
		return TypeText
	}
}

// ParseCell converts a raw cell into a Go value for t. Empty cells are nil.
func ParseCell(t ColumnType, raw string) (any, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	switch t {
	case TypeInteger, TypeBigInt:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	case TypeFloat:
		f, ok := parseFloat(v)
		if !ok {
			return nil, fmt.Errorf("invalid number %q", v)
		}
		return f, nil
	case TypeBoolean:
		b, ok := parseBool(v)
		if !ok {
			return nil, fmt.Errorf("invalid boolean %q", v)
		}
		return b, nil
	case TypeTimestamp:
		ts, ok := parseTime(v)
		if !ok {
			return nil, fmt.Errorf("invalid timestamp %q", v)
		}
		return ts, nil
	default:
		return raw, nil
	}
}

func parseFloat(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseBool(v string) (bool, bool) {
	switch strings.ToLower(v) {
	case "true", "yes":
		return true, true
	case "false", "no":
		return false, true
	}
	return false, false
}

func parseTime(v string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
