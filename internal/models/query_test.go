package models

import (
	"testing"
)

func TestSearchQuery_Validate(t *testing.T) {
	tests := []struct {
		name      string
		query     *SearchQuery
		wantErr   bool
		wantLimit int
	}{
		{"empty text", &SearchQuery{Text: ""}, true, 0},
		{"valid query", &SearchQuery{Text: "hello", Limit: 5}, false, 5},
		{"sets default limit", &SearchQuery{Text: "x", Limit: 0}, false, 10},
		{"caps limit", &SearchQuery{Text: "x", Limit: 200}, false, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(10, 50)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", tt.query.Limit, tt.wantLimit)
			}
		})
	}
}

func TestKindForName(t *testing.T) {
	tests := []struct {
		name string
		want AssetKind
	}{
		{"notes.txt", AssetKindText},
		{"README.MD", AssetKindText},
		{"report.pdf", AssetKindPDF},
		{"photo.JPG", AssetKindImage},
		{"scan.png", AssetKindImage},
		{"data.csv", AssetKindTabular},
		{"book.xlsx", AssetKindTabular},
		{"slides.pptx", AssetKindUnknown},
		{"noext", AssetKindUnknown},
	}
	for _, tt := range tests {
		if got := KindForName(tt.name); got != tt.want {
			t.Errorf("KindForName(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
