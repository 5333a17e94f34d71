package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	payloadTextKey     = "text"
	payloadMetadataKey = "metadata"
	payloadRecordIDKey = "record_id"
	maxErrorBodyBytes  = 1024
)

var pointNamespace = uuid.MustParse("7b1f6f0e-3c52-4d8e-9a55-2f4c1d0b8a61")

// QdrantStore talks to the Qdrant REST API. Each collection is a Qdrant collection.
type QdrantStore struct {
	baseURL  string
	distance Distance
	http     *http.Client
	logger   *zap.Logger
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantHit struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type qdrantCollection struct {
	PointsCount int64 `json:"points_count"`
	Config      struct {
		Params struct {
			Vectors struct {
				Size     int    `json:"size"`
				Distance string `json:"distance"`
			} `json:"vectors"`
		} `json:"params"`
	} `json:"config"`
}

// NewQdrantStore creates a client for the Qdrant server at baseURL. A nil client uses a 30s timeout.
func NewQdrantStore(baseURL string, distance Distance, client *http.Client, logger *zap.Logger) *QdrantStore {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QdrantStore{
		baseURL:  strings.TrimRight(baseURL, "/"),
		distance: distance,
		http:     client,
		logger:   logger,
	}
}

func (s *QdrantStore) CreateCollection(ctx context.Context, name string, dim int, reset bool) (bool, error) {
	const op = "create_collection"
	if dim <= 0 {
		return false, opErr(op, CodeValidation, "dimensions must be positive", nil)
	}
	_, err := s.Info(ctx, name)
	switch {
	case err == nil && !reset:
		return false, nil
	case err == nil:
		if err := s.DeleteCollection(ctx, name); err != nil {
			return false, err
		}
	case !errors.Is(err, ErrCollectionNotFound):
		return false, err
	}
	req := map[string]any{
		"vectors": map[string]any{"size": dim, "distance": s.qdrantDistance()},
	}
	if err := s.doJSON(ctx, op, http.MethodPut, collectionPath(name, ""), req, nil); err != nil {
		return false, err
	}
	s.logger.Info("qdrant collection created", zap.String("collection", name), zap.Int("dimensions", dim))
	return true, nil
}

func (s *QdrantStore) DeleteCollection(ctx context.Context, name string) error {
	err := s.doJSON(ctx, "delete_collection", http.MethodDelete, collectionPath(name, ""), nil, nil)
	var oe *OperationError
	if errors.As(err, &oe) && oe.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *QdrantStore) Upsert(ctx context.Context, name string, records []Record) error {
	const op = "upsert"
	if len(records) == 0 {
		return nil
	}
	if err := validateRecords(0, records); err != nil {
		return opErr(op, CodeValidation, err.Error(), nil)
	}
	points := make([]map[string]any, 0, len(records))
	for _, r := range records {
		points = append(points, map[string]any{
			"id":     pointID(r.ID),
			"vector": r.Vector,
			"payload": map[string]any{
				payloadTextKey:     r.Text,
				payloadMetadataKey: cloneMetadata(r.Metadata),
				payloadRecordIDKey: r.ID,
			},
		})
	}
	err := s.doJSON(ctx, op, http.MethodPut, collectionPath(name, "/points?wait=true"), map[string]any{"points": points}, nil)
	return s.notFound(name, err)
}

func (s *QdrantStore) Delete(ctx context.Context, name string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	points := make([]any, 0, len(ids))
	for _, id := range ids {
		points = append(points, pointID(id))
	}
	err := s.doJSON(ctx, "delete", http.MethodPost, collectionPath(name, "/points/delete?wait=true"), map[string]any{"points": points}, nil)
	var oe *OperationError
	if errors.As(err, &oe) && oe.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

func (s *QdrantStore) Search(ctx context.Context, name string, query []float32, k int) ([]Result, error) {
	const op = "search"
	if len(query) == 0 {
		return nil, opErr(op, CodeValidation, "query vector required", nil)
	}
	if k <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       query,
		"limit":        k,
		"with_payload": true,
		"with_vector":  false,
	}
	var hits []qdrantHit
	if err := s.doJSON(ctx, op, http.MethodPost, collectionPath(name, "/points/search"), req, &hits); err != nil {
		return nil, s.notFound(name, err)
	}
	out := make([]Result, 0, len(hits))
	for _, h := range hits {
		res := Result{Score: h.Score}
		res.ID, _ = h.Payload[payloadRecordIDKey].(string)
		if res.ID == "" {
			res.ID = decodePointID(h.ID)
		}
		res.Text, _ = h.Payload[payloadTextKey].(string)
		if meta, ok := h.Payload[payloadMetadataKey].(map[string]any); ok {
			res.Metadata = meta
		} else {
			res.Metadata = map[string]any{}
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *QdrantStore) Info(ctx context.Context, name string) (*CollectionInfo, error) {
	var c qdrantCollection
	if err := s.doJSON(ctx, "info", http.MethodGet, collectionPath(name, ""), nil, &c); err != nil {
		return nil, s.notFound(name, err)
	}
	dist := DistanceCosine
	if strings.EqualFold(c.Config.Params.Vectors.Distance, "dot") {
		dist = DistanceDot
	}
	return &CollectionInfo{
		Name:        name,
		Dimensions:  c.Config.Params.Vectors.Size,
		Distance:    dist,
		PointsCount: c.PointsCount,
	}, nil
}

func (s *QdrantStore) Close() error {
	s.http.CloseIdleConnections()
	return nil
}

func (s *QdrantStore) qdrantDistance() string {
	if s.distance == DistanceDot {
		return "Dot"
	}
	return "Cosine"
}

// notFound maps a 404 from Qdrant to ErrCollectionNotFound.
func (s *QdrantStore) notFound(name string, err error) error {
	var oe *OperationError
	if errors.As(err, &oe) && oe.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return err
}

func (s *QdrantStore) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, CodeEncode, "encode request", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, CodeTransport, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyCallError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return opErr(op, CodeDecode, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       CodeRequest,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var env qdrantEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return opErr(op, CodeDecode, "decode envelope", err)
	}
	if msg := envelopeStatusError(env.Status); msg != "" {
		return &OperationError{Code: CodeRequest, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(env.Result) == 0 || string(env.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return opErr(op, CodeDecode, "decode result", err)
	}
	return nil
}

func classifyCallError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, CodeTimeout, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, CodeTimeout, "request timed out", err)
	}
	return opErr(op, CodeTransport, "request failed", err)
}

func envelopeStatusError(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.EqualFold(str, "ok") {
			return ""
		}
		return "status " + str
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Error != "" {
		return obj.Error
	}
	return "status " + status
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func collectionPath(name, suffix string) string {
	return "/collections/" + name + suffix
}

// pointID maps a record ID to a Qdrant point ID. Qdrant accepts unsigned integers or UUIDs,
// so numeric chunk IDs pass through and anything else is hashed into a UUID.
func pointID(id string) any {
	if n, err := strconv.ParseUint(id, 10, 64); err == nil {
		return n
	}
	if u, err := uuid.Parse(id); err == nil {
		return u.String()
	}
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

func decodePointID(raw json.RawMessage) string {
	var n uint64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatUint(n, 10)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
