package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hyperjump/docqa/pkg/utils"
)

const snapshotExt = ".vec"

// MemoryStore keeps collections in memory with brute-force search. When dir is set, each
// collection is snapshotted to dir/<name>.vec after every change and reloaded on start.
type MemoryStore struct {
	dir         string
	distance    Distance
	collections map[string]*memoryCollection
	mu          sync.RWMutex
}

type memoryCollection struct {
	dimensions int
	ids        []string
	vectors    [][]float32
	texts      []string
	metadata   []map[string]any
	index      map[string]int
}

// NewMemoryStore creates a store. An empty dir keeps everything in memory only.
func NewMemoryStore(dir string, distance Distance) (*MemoryStore, error) {
	s := &MemoryStore{dir: dir, distance: distance, collections: make(map[string]*memoryCollection)}
	if dir == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create vector dir: %w", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read vector dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), snapshotExt) {
			continue
		}
		name := strings.TrimSuffix(e.Name(), snapshotExt)
		c, err := loadSnapshot(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("load collection %s: %w", name, err)
		}
		s.collections[name] = c
	}
	return s, nil
}

func newMemoryCollection(dim int) *memoryCollection {
	return &memoryCollection{dimensions: dim, index: make(map[string]int)}
}

// CreateCollection creates name if missing; reset replaces an existing one.
func (s *MemoryStore) CreateCollection(ctx context.Context, name string, dim int, reset bool) (bool, error) {
	if dim <= 0 {
		return false, fmt.Errorf("dimensions must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok && !reset {
		return false, nil
	}
	c := newMemoryCollection(dim)
	s.collections[name] = c
	return true, s.persist(name, c)
}

// DeleteCollection removes a collection and its snapshot. Missing collections are ignored.
func (s *MemoryStore) DeleteCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	if s.dir == "" {
		return nil
	}
	if err := os.Remove(s.snapshotPath(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove snapshot: %w", err)
	}
	return nil
}

// Upsert replaces records with matching IDs and appends the rest.
func (s *MemoryStore) Upsert(ctx context.Context, name string, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if err := validateRecords(c.dimensions, records); err != nil {
		return err
	}
	for _, r := range records {
		vec := make([]float32, c.dimensions)
		copy(vec, r.Vector)
		if i, exists := c.index[r.ID]; exists {
			c.vectors[i], c.texts[i], c.metadata[i] = vec, r.Text, cloneMetadata(r.Metadata)
			continue
		}
		c.index[r.ID] = len(c.ids)
		c.ids = append(c.ids, r.ID)
		c.vectors = append(c.vectors, vec)
		c.texts = append(c.texts, r.Text)
		c.metadata = append(c.metadata, cloneMetadata(r.Metadata))
	}
	return s.persist(name, c)
}

// Delete removes records by ID by rebuilding the collection slices.
func (s *MemoryStore) Delete(ctx context.Context, name string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		return nil
	}
	remove := make(map[string]bool, len(ids))
	for _, id := range ids {
		remove[id] = true
	}
	kept := newMemoryCollection(c.dimensions)
	for i, id := range c.ids {
		if remove[id] {
			continue
		}
		kept.index[id] = len(kept.ids)
		kept.ids = append(kept.ids, id)
		kept.vectors = append(kept.vectors, c.vectors[i])
		kept.texts = append(kept.texts, c.texts[i])
		kept.metadata = append(kept.metadata, c.metadata[i])
	}
	s.collections[name] = kept
	return s.persist(name, kept)
}

// Search returns the top-k records by the store's distance.
func (s *MemoryStore) Search(ctx context.Context, name string, query []float32, k int) ([]Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	if len(query) != c.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), c.dimensions)
	}
	if k <= 0 || len(c.ids) == 0 {
		return nil, nil
	}
	type scored struct {
		i     int
		score float64
	}
	scores := make([]scored, len(c.ids))
	for i, vec := range c.vectors {
		var sc float32
		if s.distance == DistanceDot {
			sc = utils.Dot(query, vec)
		} else {
			sc = utils.Cosine(query, vec)
		}
		scores[i] = scored{i: i, score: float64(sc)}
	}
	sort.SliceStable(scores, func(a, b int) bool { return scores[a].score > scores[b].score })
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		i := scores[n].i
		out[n] = Result{ID: c.ids[i], Score: scores[n].score, Text: c.texts[i], Metadata: cloneMetadata(c.metadata[i])}
	}
	return out, nil
}

// Info returns the collection's size and settings.
func (s *MemoryStore) Info(ctx context.Context, name string) (*CollectionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, name)
	}
	return &CollectionInfo{Name: name, Dimensions: c.dimensions, Distance: s.distance, PointsCount: int64(len(c.ids))}, nil
}

// Close is a no-op; snapshots are written on every change.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) snapshotPath(name string) string {
	return filepath.Join(s.dir, name+snapshotExt)
}

// persist writes a snapshot. Format: dimension (4), n (4), then per record:
// idLen (4), id, vector (dimension*4), payloadLen (4), JSON {text, metadata}.
func (s *MemoryStore) persist(name string, c *memoryCollection) error {
	if s.dir == "" {
		return nil
	}
	tmp := s.snapshotPath(name) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := writeSnapshot(w, c); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("flush snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp, s.snapshotPath(name))
}

type snapshotPayload struct {
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func writeSnapshot(w io.Writer, c *memoryCollection) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(c.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.ids))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for i, id := range c.ids {
		payload, err := json.Marshal(snapshotPayload{Text: c.texts[i], Metadata: c.metadata[i]})
		if err != nil {
			return fmt.Errorf("encode payload %s: %w", id, err)
		}
		for _, chunk := range [][]byte{lenPrefix(len(id)), []byte(id), float32SliceToBytes(c.vectors[i]), lenPrefix(len(payload)), payload} {
			if _, err := w.Write(chunk); err != nil {
				return fmt.Errorf("write record %s: %w", id, err)
			}
		}
	}
	return nil
}

func loadSnapshot(path string) (*memoryCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	c := newMemoryCollection(int(dim))
	buf := make([]byte, int(dim)*4)
	for i := uint32(0); i < n; i++ {
		id, err := readPrefixed(r)
		if err != nil {
			return nil, fmt.Errorf("read id: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		raw, err := readPrefixed(r)
		if err != nil {
			return nil, fmt.Errorf("read payload: %w", err)
		}
		var p snapshotPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		c.index[string(id)] = len(c.ids)
		c.ids = append(c.ids, string(id))
		c.vectors = append(c.vectors, bytesToFloat32Slice(buf))
		c.texts = append(c.texts, p.Text)
		c.metadata = append(c.metadata, p.Metadata)
	}
	return c, nil
}

func lenPrefix(n int) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(n))
	return b
}

func readPrefixed(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	_, err := io.ReadFull(r, b)
	return b, err
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
