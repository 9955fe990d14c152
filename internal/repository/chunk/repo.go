// Package chunk stores embedded document chunks as hashes behind an FT vector index.
package chunk

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/db"
	domchunk "github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/chunk"
	"github.com/seunggi-k/mlp-enterprise-approval-system-ai/internal/domain/filter"
)

// Hash field names.
const (
	FieldTenantID     = "tenant_id"
	FieldDocumentID   = "document_id"
	FieldDocumentName = "document_name"
	FieldChunkIndex   = "chunk_index"
	FieldContent      = "content"
	FieldVisible      = "visible"
	FieldVector       = "vector"
)

const (
	visibleTrue  = "true"
	visibleFalse = "false"
)

// store is the consumer interface for chunk storage (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	Del(ctx context.Context, keys ...string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// HNSWConfig holds HNSW build parameters. Zero values keep server defaults.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// Repo reads and writes chunk records.
type Repo struct {
	store  store
	prefix string
	hnsw   HNSWConfig
}

// New creates a chunk repository. prefix namespaces keys and the index name.
func New(s store, prefix string, hnsw HNSWConfig) *Repo {
	return &Repo{store: s, prefix: prefix, hnsw: hnsw}
}

// IndexName returns the FT index name.
func (r *Repo) IndexName() string {
	return r.prefix + "chunks:idx"
}

// EnsureIndex creates the vector index if it does not exist.
func (r *Repo) EnsureIndex(ctx context.Context, dim int) error {
	exists, err := r.store.IndexExists(ctx, r.IndexName())
	if err != nil {
		return fmt.Errorf("check index %s: %w", r.IndexName(), err)
	}
	if exists {
		return nil
	}

	def, err := db.NewIndex(r.IndexName()).
		Prefix(r.keyPrefix()).
		Tag(FieldTenantID).
		Tag(FieldDocumentID).
		Tag(FieldVisible).
		Text(FieldDocumentName).
		Numeric(FieldChunkIndex).
		VectorHNSW(FieldVector, dim, db.DistanceCosine, r.hnsw.M, r.hnsw.EFConstruct).
		Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		// lost a race with another replica
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", r.IndexName(), err)
	}
	return nil
}

// Upsert writes records in one pipeline. Existing chunks with the same key are overwritten.
func (r *Repo) Upsert(ctx context.Context, records []domchunk.Record) error {
	if len(records) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, 0, len(records))
	for i := range records {
		rec := &records[i]
		if rec.TenantID == "" || rec.DocumentID == "" {
			return fmt.Errorf("chunk %d: tenant and document id are required", i)
		}
		if len(rec.Vector) == 0 {
			return fmt.Errorf("chunk %s/%s#%d: vector is required", rec.TenantID, rec.DocumentID, rec.ChunkIndex)
		}
		items = append(items, db.HashSetItem{
			Key:    r.key(rec.TenantID, rec.DocumentID, rec.ChunkIndex),
			Fields: toFields(rec),
		})
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d chunks: %w", len(items), err)
	}
	return nil
}

// Delete removes every chunk of a document and returns how many were removed.
func (r *Repo) Delete(ctx context.Context, tenantID, documentID string) (int, error) {
	keys, err := r.documentKeys(ctx, tenantID, documentID)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	n, err := r.store.Del(ctx, keys...)
	if err != nil {
		return 0, fmt.Errorf("delete document %s/%s: %w", tenantID, documentID, err)
	}
	return n, nil
}

// SetVisibility flips the visible flag on every chunk of a document.
// Returns the number of chunks updated.
func (r *Repo) SetVisibility(ctx context.Context, tenantID, documentID string, visible bool) (int, error) {
	keys, err := r.documentKeys(ctx, tenantID, documentID)
	if err != nil {
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	value := visibleFalse
	if visible {
		value = visibleTrue
	}
	items := make([]db.HashSetItem, len(keys))
	for i, k := range keys {
		items[i] = db.HashSetItem{Key: k, Fields: map[string]string{FieldVisible: value}}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return 0, fmt.Errorf("set visibility %s/%s: %w", tenantID, documentID, err)
	}
	return len(keys), nil
}

// NearestNeighbors returns up to k visible chunks nearest to vector, nearest first.
func (r *Repo) NearestNeighbors(
	ctx context.Context, vector []float32, f domchunk.Filter, k int,
) ([]domchunk.Record, error) {
	expr, err := buildFilter(f)
	if err != nil {
		return nil, fmt.Errorf("build filter: %w", err)
	}

	q := &db.KNNQuery{
		IndexName:   r.IndexName(),
		VectorField: FieldVector,
		Filters:     expr,
		Vector:      vector,
		K:           k,
		ReturnFields: []string{
			FieldTenantID, FieldDocumentID, FieldDocumentName,
			FieldChunkIndex, FieldContent, FieldVisible,
		},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.IndexName(), err)
	}
	return parseKNNResults(sr), nil
}

func (r *Repo) documentKeys(ctx context.Context, tenantID, documentID string) ([]string, error) {
	if tenantID == "" || documentID == "" {
		return nil, errors.New("tenant and document id are required")
	}
	pattern := r.keyPrefix() + escapeGlob(tenantID) + ":" + escapeGlob(documentID) + ":*"
	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return keys, nil
}

func (r *Repo) keyPrefix() string {
	return r.prefix + "chunk:"
}

func (r *Repo) key(tenantID, documentID string, idx int) string {
	return r.keyPrefix() + tenantID + ":" + documentID + ":" + strconv.Itoa(idx)
}

func buildFilter(f domchunk.Filter) (filter.Expression, error) {
	must := make([]filter.Condition, 0, 3)

	visible, err := filter.NewMatch(FieldVisible, visibleTrue)
	if err != nil {
		return filter.Expression{}, err
	}
	must = append(must, visible)

	if f.TenantID != "" {
		c, err := filter.NewMatch(FieldTenantID, f.TenantID)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, c)
	}
	if f.DocumentID != "" {
		c, err := filter.NewMatch(FieldDocumentID, f.DocumentID)
		if err != nil {
			return filter.Expression{}, err
		}
		must = append(must, c)
	}

	return filter.NewExpression(must, nil)
}

// parseKNNResults converts hits into records. Hidden chunks are dropped even if the index returned them.
func parseKNNResults(sr *db.SearchResult) []domchunk.Record {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}

	out := make([]domchunk.Record, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		rec := fromFields(e.Fields)
		if !rec.Visible {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func toFields(rec *domchunk.Record) map[string]string {
	visible := visibleFalse
	if rec.Visible {
		visible = visibleTrue
	}
	return map[string]string{
		FieldTenantID:     rec.TenantID,
		FieldDocumentID:   rec.DocumentID,
		FieldDocumentName: rec.DocumentName,
		FieldChunkIndex:   strconv.Itoa(rec.ChunkIndex),
		FieldContent:      rec.Content,
		FieldVisible:      visible,
		FieldVector:       vectorToBytes(rec.Vector),
	}
}

func fromFields(m map[string]string) domchunk.Record {
	idx, _ := strconv.Atoi(m[FieldChunkIndex])
	return domchunk.Record{
		TenantID:     m[FieldTenantID],
		DocumentID:   m[FieldDocumentID],
		DocumentName: m[FieldDocumentName],
		ChunkIndex:   idx,
		Content:      m[FieldContent],
		Visible:      m[FieldVisible] == visibleTrue,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

var globEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`, "]", `\]`)

func escapeGlob(s string) string {
	return globEscaper.Replace(s)
}
