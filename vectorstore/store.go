// Package vectorstore wraps milvus-io/milvus-sdk-go/v2 behind a narrow
// Upsert/Query interface for the RAG knowledge base the Clinical AI agent's
// search_knowledge node reads from (SPEC_FULL.md §4.8).
package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Record is one knowledge-base chunk to upsert: a stable id, its embedding
// vector, the source text it was derived from, and arbitrary metadata.
// Upsert writes ID, Vector and Text; Metadata is not stored in the
// collection.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// Match is one nearest-neighbor result from Query. Query fills ID, Score and
// Text; Metadata is always empty.
type Match struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]string
}

// Store upserts and queries vector records for a single collection.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
}

// milvusClient captures the subset of client.Client used by Store, so tests
// can substitute a mock instead of a live Milvus instance.
type milvusClient interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema, shardNum int32, opts ...client.CreateCollectionOption) error
	CreateIndex(ctx context.Context, collName, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error
	LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error
	Upsert(ctx context.Context, collName, partitionName string, columns ...entity.Column) (entity.Column, error)
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	Flush(ctx context.Context, collName string, async bool) error
}

const (
	fieldID       = "id"
	fieldVector   = "vector"
	fieldText     = "text"
	defaultMetric = entity.L2
)

// Options configures a Milvus-backed Store.
type Options struct {
	Client         milvusClient
	Collection     string
	Dimension      int
	MetricType     entity.MetricType
	ShardNum       int32
	ConsistencyLvl entity.ConsistencyLevel
}

type milvusStore struct {
	client     milvusClient
	collection string
	metric     entity.MetricType
}

var _ Store = (*milvusStore)(nil)

// New ensures the configured collection exists (creating and indexing it on
// first use) and returns a Store bound to it.
func New(ctx context.Context, opts Options) (Store, error) {
	if opts.Client == nil {
		return nil, errors.New("vectorstore: client is required")
	}
	if opts.Collection == "" {
		return nil, errors.New("vectorstore: collection name is required")
	}
	if opts.Dimension <= 0 {
		return nil, errors.New("vectorstore: dimension must be positive")
	}
	metric := opts.MetricType
	if metric == "" {
		metric = defaultMetric
	}
	shardNum := opts.ShardNum
	if shardNum <= 0 {
		shardNum = 2
	}

	exists, err := opts.Client.HasCollection(ctx, opts.Collection)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: check collection: %w", err)
	}
	if !exists {
		if err := createCollection(ctx, opts.Client, opts.Collection, opts.Dimension, shardNum, metric); err != nil {
			return nil, err
		}
	}
	if err := opts.Client.LoadCollection(ctx, opts.Collection, false); err != nil {
		return nil, fmt.Errorf("vectorstore: load collection: %w", err)
	}

	return &milvusStore{client: opts.Client, collection: opts.Collection, metric: metric}, nil
}

func createCollection(ctx context.Context, c milvusClient, name string, dimension int, shardNum int32, metric entity.MetricType) error {
	schema := entity.NewSchema().WithName(name).WithDescription("knowledge base chunks").
		WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithIsPrimaryKey(true).WithMaxLength(128)).
		WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).WithMaxLength(65535)).
		WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(dimension)))

	if err := c.CreateCollection(ctx, schema, shardNum); err != nil {
		return fmt.Errorf("vectorstore: create collection: %w", err)
	}
	idx, err := entity.NewIndexAUTOINDEX(metric)
	if err != nil {
		return fmt.Errorf("vectorstore: build index: %w", err)
	}
	if err := c.CreateIndex(ctx, name, fieldVector, idx, false); err != nil {
		return fmt.Errorf("vectorstore: create index: %w", err)
	}
	return nil
}

// Upsert writes records into the collection, then flushes so they are
// immediately searchable.
func (s *milvusStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	ids := make([]string, len(records))
	texts := make([]string, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		if r.ID == "" {
			return errors.New("vectorstore: record id is required")
		}
		ids[i] = r.ID
		texts[i] = r.Text
		vectors[i] = r.Vector
	}

	columns := []entity.Column{
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldText, texts),
		entity.NewColumnFloatVector(fieldVector, len(vectors[0]), vectors),
	}
	if _, err := s.client.Upsert(ctx, s.collection, "", columns...); err != nil {
		return fmt.Errorf("vectorstore: upsert: %w", err)
	}
	if err := s.client.Flush(ctx, s.collection, false); err != nil {
		return fmt.Errorf("vectorstore: flush: %w", err)
	}
	return nil
}

// Query returns the topK nearest records to vector by the collection's
// configured metric.
func (s *milvusStore) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, errors.New("vectorstore: topK must be positive")
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: build search param: %w", err)
	}

	results, err := s.client.Search(
		ctx, s.collection, nil, "", []string{fieldID, fieldText},
		[]entity.Vector{entity.FloatVector(vector)}, fieldVector, s.metric, topK, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: search: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return matchesFromResult(results[0]), nil
}

func matchesFromResult(r client.SearchResult) []Match {
	matches := make([]Match, 0, r.ResultCount)
	idCol, _ := r.IDs.(*entity.ColumnVarChar)
	var textCol *entity.ColumnVarChar
	for _, f := range r.Fields {
		if c, ok := f.(*entity.ColumnVarChar); ok && c.Name() == fieldText {
			textCol = c
		}
	}
	for i := 0; i < r.ResultCount; i++ {
		m := Match{Score: r.Scores[i]}
		if idCol != nil {
			if v, err := idCol.ValueByIdx(i); err == nil {
				m.ID = v
			}
		}
		if textCol != nil {
			if v, err := textCol.ValueByIdx(i); err == nil {
				m.Text = v
			}
		}
		matches = append(matches, m)
	}
	return matches
}
