package redis

import (
	"context"
	"strconv"

	"github.com/kailas-cloud/ragchat/internal/db"
)

// CreateIndex issues FT.CREATE for the schema.
func (s *Store) CreateIndex(ctx context.Context, schema db.Schema) error {
	if err := schema.Validate(); err != nil {
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(createArgs(schema)...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// createArgs renders: name ON HASH [PREFIX 1 p] SCHEMA tags... numbers... vector.
func createArgs(schema db.Schema) []string {
	args := []string{schema.Name, "ON", "HASH"}
	if schema.Prefix != "" {
		args = append(args, "PREFIX", "1", schema.Prefix)
	}
	args = append(args, "SCHEMA")
	for _, tag := range schema.Tags {
		args = append(args, tag, "TAG", "CASESENSITIVE")
	}
	for _, num := range schema.Numbers {
		args = append(args, num, "NUMERIC")
	}
	return append(args, vectorArgs(schema.Vector)...)
}

func vectorArgs(v db.VectorSpec) []string {
	m, ef := v.M, v.EFConstruction
	if m <= 0 {
		m = db.DefaultHNSWM
	}
	if ef <= 0 {
		ef = db.DefaultHNSWEFConstruction
	}
	attrs := []string{
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(v.Dim),
		"DISTANCE_METRIC", "COSINE",
		"M", strconv.Itoa(m),
		"EF_CONSTRUCTION", strconv.Itoa(ef),
	}

	out := []string{v.Field}
	if v.Alias != "" {
		out = append(out, "AS", v.Alias)
	}
	out = append(out, "VECTOR", "HNSW", strconv.Itoa(len(attrs)))
	return append(out, attrs...)
}
