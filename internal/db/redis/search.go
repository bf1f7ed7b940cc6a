package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ragchat/internal/db"
)

// scoreField is the pseudo-field FT.SEARCH fills with the KNN distance.
const scoreField = "__vector_score"

// SearchKNN runs a KNN query via FT.SEARCH. Tag filters become a pre-filter.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	switch {
	case q.IndexName == "":
		return nil, errors.New("index name is required")
	case len(q.Vector) == 0:
		return nil, errors.New("vector is required")
	case q.K <= 0:
		return nil, errors.New("k must be positive")
	}

	filter := "*"
	if f := buildFilter(q.Filters); f != "" {
		filter = "(" + f + ")"
	}
	args := []string{q.IndexName, fmt.Sprintf("%s=>[KNN %d @vector $BLOB]", filter, q.K)}
	if n := len(q.ReturnFields); n > 0 {
		args = append(args, "RETURN", strconv.Itoa(n+1))
		args = append(args, q.ReturnFields...)
		args = append(args, scoreField)
	}
	args = append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)

	raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(args...).Build()).ToArray()
	if err != nil {
		return nil, searchErr(err)
	}
	return parseKNNReply(raw)
}

// SearchCount returns the document count via FT.SEARCH with LIMIT 0 0. Valkey cannot
// run a bare "*" query, so that case counts keys under KeyPrefix with SCAN.
func (s *Store) SearchCount(ctx context.Context, q *db.CountQuery) (int, error) {
	query := q.Query
	if query == "" {
		query = "*"
	}
	if query == "*" && s.flavor == FlavorValkey {
		return s.scanCount(ctx, q.KeyPrefix)
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(q.IndexName, query, "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, searchErr(err)
	}
	if len(raw) == 0 {
		return 0, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func (s *Store) scanCount(ctx context.Context, prefix string) (int, error) {
	if prefix == "" {
		return 0, errors.New("key prefix is required for scan count")
	}
	var (
		count  int
		cursor uint64
	)
	for {
		cmd := s.b().Scan().Cursor(cursor).Match(prefix + "*").Count(500).Build()
		res, err := s.do(ctx, cmd).AsScanEntry()
		if err != nil {
			return 0, &db.Error{Op: db.OpScan, Err: err}
		}
		count += len(res.Elements)
		cursor = res.Cursor
		if cursor == 0 {
			return count, nil
		}
	}
}

func searchErr(err error) error {
	if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
		return db.ErrIndexNotFound
	}
	return &db.Error{Op: db.OpSearch, Err: err}
}

// parseKNNReply reads the RESP2 reply [total, key1, [f, v, ...], key2, ...].
// Hits whose key or field list cannot be read are skipped.
func parseKNNReply(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	res := &db.SearchResult{}
	if len(raw) == 0 {
		return res, nil
	}
	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	res.Total = int(total)

	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		pairs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entry := db.SearchEntry{Key: key, Fields: make(map[string]string, len(pairs)/2)}
		for j := 0; j+1 < len(pairs); j += 2 {
			name, nerr := pairs[j].ToString()
			value, verr := pairs[j+1].ToString()
			if nerr != nil || verr != nil {
				continue
			}
			if name == scoreField {
				if d, err := strconv.ParseFloat(value, 64); err == nil {
					entry.Distance = &d
				}
				continue
			}
			entry.Fields[name] = value
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

// buildFilter renders tag filters as "@field:{value} ..." (implicit AND).
func buildFilter(filters []db.TagFilter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, "@"+f.Field+":{"+escapeTag(f.Value)+"}")
	}
	return strings.Join(parts, " ")
}

// escapeTag backslash-escapes every rune the query parser treats as syntax:
// anything other than letters, digits and underscore.
func escapeTag(v string) string {
	var b strings.Builder
	b.Grow(len(v) + 8)
	for _, r := range v {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// vectorToBytes encodes v as little-endian FLOAT32, the layout HNSW fields store.
func vectorToBytes(v []float32) string {
	buf := make([]byte, 0, len(v)*4)
	for _, f := range v {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return string(buf)
}
