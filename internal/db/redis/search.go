package redis

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docstore/internal/db"
)

const vectorScoreField = "__vector_score"

// SearchText runs a scored full-text search via FT.SEARCH.
func (s *Store) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Text == "" && !q.MatchAll {
		return nil, fmt.Errorf("query text is required")
	}
	if q.TopK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	queryStr := buildTextQuery(q)

	args := []string{q.Index, queryStr,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(q.TopK),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseScoredResult(raw, q.ExcludeFields)
}

// SearchVector runs a KNN similarity search via FT.SEARCH. The raw cosine
// distance d reported by the engine is exposed as score = 2.0 - d, which
// equals cosine similarity shifted by +1.0 and is therefore non-negative.
func (s *Store) SearchVector(ctx context.Context, q *db.VectorQuery) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Field == "" {
		return nil, fmt.Errorf("vector field is required")
	}
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}

	prefilter := buildIDFilter(q.CandidateIDs)
	if prefilter == "" {
		prefilter = "*"
	} else {
		prefilter = "(" + prefilter + ")"
	}

	queryStr := fmt.Sprintf("%s=>[KNN %d @%s $BLOB AS %s]", prefilter, q.K, q.Field, vectorScoreField)

	args := []string{q.Index, queryStr,
		"SORTBY", vectorScoreField,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parseVectorResult(raw, q.ExcludeFields)
}

// SearchScan returns one unscored page of an index.
func (s *Store) SearchScan(ctx context.Context, q *db.ScanQuery) (*db.SearchResult, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if q.Limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	queryStr := buildFilterQuery(q.Filters)
	if queryStr == "" {
		queryStr = "*"
	}

	args := []string{q.Index, queryStr,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	return parsePlainResult(raw, nil)
}

// SearchIDs returns up to limit matching document keys without content.
func (s *Store) SearchIDs(
	ctx context.Context, index string, filters map[string][]string, limit int,
) ([]string, error) {
	if index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	queryStr := buildFilterQuery(filters)
	if queryStr == "" {
		queryStr = "*"
	}

	args := []string{index, queryStr,
		"NOCONTENT",
		"LIMIT", "0", strconv.Itoa(limit),
		"DIALECT", "2",
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	if len(raw) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(raw)-1)
	// 1-stride with NOCONTENT: [total, key1, key2, ...]
	for i := 1; i < len(raw); i++ {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// SearchCount returns the number of documents in an index via LIMIT 0 0.
func (s *Store) SearchCount(ctx context.Context, index string) (int, error) {
	if index == "" {
		return 0, fmt.Errorf("index name is required")
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.Error{Op: db.OpSearch, Err: err}
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

// --- Query building ---

// buildTextQuery assembles the full FT.SEARCH query string for a text search:
// tag filters, candidate-ID restriction and the scored text clause, all
// AND-joined by whitespace.
func buildTextQuery(q *db.TextQuery) string {
	var parts []string

	if f := buildFilterQuery(q.Filters); f != "" {
		parts = append(parts, f)
	}
	if ids := buildIDFilter(q.CandidateIDs); ids != "" {
		parts = append(parts, ids)
	}

	if q.Text != "" {
		fields := strings.Join(q.Fields, "|")
		if fields == "" {
			parts = append(parts, fmt.Sprintf("(%s)", escapeQuery(q.Text)))
		} else {
			parts = append(parts, fmt.Sprintf("@%s:(%s)", fields, escapeQuery(q.Text)))
		}
	}

	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

// buildFilterQuery renders field filters as tag clauses: values within a
// field are OR-joined inside one {}, fields are AND-joined by whitespace.
func buildFilterQuery(filters map[string][]string) string {
	if len(filters) == 0 {
		return ""
	}

	fields := make([]string, 0, len(filters))
	for field := range filters {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		values := filters[field]
		if len(values) == 0 {
			continue
		}
		escaped := make([]string, 0, len(values))
		for _, v := range values {
			escaped = append(escaped, tagEscaper.Replace(v))
		}
		parts = append(parts, fmt.Sprintf("@%s:{%s}", field, strings.Join(escaped, "|")))
	}

	return strings.Join(parts, " ")
}

func buildIDFilter(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	escaped := make([]string, 0, len(ids))
	for _, id := range ids {
		escaped = append(escaped, tagEscaper.Replace(id))
	}
	return fmt.Sprintf("@%s:{%s}", db.IDField, strings.Join(escaped, "|"))
}

// --- Result parsing ---

// parseScoredResult handles the WITHSCORES reply layout.
func parseScoredResult(raw []rueidis.RedisMessage, exclude []string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	hits := make([]db.Hit, 0, total)
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		source, err := parseSource(fields, exclude)
		if err != nil {
			continue
		}

		hits = append(hits, db.Hit{Key: key, Score: score, HasScore: true, Source: source})
	}

	return &db.SearchResult{Total: int(total), Hits: hits}, nil
}

// parseVectorResult handles the KNN reply layout and converts cosine
// distance into the shifted-similarity score.
func parseVectorResult(raw []rueidis.RedisMessage, exclude []string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	hits := make([]db.Hit, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		pairs := parseFieldPairs(fields)

		hit := db.Hit{Key: key}
		if distStr, ok := pairs[vectorScoreField]; ok {
			if dist, err := strconv.ParseFloat(distStr, 64); err == nil {
				hit.Score = 2.0 - dist
				hit.HasScore = true
			}
		}

		if docJSON, ok := pairs["$"]; ok {
			source, err := decodeSource(docJSON, exclude)
			if err != nil {
				continue
			}
			hit.Source = source
		}

		hits = append(hits, hit)
	}

	return &db.SearchResult{Total: int(total), Hits: hits}, nil
}

func parsePlainResult(raw []rueidis.RedisMessage, exclude []string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	hits := make([]db.Hit, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		source, err := parseSource(fields, exclude)
		if err != nil {
			continue
		}

		hits = append(hits, db.Hit{Key: key, Source: source})
	}

	return &db.SearchResult{Total: int(total), Hits: hits}, nil
}

// parseSource extracts the "$" field from a JSON-index reply and decodes it.
func parseSource(fields []rueidis.RedisMessage, exclude []string) (map[string]any, error) {
	pairs := parseFieldPairs(fields)
	docJSON, ok := pairs["$"]
	if !ok {
		return nil, fmt.Errorf("missing document payload")
	}
	return decodeSource(docJSON, exclude)
}

func decodeSource(docJSON string, exclude []string) (map[string]any, error) {
	var source map[string]any
	if err := json.Unmarshal([]byte(docJSON), &source); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	delete(source, db.IDField)
	for _, f := range exclude {
		delete(source, f)
	}
	return source, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
