package search

import (
	"encoding/json"
	"regexp"

	"github.com/kailas-cloud/docstore/internal/db"
	"github.com/kailas-cloud/docstore/internal/domain"
	"github.com/kailas-cloud/docstore/internal/domain/schema"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
	"github.com/kailas-cloud/docstore/internal/repository/document"
)

// questionPlaceholder binds to the literal query string; every other
// placeholder must name a filter field and binds to its value list as a
// JSON array literal.
const questionPlaceholder = "question"

var placeholderPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// substitute resolves every ${identifier} in the template. An identifier
// without a binding fails the whole substitution.
func substitute(tmpl, queryText string, f filter.Filters) (string, error) {
	var substErr error
	out := placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := placeholderPattern.FindStringSubmatch(m)[1]
		if name == questionPlaceholder {
			return queryText
		}
		values := f.Values(name)
		if values == nil {
			if substErr == nil {
				substErr = domain.NewTemplateError("placeholder %q has no binding", name)
			}
			return m
		}
		data, err := json.Marshal(values)
		if err != nil {
			if substErr == nil {
				substErr = domain.NewTemplateError("placeholder %q: %v", name, err)
			}
			return m
		}
		return string(data)
	})
	if substErr != nil {
		return "", substErr
	}
	return out, nil
}

// templateBody is the structured query shape a substituted template must
// produce. The interpreter is deliberately bounded: match, multi_match,
// match_all, bool{must,should,filter}, terms and ids clauses plus size and
// _source.excludes.
type templateBody struct {
	Size   int             `json:"size"`
	Query  json.RawMessage `json:"query"`
	Source *sourceSpec     `json:"_source"`
}

type sourceSpec struct {
	Excludes []string `json:"excludes"`
}

// compileTemplate substitutes placeholders and compiles the resulting
// structured query into a backend text query.
func compileTemplate(
	s schema.IndexSchema, index, tmpl, queryText string, f filter.Filters, defaultTopK int,
) (*db.TextQuery, error) {
	substituted, err := substitute(tmpl, queryText, f)
	if err != nil {
		return nil, err
	}

	var body templateBody
	if err := json.Unmarshal([]byte(substituted), &body); err != nil {
		return nil, domain.NewTemplateError("substituted template is not a valid query body: %v", err)
	}

	q := &db.TextQuery{
		Index:         document.IndexName(index),
		TopK:          defaultTopK,
		ExcludeFields: s.ExcludedMetaFields(),
	}
	if body.Size > 0 {
		q.TopK = body.Size
	}
	if body.Source != nil {
		q.ExcludeFields = append(q.ExcludeFields, body.Source.Excludes...)
	}

	if body.Query == nil {
		return nil, domain.NewTemplateError("template produced no query clause")
	}
	if err := compileClause(body.Query, q); err != nil {
		return nil, err
	}
	if q.Text == "" {
		q.MatchAll = true
	}
	return q, nil
}

// compileClause interprets one query node.
func compileClause(raw json.RawMessage, q *db.TextQuery) error {
	var node map[string]json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return domain.NewTemplateError("query clause is not an object: %v", err)
	}

	for kind, body := range node {
		switch kind {
		case "match":
			if err := compileMatch(body, q); err != nil {
				return err
			}
		case "multi_match":
			if err := compileMultiMatch(body, q); err != nil {
				return err
			}
		case "match_all":
			q.MatchAll = true
		case "bool":
			if err := compileBool(body, q); err != nil {
				return err
			}
		case "terms":
			if err := compileTerms(body, q); err != nil {
				return err
			}
		case "ids":
			if err := compileIDs(body, q); err != nil {
				return err
			}
		default:
			return domain.NewTemplateError("unsupported query clause %q", kind)
		}
	}
	return nil
}

func compileMatch(raw json.RawMessage, q *db.TextQuery) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.NewTemplateError("match clause: %v", err)
	}
	for field, value := range fields {
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			// long form: {"field": {"query": "..."}}
			var long struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(value, &long); err != nil || long.Query == "" {
				return domain.NewTemplateError("match clause for %q has no query text", field)
			}
			text = long.Query
		}
		q.Text = text
		q.Fields = []string{field}
	}
	return nil
}

func compileMultiMatch(raw json.RawMessage, q *db.TextQuery) error {
	var clause struct {
		Query  string   `json:"query"`
		Fields []string `json:"fields"`
	}
	if err := json.Unmarshal(raw, &clause); err != nil {
		return domain.NewTemplateError("multi_match clause: %v", err)
	}
	if clause.Query == "" || len(clause.Fields) == 0 {
		return domain.NewTemplateError("multi_match clause requires query and fields")
	}
	q.Text = clause.Query
	q.Fields = clause.Fields
	return nil
}

func compileBool(raw json.RawMessage, q *db.TextQuery) error {
	var clause struct {
		Must   []json.RawMessage `json:"must"`
		Should []json.RawMessage `json:"should"`
		Filter []json.RawMessage `json:"filter"`
	}
	if err := json.Unmarshal(raw, &clause); err != nil {
		return domain.NewTemplateError("bool clause: %v", err)
	}
	for _, group := range [][]json.RawMessage{clause.Must, clause.Should, clause.Filter} {
		for _, sub := range group {
			if err := compileClause(sub, q); err != nil {
				return err
			}
		}
	}
	return nil
}

func compileTerms(raw json.RawMessage, q *db.TextQuery) error {
	var fields map[string][]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return domain.NewTemplateError("terms clause: %v", err)
	}
	if q.Filters == nil {
		q.Filters = make(map[string][]string, len(fields))
	}
	for field, values := range fields {
		q.Filters[field] = values
	}
	return nil
}

func compileIDs(raw json.RawMessage, q *db.TextQuery) error {
	var clause struct {
		Values []string `json:"values"`
	}
	if err := json.Unmarshal(raw, &clause); err != nil {
		return domain.NewTemplateError("ids clause: %v", err)
	}
	q.CandidateIDs = append(q.CandidateIDs, clause.Values...)
	return nil
}
