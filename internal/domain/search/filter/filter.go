package filter

import (
	"fmt"
	"sort"
)

// MaxFields is the maximum number of filterable fields per query.
const MaxFields = 32

// Filters restricts a query's candidate set: logical AND across fields,
// logical OR within a field's value set. Filters narrow matches but never
// affect ranking score.
type Filters struct {
	fields map[string][]string
}

// New validates and creates Filters from a field → values mapping.
func New(fields map[string][]string) (Filters, error) {
	if len(fields) > MaxFields {
		return Filters{}, fmt.Errorf("too many filter fields (max %d)", MaxFields)
	}
	for key, values := range fields {
		if key == "" {
			return Filters{}, fmt.Errorf("filter field name is required")
		}
		if len(values) == 0 {
			return Filters{}, fmt.Errorf("filter field %q requires at least one value", key)
		}
	}
	copied := make(map[string][]string, len(fields))
	for k, v := range fields {
		copied[k] = append([]string(nil), v...)
	}
	return Filters{fields: copied}, nil
}

// IsEmpty reports whether no fields are constrained.
func (f Filters) IsEmpty() bool { return len(f.fields) == 0 }

// Values returns the acceptable values for a field.
func (f Filters) Values(field string) []string { return f.fields[field] }

// Fields returns the constrained field names in deterministic order.
func (f Filters) Fields() []string {
	names := make([]string, 0, len(f.fields))
	for k := range f.fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Map returns the field → values mapping (copy).
func (f Filters) Map() map[string][]string {
	m := make(map[string][]string, len(f.fields))
	for k, v := range f.fields {
		m[k] = append([]string(nil), v...)
	}
	return m
}
