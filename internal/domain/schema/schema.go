package schema

import "fmt"

// Default field names mirroring the conventional document layout.
const (
	DefaultTextField             = "text"
	DefaultNameField             = "name"
	DefaultExternalSourceIDField = "external_source_id"
)

// IndexSchema describes how document fields map onto a backend index.
// Immutable after store construction.
type IndexSchema struct {
	textField             string
	nameField             string
	externalSourceIDField string
	searchFields          []string
	tagFields             []string
	embeddingField        string
	embeddingDim          int
	excludedMetaFields    []string
}

// Option customizes an IndexSchema during construction.
type Option func(*IndexSchema)

// WithTextField overrides the primary content field name.
func WithTextField(name string) Option {
	return func(s *IndexSchema) { s.textField = name }
}

// WithNameField overrides the display-name field name.
func WithNameField(name string) Option {
	return func(s *IndexSchema) { s.nameField = name }
}

// WithExternalSourceIDField overrides the external cross-reference field name.
func WithExternalSourceIDField(name string) Option {
	return func(s *IndexSchema) { s.externalSourceIDField = name }
}

// WithSearchFields sets the fields scored by free-text queries.
func WithSearchFields(fields ...string) Option {
	return func(s *IndexSchema) { s.searchFields = fields }
}

// WithTagFields sets the exact-match filterable fields.
func WithTagFields(fields ...string) Option {
	return func(s *IndexSchema) { s.tagFields = fields }
}

// WithEmbedding enables the dense-vector field with the given dimensionality.
func WithEmbedding(field string, dim int) Option {
	return func(s *IndexSchema) {
		s.embeddingField = field
		s.embeddingDim = dim
	}
}

// WithExcludedMetaFields requests the backend to omit the given fields from
// returned documents. Reduces payload size; does not affect scoring.
func WithExcludedMetaFields(fields ...string) Option {
	return func(s *IndexSchema) { s.excludedMetaFields = fields }
}

// New validates and creates an IndexSchema. Field names default to the
// conventional layout; search defaults to the text field.
func New(opts ...Option) (IndexSchema, error) {
	s := IndexSchema{
		textField:             DefaultTextField,
		nameField:             DefaultNameField,
		externalSourceIDField: DefaultExternalSourceIDField,
	}
	for _, o := range opts {
		o(&s)
	}
	if len(s.searchFields) == 0 {
		s.searchFields = []string{s.textField}
	}
	if s.textField == "" {
		return IndexSchema{}, fmt.Errorf("text field name is required")
	}
	if s.embeddingField != "" && s.embeddingDim <= 0 {
		return IndexSchema{}, fmt.Errorf("embedding field %q requires positive dimensions", s.embeddingField)
	}
	return s, nil
}

// MustNew creates an IndexSchema or panics.
func MustNew(opts ...Option) IndexSchema {
	s, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// TextField returns the primary content field name.
func (s IndexSchema) TextField() string { return s.textField }

// NameField returns the display-name field name.
func (s IndexSchema) NameField() string { return s.nameField }

// ExternalSourceIDField returns the external cross-reference field name.
func (s IndexSchema) ExternalSourceIDField() string { return s.externalSourceIDField }

// SearchFields returns the fields scored by free-text queries.
func (s IndexSchema) SearchFields() []string { return s.searchFields }

// TagFields returns the exact-match filterable fields.
func (s IndexSchema) TagFields() []string { return s.tagFields }

// EmbeddingField returns the dense-vector field name, empty when the store
// is not embedding-enabled.
func (s IndexSchema) EmbeddingField() string { return s.embeddingField }

// EmbeddingDim returns the configured vector dimensionality.
func (s IndexSchema) EmbeddingDim() int { return s.embeddingDim }

// ExcludedMetaFields returns the fields omitted from returned documents.
func (s IndexSchema) ExcludedMetaFields() []string { return s.excludedMetaFields }

// HasEmbedding reports whether the store is embedding-enabled.
func (s IndexSchema) HasEmbedding() bool { return s.embeddingField != "" }
