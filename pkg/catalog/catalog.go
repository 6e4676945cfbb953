// Package catalog loads cadastro types: their checklist templates and business field schemas.
package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/thaylorsetup-cmd/Sistema-Integracao-Interna-sub000/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed default.json
var defaultCatalog []byte

var (
	ErrUnknownType   = errors.New("unknown cadastro type")
	ErrInvalidFields = errors.New("invalid submission fields")
)

// CadastroType is one registration kind.
type CadastroType struct {
	Name         string                         `json:"name"`
	Label        string                         `json:"label"`
	Checklist    []models.ChecklistTemplateItem `json:"checklist"`
	FieldsSchema map[string]any                 `json:"fields_schema,omitempty"`

	schema *gojsonschema.Schema
}

type document struct {
	DefaultType string          `json:"default_type"`
	Types       []*CadastroType `json:"types"`
}

// Catalog is read-only after load and safe for concurrent use.
type Catalog struct {
	defaultType string
	order       []string
	types       map[string]*CadastroType
}

// Default returns the catalog embedded in the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}

	return c
}

// Load reads a catalog file. An empty path yields the embedded default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var doc document

	err := json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := &Catalog{
		defaultType: doc.DefaultType,
		types:       make(map[string]*CadastroType, len(doc.Types)),
	}

	for _, t := range doc.Types {
		if t.Name == "" {
			return nil, errors.New("catalog type without name")
		}

		if _, dup := c.types[t.Name]; dup {
			return nil, fmt.Errorf("duplicate catalog type %q", t.Name)
		}

		if t.FieldsSchema != nil {
			t.schema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.FieldsSchema))
			if err != nil {
				return nil, fmt.Errorf("invalid fields schema for %q: %w", t.Name, err)
			}
		}

		c.types[t.Name] = t
		c.order = append(c.order, t.Name)
	}

	if _, ok := c.types[c.defaultType]; !ok {
		return nil, fmt.Errorf("default type %q is not defined", c.defaultType)
	}

	return c, nil
}

// DefaultType names the type used when a submission carries none.
func (c *Catalog) DefaultType() string {
	return c.defaultType
}

// Types returns the types in file order.
func (c *Catalog) Types() []*CadastroType {
	types := make([]*CadastroType, 0, len(c.order))
	for _, name := range c.order {
		types = append(types, c.types[name])
	}

	return types
}

func (c *Catalog) Lookup(name string) (*CadastroType, bool) {
	t, ok := c.types[name]

	return t, ok
}

// Resolve returns the first non-empty candidate, or the default type when all
// are empty. A named but unknown type is an error.
func (c *Catalog) Resolve(candidates ...string) (*CadastroType, error) {
	for _, name := range candidates {
		if name == "" {
			continue
		}

		t, ok := c.types[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
		}

		return t, nil
	}

	return c.types[c.defaultType], nil
}

// ValidateFields checks free-form business fields against the type's schema.
func (c *Catalog) ValidateFields(typeName string, fields map[string]any) error {
	t, err := c.Resolve(typeName)
	if err != nil {
		return err
	}

	if t.schema == nil {
		return nil
	}

	if fields == nil {
		fields = map[string]any{}
	}

	result, err := t.schema.Validate(gojsonschema.NewGoLoader(fields))
	if err != nil {
		return fmt.Errorf("failed to validate fields: %w", err)
	}

	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}

		return fmt.Errorf("%w: %s", ErrInvalidFields, strings.Join(problems, "; "))
	}

	return nil
}
