package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/opensource-regtech/kestrel/internal/domain"
)

//go:embed data/schema.json
var schemaJSON []byte

//go:embed data/requirements.json
var defaultCatalogJSON []byte

// Document is the on-disk catalog format.
type Document struct {
	RegulatoryRequirements   RequirementGroups `json:"regulatoryRequirements" yaml:"regulatoryRequirements"`
	BusinessLicensingMapping Mapping           `json:"businessLicensingMapping" yaml:"businessLicensingMapping"`
}

// RequirementGroups holds the records filed under each authority group.
type RequirementGroups struct {
	General []domain.RequirementRecord `json:"general" yaml:"general"`
	Police  []domain.RequirementRecord `json:"police" yaml:"police"`
	Health  []domain.RequirementRecord `json:"health" yaml:"health"`
	Fire    []domain.RequirementRecord `json:"fire" yaml:"fire"`
}

// Mapping wraps the ordered mapping rules.
type Mapping struct {
	Rules []domain.MappingRule `json:"rules" yaml:"rules"`
}

// Format identifies a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// SchemaError lists every schema violation found in a catalog document.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return "catalog schema validation failed: " + strings.Join(e.Violations, "; ")
}

// Catalog flattens the document into a Catalog. Groups are read in the order
// general, police, health, fire; a record that omits its category inherits
// the name of the group it is listed under.
func (d *Document) Catalog() (*Catalog, error) {
	groups := []struct {
		category domain.Category
		records  []domain.RequirementRecord
	}{
		{domain.CategoryGeneral, d.RegulatoryRequirements.General},
		{domain.CategoryPolice, d.RegulatoryRequirements.Police},
		{domain.CategoryHealth, d.RegulatoryRequirements.Health},
		{domain.CategoryFire, d.RegulatoryRequirements.Fire},
	}

	var records []domain.RequirementRecord
	for _, g := range groups {
		for _, rec := range g.records {
			if rec.Category == "" {
				rec.Category = g.category
			}
			records = append(records, rec)
		}
	}
	return New(records, d.BusinessLicensingMapping.Rules)
}

// Parse validates data against the catalog schema and decodes it.
func Parse(data []byte, format Format) (*Document, error) {
	var generic interface{}
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", format)
	}

	if err := validateSchema(generic); err != nil {
		return nil, err
	}

	var doc Document
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
	}
	return &doc, nil
}

func validateSchema(document interface{}) error {
	if document == nil {
		return &SchemaError{Violations: []string{"document is empty"}}
	}

	schemaLoader := gojsonschema.NewBytesLoader(schemaJSON)
	documentLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("catalog schema validation: %w", err)
	}

	if !result.Valid() {
		violations := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			violations[i] = desc.String()
		}
		return &SchemaError{Violations: violations}
	}
	return nil
}

// Load parses data and builds the catalog it describes.
func Load(data []byte, format Format) (*Catalog, error) {
	doc, err := Parse(data, format)
	if err != nil {
		return nil, err
	}
	return doc.Catalog()
}

// LoadFile reads a catalog document from path. The format follows the file
// extension: .yaml and .yml are YAML, anything else is JSON.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat, err := Load(data, formatFor(path))
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return cat, nil
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	cat, err := Load(defaultCatalogJSON, FormatJSON)
	if err != nil {
		return nil, fmt.Errorf("load embedded catalog: %w", err)
	}
	return cat, nil
}

// IsSchemaError reports whether err carries schema violations.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}
