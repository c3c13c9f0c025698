package roadmap

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed artifact.schema.json
var artifactSchemaJSON string

var artifactSchema = mustCompileSchema(artifactSchemaJSON)

func mustCompileSchema(content string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		panic(fmt.Sprintf("roadmap: artifact schema is invalid: %v", err))
	}
	return schema
}

// SchemaError lists the fields of a generated document that do not fit the artifact shape
type SchemaError struct {
	Fields []string
}

func (e *SchemaError) Error() string {
	return "artifact does not match schema: " + strings.Join(e.Fields, "; ")
}

// validateArtifactJSON checks raw model output against the artifact schema
func validateArtifactJSON(raw string) error {
	result, err := artifactSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}

	if result.Valid() {
		return nil
	}

	schemaErr := &SchemaError{Fields: make([]string, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		schemaErr.Fields = append(schemaErr.Fields, field+": "+desc.Description())
	}
	return schemaErr
}
