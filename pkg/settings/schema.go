package settings

import (
	"encoding/json"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

var ErrSchemaViolation = errors.New("settings do not match the schema")

// JSONSchemaExtend accepts the timeout either as seconds or as a duration
// string, like UnmarshalYAML.
func (BackendSettings) JSONSchemaExtend(s *jsonschema.Schema) {
	if s.Properties == nil {
		return
	}
	s.Properties.Set("timeout", &jsonschema.Schema{
		Description: "seconds, or a duration such as 90s",
		OneOf: []*jsonschema.Schema{
			{Type: "integer"},
			{Type: "string"},
		},
	})
}

// Schema returns the JSON schema of the config file. Every field is optional
// since a config file only overlays the defaults.
func Schema() *jsonschema.Schema {
	reflector := &jsonschema.Reflector{
		DoNotReference:             true,
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&Settings{})
	schema.Title = "invochat configuration"
	return schema
}

// ValidateYAML checks a config document against Schema.
func ValidateYAML(data []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, "could not parse settings")
	}
	if doc == nil {
		return nil
	}

	schema := Schema()
	// gojsonschema predates the 2020-12 draft the reflector announces
	schema.Version = ""
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return errors.Wrap(err, "could not marshal settings schema")
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return errors.Wrap(err, "could not validate settings")
	}
	if result.Valid() {
		return nil
	}

	descriptions := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		descriptions = append(descriptions, desc.String())
	}
	return errors.Wrap(ErrSchemaViolation, strings.Join(descriptions, "; "))
}
