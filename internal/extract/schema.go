package extract

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"idverify/internal/models"
)

// The model response is an untrusted external payload: before a record
// is built from it, it must be a flat JSON object whose identity keys
// are present (possibly null) and whose values are scalar-or-null.
// Unknown extra keys are allowed; they are retained in DocumentFields
// but never relied on for mandatory fields.

var (
	personalSchema    = mustFieldSchema("personal.json", personalFields)
	educationalSchema = mustFieldSchema("educational.json", educationalFields)
)

func mustFieldSchema(name string, fields []string) *jsonschema.Schema {
	props := make([]string, 0, len(fields))
	for _, f := range fields {
		props = append(props, fmt.Sprintf(`%q: {"type": ["string", "number", "null"]}`, f))
	}
	doc := fmt.Sprintf(`{
		"type": "object",
		"required": ["name", "dob"],
		"properties": {%s}
	}`, strings.Join(props, ", "))
	return jsonschema.MustCompileString(name, doc)
}

// validateResponse checks a decoded model response against the
// expected-field schema for the role.
func validateResponse(role models.DocumentRole, decoded any) error {
	sch := educationalSchema
	if role == models.RolePersonal {
		sch = personalSchema
	}
	return sch.Validate(decoded)
}
