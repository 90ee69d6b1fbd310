package customer

// FieldType is the JSON type a schema property must have.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
)

// Schema is a flat object schema: every listed property is type-checked when
// present, and every Required property must be present.
type Schema struct {
	Required   []string
	Properties map[string]FieldType
}

// CreateSchema validates POST /customers bodies.
var CreateSchema = Schema{
	Required: []string{"firstName", "lastName", "address", "employeeId"},
	Properties: map[string]FieldType{
		"firstName":  TypeString,
		"lastName":   TypeString,
		"address":    TypeString,
		"employeeId": TypeInteger,
	},
}

// IDParamsSchema validates the path parameters of GET /customers/{id}.
var IDParamsSchema = Schema{
	Required: []string{"id"},
	Properties: map[string]FieldType{
		"id": TypeInteger,
	},
}
