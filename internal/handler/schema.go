package handler

import (
	"net/http"

	"github.com/picstore/picstore/internal/record"
)

// SchemaHandler serves the self-describing schema endpoint: per resource
// and request model, the field names, types and attached constraint names,
// generated from the schema descriptors so the API documents itself.
type SchemaHandler struct{}

// NewSchemaHandler creates a SchemaHandler.
func NewSchemaHandler() *SchemaHandler {
	return &SchemaHandler{}
}

// Describe returns every registered schema's field descriptions.
// GET /api/v1/schema
func (h *SchemaHandler) Describe(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]map[string]record.FieldDescription)
	for name, schema := range record.Tables() {
		out[name] = schema.Describe()
	}
	out[record.Credentials.Name()] = record.Credentials.Describe()
	out[record.RefreshRequest.Name()] = record.RefreshRequest.Describe()
	writeJSON(w, http.StatusOK, out)
}
