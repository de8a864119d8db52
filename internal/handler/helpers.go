package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/record"
)

// writeJSON serializes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeSuccess writes the standard success envelope, with optional info.
func writeSuccess(w http.ResponseWriter, info string) {
	body := map[string]string{"message": "SUCCESS"}
	if info != "" {
		body["info"] = info
	}
	writeJSON(w, http.StatusOK, body)
}

// writeErr translates an error into the response envelope. Typed API
// errors keep their id, status and info; anything else becomes an opaque
// OtherError so driver details never leak to clients.
func writeErr(w http.ResponseWriter, err error) {
	if apiErr, ok := apierr.From(err); ok {
		writeJSON(w, apiErr.Status, apiErr)
		return
	}
	writeJSON(w, http.StatusInternalServerError, &apierr.Error{
		ID:      "OtherError",
		Message: "Other error",
	})
}

// decodeRecord populates a fresh record of the schema from the JSON body.
// An empty body yields an empty record; malformed JSON is a parse error.
func decodeRecord(r *http.Request, schema *record.Schema) (*record.Record, error) {
	defer r.Body.Close()
	rec := schema.New()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apierr.JSONParse(err.Error())
	}
	if len(body) == 0 {
		return rec, nil
	}
	if err := rec.FromJSON(body); err != nil {
		return nil, apierr.JSONParse(err.Error())
	}
	return rec, nil
}

// pathID extracts a numeric path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, apierr.InvalidParams("Invalid " + name + " path parameter")
	}
	return id, nil
}

// validationInfo flattens a validation result for the error envelope.
func validationInfo(errs map[string][]record.ValidationError) map[string][]string {
	info := make(map[string][]string, len(errs))
	for field, list := range errs {
		for _, e := range list {
			info[field] = append(info[field], e.Description)
		}
	}
	return info
}

// dropRequired removes Required failures from a validation result, used by
// partial updates where absent fields are legitimate.
func dropRequired(errs map[string][]record.ValidationError) map[string][]record.ValidationError {
	out := make(map[string][]record.ValidationError)
	for field, list := range errs {
		var kept []record.ValidationError
		for _, e := range list {
			if e.Constraint != "Required" {
				kept = append(kept, e)
			}
		}
		if len(kept) > 0 {
			out[field] = kept
		}
	}
	return out
}
