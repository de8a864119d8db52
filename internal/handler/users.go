package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/picstore/picstore/internal/action"
	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/authz"
	"github.com/picstore/picstore/internal/record"
	"github.com/picstore/picstore/internal/server/middleware"
)

// UserHandler serves the users resource. Ownership of a user row is
// encoded by its own id column.
type UserHandler struct {
	actions *action.Actions
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(actions *action.Actions) *UserHandler {
	return &UserHandler{actions: actions}
}

func userParams() authz.Params {
	return authz.Params{OwnerField: "id"}
}

// List returns all users the caller may read, field-filtered per group.
// GET /api/v1/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetBearerToken(r.Context())
	recs, err := h.actions.Get(r.Context(), token, userParams(), record.Users, "*", "")
	if err != nil {
		writeErr(w, err)
		return
	}
	if recs == nil {
		recs = []*record.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// Get returns one user by id.
// GET /api/v1/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	token := middleware.GetBearerToken(r.Context())
	recs, err := h.actions.Get(r.Context(), token, userParams(), record.Users, "*", "id = ?", id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(recs) == 0 {
		writeErr(w, apierr.NotFound("User with that id is not found"))
		return
	}
	writeJSON(w, http.StatusOK, recs[len(recs)-1])
}

// Create registers a new user. Validation errors are reported before
// authorization is attempted; duplicate unique fields before the insert.
// join_date and the default permission group are stamped server-side.
// POST /api/v1/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := decodeRecord(r, record.Users)
	if err != nil {
		writeErr(w, err)
		return
	}
	if errs := user.Validate(); len(errs) > 0 {
		writeErr(w, apierr.Validation(validationInfo(errs)))
		return
	}
	duplicates, err := h.actions.CheckUnique(r.Context(), user)
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(duplicates) > 0 {
		writeErr(w, apierr.Duplicate(duplicates))
		return
	}

	if err := h.actions.HashPassword(user); err != nil {
		writeErr(w, err)
		return
	}
	user.Set("join_date", time.Now().Format("2006-01-02"))
	user.Set("permission_group", int64(authz.GroupUser))

	token := middleware.GetBearerToken(r.Context())
	if err := h.actions.Insert(r.Context(), token, userParams(), user); err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, "Registration successfully completed")
}

// Update rewrites the writable fields of one user. Required constraints do
// not apply: absent fields simply stay unchanged. Fields the caller may
// not update are dropped before the SET clause is built.
// PUT /api/v1/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	user, err := decodeRecord(r, record.Users)
	if err != nil {
		writeErr(w, err)
		return
	}
	if errs := dropRequired(user.Validate()); len(errs) > 0 {
		writeErr(w, apierr.Validation(validationInfo(errs)))
		return
	}
	if user.Has("password") {
		if err := h.actions.HashPassword(user); err != nil {
			writeErr(w, err)
			return
		}
	}
	user.Set("id", id) // lets the owner tier match this instance

	token := middleware.GetBearerToken(r.Context())
	if err := h.actions.Update(r.Context(), token, userParams(), user, "id = ?", id); err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, "User information updated")
}

// Delete removes one user.
// DELETE /api/v1/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	user := record.Users.New()
	user.Set("id", id)

	token := middleware.GetBearerToken(r.Context())
	if err := h.actions.Delete(r.Context(), token, userParams(), user); err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("User with id %d deleted", id))
}

// Photos lists the photos uploaded by one user.
// GET /api/v1/users/{id}/photos
func (h *UserHandler) Photos(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	token := middleware.GetBearerToken(r.Context())
	recs, err := h.actions.Get(r.Context(), token, authz.Params{OwnerField: "uploaded_by"},
		record.Photos, "*", "uploaded_by = ?", id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if recs == nil {
		recs = []*record.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}
