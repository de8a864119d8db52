package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/picstore/picstore/internal/action"
	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/auth"
	"github.com/picstore/picstore/internal/authz"
	"github.com/picstore/picstore/internal/record"
	"github.com/picstore/picstore/internal/server/middleware"
)

// PhotoHandler serves the photos resource. Ownership is encoded by the
// uploaded_by column.
type PhotoHandler struct {
	actions *action.Actions
	tokens  *auth.Service
}

// NewPhotoHandler creates a PhotoHandler.
func NewPhotoHandler(actions *action.Actions, tokens *auth.Service) *PhotoHandler {
	return &PhotoHandler{actions: actions, tokens: tokens}
}

func photoParams() authz.Params {
	return authz.Params{OwnerField: "uploaded_by"}
}

// List returns all photos the caller may read.
// GET /api/v1/photos
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	token := middleware.GetBearerToken(r.Context())
	recs, err := h.actions.Get(r.Context(), token, photoParams(), record.Photos, "*", "")
	if err != nil {
		writeErr(w, err)
		return
	}
	if recs == nil {
		recs = []*record.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// Get returns one photo by id.
// GET /api/v1/photos/{id}
func (h *PhotoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	token := middleware.GetBearerToken(r.Context())
	recs, err := h.actions.Get(r.Context(), token, photoParams(), record.Photos, "*", "id = ?", id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if len(recs) == 0 {
		writeErr(w, apierr.NotFound("Photo with that id is not found"))
		return
	}
	writeJSON(w, http.StatusOK, recs[len(recs)-1])
}

// Create stores photo metadata. upload_time and uploaded_by are stamped
// server-side; uploaded_by comes from the verified caller identity, never
// from the payload.
// POST /api/v1/photos
func (h *PhotoHandler) Create(w http.ResponseWriter, r *http.Request) {
	photo, err := decodeRecord(r, record.Photos)
	if err != nil {
		writeErr(w, err)
		return
	}

	token := middleware.GetBearerToken(r.Context())
	if token != "" {
		userID, _, err := h.tokens.Verify(r.Context(), token)
		if err != nil {
			writeErr(w, err)
			return
		}
		photo.Set("uploaded_by", userID)
	} else {
		photo.Erase("uploaded_by")
	}
	photo.Set("upload_time", time.Now().Format("2006-01-02 15:04:05"))

	if errs := photo.Validate(); len(errs) > 0 {
		writeErr(w, apierr.Validation(validationInfo(errs)))
		return
	}

	if err := h.actions.Insert(r.Context(), token, photoParams(), photo); err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, "Photo successfully uploaded")
}

// Update rewrites the writable metadata of one photo.
// PUT /api/v1/photos/{id}
func (h *PhotoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	photo, err := decodeRecord(r, record.Photos)
	if err != nil {
		writeErr(w, err)
		return
	}
	if errs := dropRequired(photo.Validate()); len(errs) > 0 {
		writeErr(w, apierr.Validation(validationInfo(errs)))
		return
	}

	// The owner tier matches on uploaded_by, which the payload must not
	// influence; resolve it from the stored row.
	token := middleware.GetBearerToken(r.Context())
	photo.Erase("uploaded_by")
	owner, found, err := h.ownerOf(r, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !found {
		writeErr(w, apierr.InvalidParams("Photo with that id does not exist"))
		return
	}
	if owner != nil {
		photo.Set("uploaded_by", *owner)
	}
	photo.Set("id", id)

	if err := h.actions.Update(r.Context(), token, photoParams(), photo, "id = ?", id); err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, "Photo information updated")
}

// Delete removes one photo.
// DELETE /api/v1/photos/{id}
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeErr(w, err)
		return
	}
	photo := record.Photos.New()
	photo.Set("id", id)
	owner, found, err := h.ownerOf(r, id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if !found {
		writeErr(w, apierr.InvalidParams("Photo with that id does not exist"))
		return
	}
	if owner != nil {
		photo.Set("uploaded_by", *owner)
	}

	token := middleware.GetBearerToken(r.Context())
	if err := h.actions.Delete(r.Context(), token, photoParams(), photo); err != nil {
		writeErr(w, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("Photo with id %d deleted", id))
}

// ownerOf reads the uploaded_by column of a stored photo.
func (h *PhotoHandler) ownerOf(r *http.Request, id int64) (*int64, bool, error) {
	return h.actions.Owner(r.Context(), record.Photos, "uploaded_by", id)
}
