package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
)

type referenceResponse struct {
	ID          model.ReferenceID `json:"id"`
	Name        string            `json:"name"`
	ContentType string            `json:"contentType"`
	Text        string            `json:"text,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// addReferenceHandler stores the raw request body as reference text. The
// display name comes from the name query parameter.
func (s *Server) addReferenceHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, usecase.MaxReferenceBytes+1)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ref, err := s.uc.Reference.AddReference(r.Context(), chi.URLParam(r, "workspaceID"), usecase.AddReferenceInput{
		Name:        r.URL.Query().Get("name"),
		ContentType: r.Header.Get("Content-Type"),
		Data:        body,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, referenceResponse{
		ID:          ref.ID,
		Name:        ref.Name,
		ContentType: ref.ContentType,
		CreatedAt:   ref.CreatedAt,
	})
}

func (s *Server) getReferenceHandler(w http.ResponseWriter, r *http.Request) {
	ref, err := s.uc.Reference.GetReference(r.Context(), chi.URLParam(r, "workspaceID"), model.ReferenceID(chi.URLParam(r, "referenceID")))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, referenceResponse{
		ID:          ref.ID,
		Name:        ref.Name,
		ContentType: ref.ContentType,
		Text:        ref.Text,
		CreatedAt:   ref.CreatedAt,
	})
}
