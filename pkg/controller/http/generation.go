package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
	"github.com/secmon-lab/safetydocs/pkg/utils/errutil"
	"github.com/secmon-lab/safetydocs/pkg/utils/safe"
)

type generateResponse struct {
	DocumentType types.DocumentType `json:"documentType"`
	Field        string             `json:"field"`
	Document     string             `json:"document"`
	Saved        *documentResponse  `json:"saved,omitempty"`
}

func docTypeParam(r *http.Request) (types.DocumentType, error) {
	raw := chi.URLParam(r, "docType")
	docType, err := types.ParseDocumentType(raw)
	if err != nil {
		return "", goerr.Wrap(usecase.ErrUnsupportedDocumentType, "unknown document type",
			goerr.V(usecase.DocumentTypeKey, raw))
	}
	return docType, nil
}

func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	docType, err := docTypeParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var opts usecase.GenerateOptions
	if v := r.URL.Query().Get("save"); v != "" {
		save, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, goerr.Wrap(pipeline.ErrSchemaViolation, "invalid save parameter",
				goerr.V(pipeline.ValuePath, "?save")))
			return
		}
		opts.Save = save
	}

	body, err := readBody(w, r, s.maxBodyBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	got, err := s.uc.Generation.Generate(r.Context(), chi.URLParam(r, "workspaceID"), docType, body, opts)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := generateResponse{
		DocumentType: got.Result.DocumentType,
		Field:        got.Result.Field,
		Document:     got.Result.Document,
	}
	if got.Document != nil {
		resp.Saved = toDocumentResponse(got.Document, false)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) renderHandler(w http.ResponseWriter, r *http.Request) {
	docType, err := docTypeParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := readBody(w, r, s.maxBodyBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	prompt, err := s.uc.Generation.Render(r.Context(), chi.URLParam(r, "workspaceID"), docType, body)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	safe.Write(r.Context(), w, []byte(prompt))
}

func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	docType, err := docTypeParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := readBody(w, r, s.maxBodyBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.uc.Generation.Check(docType, body); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]bool{"valid": true})
}

func (s *Server) suggestHazardsHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.maxBodyBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	got, err := s.uc.Generation.SuggestHazards(r.Context(), chi.URLParam(r, "workspaceID"), body)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if got.Hazards == nil {
		got.Hazards = []model.HazardSuggestion{}
	}
	writeJSON(w, r, http.StatusOK, got)
}

// adviceHandler streams the answer as plain text, flushing every fragment.
// Once streaming has started the status is committed, so a failing stream
// just ends early.
func (s *Server) adviceHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := readBody(w, r, s.maxBodyBytes)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, goerr.Wrap(pipeline.ErrSchemaViolation, "invalid advice request",
			goerr.V(pipeline.ValuePath, "/"),
			goerr.V(pipeline.ValueConstraint, err.Error()),
		))
		return
	}

	stream, err := s.uc.Generation.Advice(ctx, chi.URLParam(r, "workspaceID"), req.Query)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	safe.Flush(w)

	for fragment := range stream {
		if fragment.Err != nil {
			errutil.Handle(ctx, fragment.Err, "advice stream failed")
			continue
		}
		if !safe.Write(ctx, w, []byte(fragment.Text)) {
			continue
		}
		safe.Flush(w)
	}
}
