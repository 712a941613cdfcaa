package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
	"github.com/secmon-lab/safetydocs/pkg/utils/safe"
)

type documentResponse struct {
	ID               model.DocumentID   `json:"id"`
	DocumentType     types.DocumentType `json:"documentType"`
	Title            string             `json:"title"`
	OrganizationName string             `json:"organizationName"`
	Field            string             `json:"field"`
	Markdown         string             `json:"markdown,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
}

func toDocumentResponse(d *model.GeneratedDocument, withBody bool) *documentResponse {
	resp := &documentResponse{
		ID:               d.ID,
		DocumentType:     d.DocumentType,
		Title:            d.Title,
		OrganizationName: d.OrganizationName,
		Field:            d.Field,
		CreatedAt:        d.CreatedAt,
	}
	if withBody {
		resp.Markdown = d.Markdown
	}
	return resp
}

func (s *Server) listDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, err)
		return
	}

	input := usecase.ListDocumentsInput{Limit: limit, Offset: offset}
	if v := r.URL.Query().Get("type"); v != "" {
		docType, err := types.ParseDocumentType(v)
		if err != nil {
			docType = types.DocumentType(v)
		}
		input.DocumentType = docType
	}

	docs, total, err := s.uc.Document.ListDocuments(r.Context(), chi.URLParam(r, "workspaceID"), input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]*documentResponse, len(docs))
	for i, d := range docs {
		items[i] = toDocumentResponse(d, false)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"documents": items,
		"total":     total,
	})
}

func (s *Server) getDocumentHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := s.uc.Document.GetDocument(r.Context(), chi.URLParam(r, "workspaceID"), model.DocumentID(chi.URLParam(r, "documentID")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toDocumentResponse(doc, true))
}

func (s *Server) getDocumentMarkdownHandler(w http.ResponseWriter, r *http.Request) {
	doc, err := s.uc.Document.GetDocument(r.Context(), chi.URLParam(r, "workspaceID"), model.DocumentID(chi.URLParam(r, "documentID")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	safe.Write(r.Context(), w, []byte(doc.Markdown))
}

func (s *Server) deleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.uc.Document.DeleteDocument(r.Context(), chi.URLParam(r, "workspaceID"), model.DocumentID(chi.URLParam(r, "documentID"))); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
