package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/types"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
	"github.com/secmon-lab/safetydocs/pkg/utils/errutil"
	"github.com/secmon-lab/safetydocs/pkg/utils/safe"
)

// DefaultMaxBodyBytes bounds request bodies other than reference uploads
const DefaultMaxBodyBytes = 1 << 20

type Server struct {
	router       *chi.Mux
	uc           *usecase.UseCases
	maxBodyBytes int64
}

type Options func(*Server)

// WithMaxBodyBytes overrides DefaultMaxBodyBytes
func WithMaxBodyBytes(n int64) Options {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router:       r,
		uc:           uc,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(accessLogger)
	r.Use(sentryHub)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		safe.Write(r.Context(), w, []byte("ok"))
	})

	r.Get("/api/workspaces", s.workspacesHandler)
	r.Get("/api/document-types", s.documentTypesHandler)

	r.Route("/api/ws/{workspaceID}", func(r chi.Router) {
		r.Post("/generate/{docType}", s.generateHandler)
		r.Post("/render/{docType}", s.renderHandler)
		r.Post("/check/{docType}", s.checkHandler)
		r.Post("/hazards/suggest", s.suggestHazardsHandler)
		r.Post("/advice", s.adviceHandler)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.listDocumentsHandler)
			r.Get("/{documentID}", s.getDocumentHandler)
			r.Get("/{documentID}/markdown", s.getDocumentMarkdownHandler)
			r.Delete("/{documentID}", s.deleteDocumentHandler)
		})

		r.Route("/references", func(r chi.Router) {
			r.Post("/", s.addReferenceHandler)
			r.Get("/{referenceID}", s.getReferenceHandler)
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) workspacesHandler(w http.ResponseWriter, r *http.Request) {
	type workspaceResponse struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Language string `json:"language"`
	}
	type response struct {
		Workspaces []workspaceResponse `json:"workspaces"`
	}

	entries := s.uc.Workspaces().List()
	resp := response{
		Workspaces: make([]workspaceResponse, len(entries)),
	}
	for i, e := range entries {
		resp.Workspaces[i] = workspaceResponse{
			ID:       e.Workspace.ID,
			Name:     e.Workspace.Name,
			Language: e.GenerationLanguage(),
		}
	}

	data, err := json.Marshal(resp)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal workspaces response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	safe.Write(r.Context(), w, data)
}

func (s *Server) documentTypesHandler(w http.ResponseWriter, r *http.Request) {
	type documentTypeResponse struct {
		ID       types.DocumentType `json:"id"`
		Label    string             `json:"label"`
		Storable bool               `json:"storable"`
	}

	all := types.AllDocumentTypes()
	resp := make([]documentTypeResponse, len(all))
	for i, t := range all {
		resp[i] = documentTypeResponse{ID: t, Label: t.Label(), Storable: t.ProducesDocument()}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"documentTypes": resp})
}
