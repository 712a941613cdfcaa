package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	server "github.com/secmon-lab/safetydocs/pkg/controller/http"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
	"github.com/secmon-lab/safetydocs/pkg/repository/memory"
	"github.com/secmon-lab/safetydocs/pkg/service/reference"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
)

type fakeInvoker struct {
	mu     sync.Mutex
	calls  int
	reply  func(out pipeline.OutputSpec) (string, error)
	stream []string
}

func (f *fakeInvoker) Invoke(ctx context.Context, prompt string, out pipeline.OutputSpec) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.reply != nil {
		return f.reply(out)
	}
	raw, _ := json.Marshal(map[string]string{out.Field: "# Safe Work Procedure\n\nIsolate first."})
	return string(raw), nil
}

func (f *fakeInvoker) Stream(ctx context.Context, prompt string) (<-chan pipeline.Fragment, error) {
	ch := make(chan pipeline.Fragment, len(f.stream))
	for _, s := range f.stream {
		ch <- pipeline.Fragment{Text: s}
	}
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T, inv pipeline.Invoker, opts ...usecase.Option) *server.Server {
	t.Helper()

	registry := model.NewWorkspaceRegistry()
	registry.Register(&model.WorkspaceEntry{
		Workspace:    model.Workspace{ID: "acme", Name: "Acme"},
		Organization: "Acme Construction",
		Language:     "English",
	})

	base := []usecase.Option{
		usecase.WithWorkspaceRegistry(registry),
		usecase.WithReferenceStore(reference.NewMemoryStore()),
		usecase.WithClock(func() time.Time { return time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC) }),
	}
	uc, err := usecase.New(memory.New(), inv, append(base, opts...)...)
	gt.NoError(t, err).Required()
	return server.New(uc)
}

func do(t *testing.T, srv http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &v)).Required()
	return v
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Retryable bool   `json:"retryable"`
	Detail    struct {
		Path string `json:"path"`
	} `json:"detail"`
}

func swpRequest() []byte {
	raw, _ := json.Marshal(map[string]any{
		"organizationName":    "Acme Construction",
		"title":               "Disc change",
		"reviewDate":          "2026-09-30",
		"taskDescription":     "Changing a grinding disc",
		"steps":               "Isolate, remove guard, swap disc",
		"ppe":                 "Face shield",
		"hazards":             "Disc burst",
		"emergencyProcedures": "First aider on call",
	})
	return raw
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &fakeInvoker{})
	w := do(t, srv, http.MethodGet, "/health", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.Value(t, w.Body.String()).Equal("ok")
}

func TestWorkspacesAndDocumentTypes(t *testing.T) {
	srv := newTestServer(t, &fakeInvoker{})

	w := do(t, srv, http.MethodGet, "/api/workspaces", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	ws := decode[struct {
		Workspaces []struct {
			ID       string `json:"id"`
			Language string `json:"language"`
		} `json:"workspaces"`
	}](t, w)
	gt.Array(t, ws.Workspaces).Length(1).Required()
	gt.Value(t, ws.Workspaces[0].ID).Equal("acme")
	gt.Value(t, ws.Workspaces[0].Language).Equal("English")

	w = do(t, srv, http.MethodGet, "/api/document-types", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	dt := decode[struct {
		DocumentTypes []struct {
			ID       string `json:"id"`
			Storable bool   `json:"storable"`
		} `json:"documentTypes"`
	}](t, w)
	gt.Array(t, dt.DocumentTypes).Length(7)
}

func TestGenerateAndLibrary(t *testing.T) {
	srv := newTestServer(t, &fakeInvoker{})

	w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/safe-work-procedure?save=true", swpRequest())
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gen := decode[struct {
		DocumentType string `json:"documentType"`
		Field        string `json:"field"`
		Document     string `json:"document"`
		Saved        *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"saved"`
	}](t, w)
	gt.Value(t, gen.DocumentType).Equal("safe_work_procedure")
	gt.Value(t, gen.Field).Equal("safeWorkProcedure")
	gt.String(t, gen.Document).Contains("Isolate first.")
	gt.Value(t, gen.Saved).NotNil().Required()
	gt.Value(t, gen.Saved.Title).Equal("Disc change")

	w = do(t, srv, http.MethodGet, "/api/ws/acme/documents/?type=safe_work_procedure", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	list := decode[struct {
		Documents []struct {
			ID       string `json:"id"`
			Markdown string `json:"markdown"`
		} `json:"documents"`
		Total int `json:"total"`
	}](t, w)
	gt.Value(t, list.Total).Equal(1)
	gt.Array(t, list.Documents).Length(1).Required()
	gt.Value(t, list.Documents[0].ID).Equal(gen.Saved.ID)
	gt.Value(t, list.Documents[0].Markdown).Equal("")

	w = do(t, srv, http.MethodGet, "/api/ws/acme/documents/"+gen.Saved.ID, nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains("Isolate first.")

	w = do(t, srv, http.MethodGet, "/api/ws/acme/documents/"+gen.Saved.ID+"/markdown", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Header().Get("Content-Type")).Contains("text/markdown")
	gt.Value(t, w.Body.String()).Equal(gen.Document)

	w = do(t, srv, http.MethodDelete, "/api/ws/acme/documents/"+gen.Saved.ID, nil)
	gt.Value(t, w.Code).Equal(http.StatusNoContent)

	w = do(t, srv, http.MethodGet, "/api/ws/acme/documents/"+gen.Saved.ID, nil)
	gt.Value(t, w.Code).Equal(http.StatusNotFound)
	gt.Value(t, decode[errorBody](t, w).Kind).Equal("not_found")
}

func TestGenerateWithoutSave(t *testing.T) {
	srv := newTestServer(t, &fakeInvoker{})

	w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/safe_work_procedure", swpRequest())
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.Bool(t, strings.Contains(w.Body.String(), `"saved"`)).False()

	w = do(t, srv, http.MethodGet, "/api/ws/acme/documents/", nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Body.String()).Contains(`"total":0`)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("unknown document type", func(t *testing.T) {
		srv := newTestServer(t, &fakeInvoker{})
		w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/toolbox-talk", swpRequest())
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
		gt.Value(t, decode[errorBody](t, w).Kind).Equal("unsupported_document_type")
	})

	t.Run("hazard suggestion is not a document", func(t *testing.T) {
		srv := newTestServer(t, &fakeInvoker{})
		w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/hazard_suggestion", []byte(`{"title":"x"}`))
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
	})

	t.Run("unknown workspace", func(t *testing.T) {
		srv := newTestServer(t, &fakeInvoker{})
		w := do(t, srv, http.MethodPost, "/api/ws/nowhere/generate/safe_work_procedure", swpRequest())
		gt.Value(t, w.Code).Equal(http.StatusNotFound)
		gt.Value(t, decode[errorBody](t, w).Kind).Equal("not_found")
	})

	t.Run("invalid input", func(t *testing.T) {
		inv := &fakeInvoker{}
		srv := newTestServer(t, inv)
		w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/safe_work_procedure", []byte(`{"title":"x"}`))
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		body := decode[errorBody](t, w)
		gt.Value(t, body.Kind).Equal("schema_violation")
		gt.Bool(t, body.Retryable).False()
		gt.Value(t, inv.calls).Equal(0)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		srv := newTestServer(t, &fakeInvoker{})
		w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/safe_work_procedure", []byte(`{`))
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	})

	t.Run("invalid save flag", func(t *testing.T) {
		srv := newTestServer(t, &fakeInvoker{})
		w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/safe_work_procedure?save=maybe", swpRequest())
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		gt.Value(t, decode[errorBody](t, w).Detail.Path).Equal("?save")
	})

	t.Run("completion failure is retryable", func(t *testing.T) {
		srv := newTestServer(t, &fakeInvoker{reply: func(pipeline.OutputSpec) (string, error) {
			return "", goerr.Wrap(pipeline.ErrGeneration, "upstream said secret-token-123")
		}})
		w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/safe_work_procedure", swpRequest())
		gt.Value(t, w.Code).Equal(http.StatusBadGateway)
		gt.Value(t, w.Header().Get("Retry-After")).Equal("5")
		body := decode[errorBody](t, w)
		gt.Value(t, body.Kind).Equal("generation_error")
		gt.Bool(t, body.Retryable).True()
		gt.Bool(t, strings.Contains(body.Error, "secret-token-123")).False()
	})

	t.Run("malformed reply", func(t *testing.T) {
		srv := newTestServer(t, &fakeInvoker{reply: func(pipeline.OutputSpec) (string, error) {
			return `{"unexpected":true}`, nil
		}})
		w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/safe_work_procedure", swpRequest())
		gt.Value(t, w.Code).Equal(http.StatusBadGateway)
		body := decode[errorBody](t, w)
		gt.Value(t, body.Kind).Equal("output_schema_violation")
		gt.Bool(t, body.Retryable).False()
	})

	t.Run("body too large", func(t *testing.T) {
		inv := &fakeInvoker{}
		registry := model.NewWorkspaceRegistry()
		registry.Register(&model.WorkspaceEntry{Workspace: model.Workspace{ID: "acme"}})
		uc, err := usecase.New(memory.New(), inv, usecase.WithWorkspaceRegistry(registry))
		gt.NoError(t, err).Required()
		srv := server.New(uc, server.WithMaxBodyBytes(16))

		w := do(t, srv, http.MethodPost, "/api/ws/acme/generate/safe_work_procedure", swpRequest())
		gt.Value(t, w.Code).Equal(http.StatusBadRequest)
		gt.Value(t, inv.calls).Equal(0)
	})
}

func TestRenderAndCheck(t *testing.T) {
	inv := &fakeInvoker{}
	srv := newTestServer(t, inv)

	w := do(t, srv, http.MethodPost, "/api/ws/acme/render/safe_work_procedure", swpRequest())
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Header().Get("Content-Type")).Contains("text/plain")
	gt.String(t, w.Body.String()).Contains("Changing a grinding disc")

	w = do(t, srv, http.MethodPost, "/api/ws/acme/check/safe_work_procedure", swpRequest())
	gt.Value(t, w.Code).Equal(http.StatusOK)

	w = do(t, srv, http.MethodPost, "/api/ws/acme/check/safe_work_procedure", []byte(`{}`))
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)

	gt.Value(t, inv.calls).Equal(0)
}

func TestSuggestHazards(t *testing.T) {
	srv := newTestServer(t, &fakeInvoker{reply: func(pipeline.OutputSpec) (string, error) {
		return `{"hazards":[{"hazard":"Fumes","personsAffected":"Welder","controlMeasures":"Extraction"}]}`, nil
	}})

	w := do(t, srv, http.MethodPost, "/api/ws/acme/hazards/suggest", []byte(`{"title":"Welding in a tank"}`))
	gt.Value(t, w.Code).Equal(http.StatusOK)
	got := decode[model.HazardSuggestionResult](t, w)
	gt.Array(t, got.Hazards).Length(1).Required()
	gt.Value(t, got.Hazards[0].Hazard).Equal("Fumes")
}

func TestAdvice(t *testing.T) {
	srv := newTestServer(t, &fakeInvoker{stream: []string{"Wear ", "a ", "harness."}})

	w := do(t, srv, http.MethodPost, "/api/ws/acme/advice", []byte(`{"query":"Is a harness needed at 3m?"}`))
	gt.Value(t, w.Code).Equal(http.StatusOK)
	gt.String(t, w.Header().Get("Content-Type")).Contains("text/plain")
	gt.Value(t, w.Body.String()).Equal("Wear a harness.")

	w = do(t, srv, http.MethodPost, "/api/ws/acme/advice", []byte(`{"query":""}`))
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	gt.Value(t, decode[errorBody](t, w).Detail.Path).Equal("/query")
}

func TestReferences(t *testing.T) {
	srv := newTestServer(t, &fakeInvoker{})

	req := httptest.NewRequest(http.MethodPost, "/api/ws/acme/references/?name=Site+rules", strings.NewReader("No lone working."))
	req.Header.Set("Content-Type", "text/markdown")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	gt.Value(t, w.Code).Equal(http.StatusCreated)

	created := decode[struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		ContentType string `json:"contentType"`
	}](t, w)
	gt.Value(t, created.Name).Equal("Site rules")
	gt.Value(t, created.ContentType).Equal("text/markdown")

	w = do(t, srv, http.MethodGet, "/api/ws/acme/references/"+created.ID, nil)
	gt.Value(t, w.Code).Equal(http.StatusOK)
	body, err := io.ReadAll(w.Body)
	gt.NoError(t, err).Required()
	gt.String(t, string(body)).Contains("No lone working.")

	w = do(t, srv, http.MethodGet, "/api/ws/acme/references/missing", nil)
	gt.Value(t, w.Code).Equal(http.StatusNotFound)

	w = do(t, srv, http.MethodPost, "/api/ws/acme/references/", []byte("text without a name"))
	gt.Value(t, w.Code).Equal(http.StatusBadRequest)
	gt.Value(t, decode[errorBody](t, w).Detail.Path).Equal("/name")
}

func TestReferencesNotConfigured(t *testing.T) {
	registry := model.NewWorkspaceRegistry()
	registry.Register(&model.WorkspaceEntry{Workspace: model.Workspace{ID: "acme"}})
	uc, err := usecase.New(memory.New(), &fakeInvoker{}, usecase.WithWorkspaceRegistry(registry))
	gt.NoError(t, err).Required()
	srv := server.New(uc)

	w := do(t, srv, http.MethodPost, "/api/ws/acme/references/?name=a", []byte("b"))
	gt.Value(t, w.Code).Equal(http.StatusNotImplemented)
	gt.Value(t, decode[errorBody](t, w).Kind).Equal("not_configured")
}
