package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
	"github.com/secmon-lab/safetydocs/pkg/domain/model"
	"github.com/secmon-lab/safetydocs/pkg/pipeline"
	"github.com/secmon-lab/safetydocs/pkg/usecase"
	"github.com/secmon-lab/safetydocs/pkg/utils/errutil"
	"github.com/secmon-lab/safetydocs/pkg/utils/logging"
	"github.com/secmon-lab/safetydocs/pkg/utils/safe"
)

// retryAfterSeconds is sent with retryable generation failures
const retryAfterSeconds = 5

type errorResponse struct {
	Error     string           `json:"error"`
	Kind      string           `json:"kind"`
	Retryable bool             `json:"retryable,omitempty"`
	Detail    *pipeline.Detail `json:"detail,omitempty"`
}

// errorStatus maps an error to its HTTP status and public kind
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrWorkspaceNotFound),
		errors.Is(err, usecase.ErrDocumentNotFound),
		errors.Is(err, usecase.ErrReferenceNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, usecase.ErrUnsupportedDocumentType):
		return http.StatusNotFound, "unsupported_document_type"
	case errors.Is(err, usecase.ErrFeatureNotConfigured):
		return http.StatusNotImplemented, "not_configured"
	case errors.Is(err, interfaces.ErrArticleUnavailable):
		return http.StatusUnprocessableEntity, "article_unavailable"
	}

	switch kind := pipeline.Classify(err); kind {
	case pipeline.KindSchemaViolation:
		return http.StatusBadRequest, kind.String()
	case pipeline.KindOutputSchemaViolation, pipeline.KindGeneration:
		return http.StatusBadGateway, kind.String()
	case pipeline.KindBinding:
		return http.StatusInternalServerError, kind.String()
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError writes err as a JSON error response. Server side failures are
// logged with their stack and reported; caller errors only get a warning.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status, kind := errorStatus(err)

	resp := errorResponse{
		Error: err.Error(),
		Kind:  kind,
	}
	if detail := pipeline.DetailOf(err); detail != (pipeline.Detail{}) {
		resp.Detail = &detail
	}

	if status >= http.StatusInternalServerError {
		errutil.Handle(ctx, err, "request failed")
		resp.Error = publicMessage(kind, status)
	} else {
		logging.From(ctx).Warn("request rejected", "status", status, "kind", kind, "error", err.Error())
	}

	if pipeline.Classify(err).Retryable() {
		resp.Retryable = true
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	}

	writeJSON(w, r, status, resp)
}

// publicMessage replaces the message of server side failures, whose
// causes may carry upstream details
func publicMessage(kind string, status int) string {
	switch pipeline.Kind(kind) {
	case pipeline.KindGeneration:
		return "completion service failed"
	case pipeline.KindOutputSchemaViolation:
		return "completion returned an invalid document"
	case pipeline.KindBinding:
		return "failed to build prompt"
	default:
		return http.StatusText(status)
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(r.Context(), w, data)
}

// readBody reads the request body up to limit bytes. An oversized or
// unreadable body is a caller error.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, goerr.Wrap(pipeline.ErrSchemaViolation, "request body too large",
				goerr.V(pipeline.ValuePath, "/"),
				goerr.V(pipeline.ValueConstraint, "maxBytes "+strconv.FormatInt(limit, 10)),
			)
		}
		return nil, goerr.Wrap(pipeline.ErrSchemaViolation, "failed to read request body",
			goerr.V(pipeline.ValuePath, "/"),
		)
	}
	return body, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, goerr.Wrap(pipeline.ErrSchemaViolation, "invalid query parameter",
			goerr.V(pipeline.ValuePath, "?"+name),
			goerr.V(pipeline.ValueConstraint, "non-negative integer"),
		)
	}
	return n, nil
}
