package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"sync"
	"time"

	"editorcore/internal/domain"
	"editorcore/internal/infra"
	"editorcore/internal/ledger"
	"editorcore/internal/reconcile"
	"editorcore/internal/segmentation"
	"editorcore/internal/storage"
	"editorcore/internal/trajectory"
)

// JobSubmitter starts generation jobs.
type JobSubmitter interface {
	Submit(ctx context.Context, req ledger.SubmitRequest) (*domain.GenerationJob, error)
}

// Reconciler applies provider notifications and answers status polls.
type Reconciler interface {
	HandleNotification(ctx context.Context, r *http.Request) (*reconcile.Ack, error)
	Status(ctx context.Context, runID string) (*reconcile.StatusView, error)
}

type App struct {
	Jobs           JobSubmitter
	Reconciler     Reconciler
	Store          *storage.FileStore
	Logger         infra.Logger
	SegmentSize    int
	MaxUploadBytes int64
	Limits         Limits

	// Selections holds per-workbench running selections. Nil gets a
	// default-sized store on first use.
	Selections *segmentation.Selections

	selectionsOnce sync.Once
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: message, Code: code})
}

// decode reads a JSON body bounded by MaxUploadBytes.
func (a *App) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	limit := a.MaxUploadBytes
	if limit <= 0 {
		limit = 20 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return false
	}
	return true
}

// fail maps domain and package sentinel errors onto HTTP responses.
func (a *App) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
	case errors.Is(err, domain.ErrDispatchFailure):
		a.error(w, http.StatusBadGateway, "dispatch_failed", "generation could not start")
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, trajectory.ErrInvalidArgument):
		a.error(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, domain.ErrLimitExceeded), errors.Is(err, segmentation.ErrImageTooLarge):
		a.error(w, http.StatusUnprocessableEntity, "limit_exceeded", err.Error())
	case errors.Is(err, segmentation.ErrInvalidRegion):
		a.error(w, http.StatusUnprocessableEntity, "invalid_region", err.Error())
	case errors.Is(err, segmentation.ErrInvalidDimensions):
		a.error(w, http.StatusUnprocessableEntity, "invalid_dimensions", err.Error())
	default:
		a.Logger.Error().Err(err).Msg("request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (a *App) selections() *segmentation.Selections {
	a.selectionsOnce.Do(func() {
		if a.Selections == nil {
			a.Selections = segmentation.NewSelections(256, 128<<20, 30*time.Minute)
		}
	})
	return a.Selections
}

// decodeImage decodes a request image within the pixel limit. It writes the
// error response itself and reports whether decoding succeeded.
func (a *App) decodeImage(w http.ResponseWriter, encoded string) (image.Image, bool) {
	src, err := segmentation.DecodeBase64ImageMax(encoded, a.Limits.withDefaults().MaxImagePixels)
	if errors.Is(err, segmentation.ErrImageTooLarge) {
		a.fail(w, err)
		return nil, false
	}
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_image", err.Error())
		return nil, false
	}
	return src, true
}
