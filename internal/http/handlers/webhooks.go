package handlers

import (
	"errors"
	"net/http"

	"editorcore/internal/domain"
)

// ComputeWebhook acknowledges a provider notification only once it has been
// persisted. Anything other than 2xx makes the provider retry.
func (a *App) ComputeWebhook(w http.ResponseWriter, r *http.Request) {
	ack, err := a.Reconciler.HandleNotification(r.Context(), r)
	switch {
	case err == nil:
		a.json(w, http.StatusOK, map[string]any{"received": true, "applied": ack.Applied})
	case errors.Is(err, domain.ErrInvalidSignature):
		a.error(w, http.StatusBadRequest, "invalid_signature", "signature verification failed")
	case errors.Is(err, domain.ErrMalformedPayload):
		a.error(w, http.StatusBadRequest, "malformed_payload", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "unknown_run", "no job for run id")
	default:
		a.Logger.Error().Err(err).Msg("webhook could not be persisted")
		a.error(w, http.StatusServiceUnavailable, "store_unavailable", "notification not persisted, retry later")
	}
}
