package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"

	"github.com/clintrovert/tasksync/internal/webhook"
)

// GitHub caps webhook payloads at 25 MB
const maxWebhookBytes = 25 << 20

// GitHubWebhook handles POST /webhooks/github. Store failures answer 500 so
// GitHub redelivers; every handled outcome answers 200 with the result.
func (h *Handler) GitHubWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	result, err := h.dispatcher.Dispatch(r.Context(), webhook.Delivery{
		Event:      r.Header.Get(github.EventTypeHeader),
		DeliveryID: r.Header.Get(github.DeliveryIDHeader),
		Signature:  r.Header.Get(github.SHA256SignatureHeader),
		Body:       body,
	})
	switch {
	case errors.Is(err, webhook.ErrInvalidSignature):
		writeError(w, http.StatusForbidden, "Invalid signature")
	case errors.Is(err, webhook.ErrMalformedPayload):
		writeError(w, http.StatusBadRequest, "Malformed payload")
	case err != nil:
		h.logger.Error("webhook delivery failed",
			zap.String("delivery_id", r.Header.Get(github.DeliveryIDHeader)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "Internal error")
	default:
		writeJSON(w, http.StatusOK, result)
	}
}
