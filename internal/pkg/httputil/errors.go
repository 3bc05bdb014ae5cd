package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/ctxlog"
)

// StatusClientClosedRequest is returned when the caller went away before the
// store answered.
const StatusClientClosedRequest = 499

// ErrorMapping maps a sentinel error to an HTTP status. An empty Message
// exposes err.Error().
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
}

// HandleError writes the response of the first mapping matching err.
// Unmapped errors are logged and answered with 500.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if !errors.Is(err, m.Error) {
			continue
		}
		msg := m.Message
		if msg == "" {
			msg = err.Error()
		}
		ctxlog.FromContext(ctx).Debug("request rejected", "status", m.Status, "error", err)
		Error(w, m.Status, msg)
		return
	}

	if errors.Is(err, context.Canceled) {
		ctxlog.FromContext(ctx).Warn("request canceled", "error", err)
		Error(w, StatusClientClosedRequest, "request canceled")
		return
	}

	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
