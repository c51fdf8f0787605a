package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/teemow/inboxvault/internal/archive"
	"github.com/teemow/inboxvault/internal/logging"
)

// Runner performs one sync run.
type Runner interface {
	Run(ctx context.Context) (*archive.Result, error)
}

// TriggerHandler runs a sync for every request and reports the archived files.
type TriggerHandler struct {
	runner Runner
	health *HealthChecker
	logger *slog.Logger
}

// NewTriggerHandler creates a handler. health may be nil.
func NewTriggerHandler(runner Runner, health *HealthChecker, logger *slog.Logger) *TriggerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TriggerHandler{runner: runner, health: health, logger: logger}
}

func (h *TriggerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	result, err := h.runner.Run(r.Context())
	if err != nil {
		resp, status := NewErrorResponse(err)
		h.record(resp.Stage, err)
		h.logger.Error("sync request failed",
			logging.Status(logging.StatusError),
			logging.Stage(resp.Stage),
			slog.String("kind", string(resp.Kind)),
			logging.Err(err))
		writeJSON(w, status, resp)
		return
	}

	h.record(string(archive.StageDone), nil)
	if result.NewFiles == nil {
		result = &archive.Result{NewFiles: []archive.SignedFile{}}
	}
	h.logger.Info("sync request served",
		logging.Status(logging.StatusSuccess),
		slog.Int("new_files", len(result.NewFiles)))
	writeJSON(w, http.StatusOK, result)
}

func (h *TriggerHandler) record(stage string, err error) {
	if h.health == nil {
		return
	}
	// A caller hanging up says nothing about the pipeline.
	if errors.Is(err, context.Canceled) {
		return
	}
	h.health.RecordRun(stage, err)
}
