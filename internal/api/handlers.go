package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maltedev/boiler-scraper/internal/database"
	"github.com/maltedev/boiler-scraper/internal/jobs"
	"github.com/maltedev/boiler-scraper/internal/models"
	"github.com/maltedev/boiler-scraper/internal/storage"
)

const (
	defaultRunLimit    = 20
	defaultBoilerLimit = 50
	maxLimit           = 500

	pendingWarnThreshold    = 1000
	deadLetterFailThreshold = 100
)

type RunService interface {
	Start(ctx context.Context, trigger string) (*models.Run, error)
	Active() *models.Run
	Get(ctx context.Context, id uuid.UUID) (*models.Run, error)
	List(ctx context.Context, limit int) ([]*models.Run, error)
}

type BoilerReader interface {
	FindByName(ctx context.Context, name string) (*models.Boiler, error)
	List(ctx context.Context, limit, offset int) ([]*models.Boiler, error)
	Count(ctx context.Context) (int64, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type OutboxStatsReader interface {
	Stats(ctx context.Context) (database.OutboxStats, error)
}

type Handlers struct {
	runs    RunService
	boilers BoilerReader
	db      Pinger
	outbox  OutboxStatsReader
	logger  *slog.Logger
}

func NewHandlers(runs RunService, boilers BoilerReader, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:    runs,
		boilers: boilers,
		logger:  logger.With("component", "api"),
	}
}

// WithHealth adds database and outbox checks to /health. Both may be nil
// when the file store is used.
func (h *Handlers) WithHealth(db Pinger, outbox OutboxStatsReader) *Handlers {
	h.db = db
	h.outbox = outbox
	return h
}

// StartRunResponse represents the run creation response
type StartRunResponse struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// StartRun queues a new scrape.
func (h *Handlers) StartRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.Start(r.Context(), "api")
	if errors.Is(err, jobs.ErrRunInProgress) {
		h.respondError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.logger.Error("failed to start run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to start run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, StartRunResponse{
		RunID:   run.ID.String(),
		Status:  string(run.Status),
		Message: "Run queued",
	})
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run ID")
		return
	}

	run, err := h.runs.Get(r.Context(), id)
	if isNotFound(err) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", "run_id", id, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryLimit(w, r, defaultRunLimit)
	if !ok {
		return
	}

	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}

	h.respondJSON(w, http.StatusOK, runs)
}

// GetBoilers returns one boiler when ?name= is given, a page of boilers
// otherwise.
func (h *Handlers) GetBoilers(w http.ResponseWriter, r *http.Request) {
	if name := r.URL.Query().Get("name"); name != "" {
		b, err := h.boilers.FindByName(r.Context(), name)
		if isNotFound(err) {
			h.respondError(w, http.StatusNotFound, "boiler not found")
			return
		}
		if err != nil {
			h.logger.Error("failed to get boiler", "name", name, "error", err)
			h.respondError(w, http.StatusInternalServerError, "failed to get boiler")
			return
		}
		h.respondJSON(w, http.StatusOK, b)
		return
	}

	limit, ok := h.queryLimit(w, r, defaultBoilerLimit)
	if !ok {
		return
	}
	offset, ok := h.queryInt(w, r, "offset", 0, 0)
	if !ok {
		return
	}

	boilers, err := h.boilers.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list boilers", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list boilers")
		return
	}
	if boilers == nil {
		boilers = []*models.Boiler{}
	}

	h.respondJSON(w, http.StatusOK, boilers)
}

// Stats represents catalog and run statistics
type Stats struct {
	Boilers   int64                 `json:"boilers"`
	ActiveRun *models.Run           `json:"active_run,omitempty"`
	LastRun   *models.Run           `json:"last_run,omitempty"`
	Outbox    *database.OutboxStats `json:"outbox,omitempty"`
}

func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.boilers.Count(ctx)
	if err != nil {
		h.logger.Error("failed to get stats", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	stats := Stats{Boilers: count, ActiveRun: h.runs.Active()}

	if recent, err := h.runs.List(ctx, 1); err != nil {
		h.logger.Warn("failed to read last run", "error", err)
	} else if len(recent) > 0 {
		stats.LastRun = recent[0]
	}

	if h.outbox != nil {
		if outbox, err := h.outbox.Stats(ctx); err != nil {
			h.logger.Warn("failed to read outbox stats", "error", err)
		} else {
			stats.Outbox = &outbox
		}
	}

	h.respondJSON(w, http.StatusOK, stats)
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	health := map[string]any{"status": "ok"}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Error("database health check failed", "error", err)
			health["status"] = "error"
			health["message"] = "database unreachable"
			h.respondJSON(w, http.StatusServiceUnavailable, health)
			return
		}
	}

	if h.outbox != nil {
		stats, err := h.outbox.Stats(ctx)
		if err != nil {
			h.logger.Warn("failed to read outbox stats", "error", err)
		} else {
			health["outbox"] = stats
			if stats.Pending > pendingWarnThreshold {
				health["status"] = "warning"
				health["message"] = "High number of pending outbox events"
			}
			if stats.DeadLetter > deadLetterFailThreshold {
				health["status"] = "error"
				health["message"] = "High number of dead letter events"
				status = http.StatusServiceUnavailable
			}
		}
	}

	h.respondJSON(w, status, health)
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound) || errors.Is(err, storage.ErrNotFound)
}

// queryLimit reads a page size of at least 1, capped at maxLimit.
func (h *Handlers) queryLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	n, ok := h.queryInt(w, r, "limit", def, 1)
	return min(n, maxLimit), ok
}

// queryInt reads an integer parameter no smaller than lo. It writes a 400
// and returns false on bad input.
func (h *Handlers) queryInt(w http.ResponseWriter, r *http.Request, key string, def, lo int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo {
		h.respondError(w, http.StatusBadRequest, "invalid "+key)
		return 0, false
	}
	return n, true
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
