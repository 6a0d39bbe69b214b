package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/gamesync/internal/cache"
	"github.com/jonesrussell/gamesync/internal/logger"
	"github.com/jonesrussell/gamesync/internal/run"
	"github.com/jonesrussell/gamesync/internal/snapshot"
	"github.com/jonesrussell/gamesync/internal/storage"
)

// Handler serves status reads straight from the data directory. Every
// request re-reads the files, so responses reflect a run in progress
// without sharing any state with it.
type Handler struct {
	paths           *storage.Paths
	sources         []string
	quarantineAfter int
	log             logger.Interface
}

// HandlerParams holds the parameters for creating a Handler.
type HandlerParams struct {
	Paths           *storage.Paths
	Sources         []string
	QuarantineAfter int
	Logger          logger.Interface
}

// NewHandler creates a status handler.
func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		paths:           p.Paths,
		sources:         p.Sources,
		quarantineAfter: p.QuarantineAfter,
		log:             p.Logger,
	}
}

// SourceStatus is one source's row in the status response.
type SourceStatus struct {
	Source      string `json:"source"`
	Total       int    `json:"total"`
	Success     int    `json:"success"`
	Failed      int    `json:"failed"`
	Quarantined int    `json:"quarantined"`
	Ledger      int    `json:"ledger"`
}

// Status handles GET /api/v1/status.
func (h *Handler) Status(c *gin.Context) {
	statuses := make([]SourceStatus, 0, len(h.sources))
	for _, source := range h.sources {
		stats := cache.New(h.paths.StatusCache(source), h.log).Stats(h.quarantineAfter)
		statuses = append(statuses, SourceStatus{
			Source:      source,
			Total:       stats.Total,
			Success:     stats.Success,
			Failed:      stats.Failed,
			Quarantined: stats.Quarantined,
			Ledger:      ledgerSize(h.paths.FailedLedger(source)),
		})
	}

	c.JSON(http.StatusOK, gin.H{"sources": statuses})
}

// Runs handles GET /api/v1/runs. It returns the retained run history,
// oldest first; no history yet is an empty list, not an error.
func (h *Handler) Runs(c *gin.Context) {
	history, err := run.LoadHistory(h.paths.RunHistory())
	if err != nil {
		history = []run.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": history})
}

// LatestRun handles GET /api/v1/runs/latest.
func (h *Handler) LatestRun(c *gin.Context) {
	summary, err := run.LoadLatest(h.paths.RunHistory())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// ledgerSize counts rows in a failed-ID ledger. A missing or unreadable
// ledger counts as empty.
func ledgerSize(path string) int {
	s, err := snapshot.ReadFile(path)
	if err != nil {
		return 0
	}
	return s.Len()
}
