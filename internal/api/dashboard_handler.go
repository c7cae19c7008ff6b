package api

import (
	"alcyxob/gym-sync/internal/domain"
	"alcyxob/gym-sync/internal/service"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DashboardHandler serves the shared occupancy views: the live aggregate
// (snapshot and push stream) and the admin listing of everyone currently
// checked in.
type DashboardHandler struct {
	aggregator     *service.Aggregator
	checkInService service.CheckInService
	directory      service.DirectoryService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(aggregator *service.Aggregator, checkInService service.CheckInService, directory service.DirectoryService) *DashboardHandler {
	return &DashboardHandler{
		aggregator:     aggregator,
		checkInService: checkInService,
		directory:      directory,
	}
}

// GetAggregate handles GET /dashboard: the current occupancy snapshot.
func (h *DashboardHandler) GetAggregate(c *gin.Context) {
	c.JSON(http.StatusOK, h.aggregator.Current())
}

// StreamAggregate handles GET /dashboard/stream: a server-sent-event stream
// of occupancy snapshots, starting with the current one. The subscription is
// released when the client disconnects.
func (h *DashboardHandler) StreamAggregate(c *gin.Context) {
	snapshots, cancel := h.aggregator.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case agg, ok := <-snapshots:
			if !ok {
				return false
			}
			c.SSEvent("aggregate", agg)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// --- Admin listing ---

type AdminCheckInEntry struct {
	SubjectID   string             `json:"subjectId"`
	Name        string             `json:"name"`
	MuscleGroup domain.MuscleGroup `json:"muscleGroup"`
	ObservedAt  time.Time          `json:"observedAt"`
}

// ListCheckIns handles GET /admin/checkins: every live check-in joined with
// the member's display name, newest first.
func (h *DashboardHandler) ListCheckIns(c *gin.Context) {
	checkIns, err := h.checkInService.ListCurrent(c.Request.Context())
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to list check-ins")
		return
	}

	entries := make([]AdminCheckInEntry, 0, len(checkIns))
	for _, ci := range checkIns {
		entries = append(entries, AdminCheckInEntry{
			SubjectID:   ci.SubjectID,
			Name:        h.directory.DisplayName(c.Request.Context(), ci.SubjectID),
			MuscleGroup: ci.MuscleGroup,
			ObservedAt:  ci.ObservedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"checkIns": entries})
}
