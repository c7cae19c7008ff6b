package api

import (
	"alcyxob/gym-sync/internal/domain"
	"alcyxob/gym-sync/internal/service"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CheckInHandler exposes the member-facing check-in operations: the presence
// toggle, mid-session retagging, status restore, and the rolling history feed.
type CheckInHandler struct {
	checkInService service.CheckInService
	historyService service.HistoryService
	recentWindow   time.Duration
	weeklyWindow   time.Duration
}

// NewCheckInHandler creates a new CheckInHandler.
func NewCheckInHandler(checkInService service.CheckInService, historyService service.HistoryService, recentWindow, weeklyWindow time.Duration) *CheckInHandler {
	return &CheckInHandler{
		checkInService: checkInService,
		historyService: historyService,
		recentWindow:   recentWindow,
		weeklyWindow:   weeklyWindow,
	}
}

// --- Request/Response Structs ---

type CheckInRequest struct {
	MuscleGroup domain.MuscleGroup `json:"muscleGroup"`
}

// --- Handler Methods ---

// Enter handles PUT /checkin: toggle "in gym" on.
func (h *CheckInHandler) Enter(c *gin.Context) {
	subjectID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	checkIn, err := h.checkInService.Enter(c.Request.Context(), subjectID, req.MuscleGroup)
	if err != nil {
		if isValidationError(err) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		// checkIn may still be set when the status landed but the history
		// append did not; the record stands either way.
		abortWithError(c, http.StatusInternalServerError, "Failed to record check-in")
		return
	}

	c.JSON(http.StatusOK, checkIn)
}

// Leave handles DELETE /checkin: toggle "in gym" off. Checking out while
// already absent is fine, so this always answers 204 on success.
func (h *CheckInHandler) Leave(c *gin.Context) {
	subjectID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	if err := h.checkInService.Leave(c.Request.Context(), subjectID); err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to check out")
		return
	}
	c.Status(http.StatusNoContent)
}

// ChangeMuscleGroup handles PATCH /checkin: retag an in-progress session.
func (h *CheckInHandler) ChangeMuscleGroup(c *gin.Context) {
	subjectID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	checkIn, err := h.checkInService.ChangeMuscleGroup(c.Request.Context(), subjectID, req.MuscleGroup)
	if err != nil {
		if isValidationError(err) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		abortWithError(c, http.StatusInternalServerError, "Failed to update check-in")
		return
	}
	if checkIn == nil {
		// Not checked in; selection before entering is client-local state.
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, checkIn)
}

// GetStatus handles GET /checkin: restore the caller's own live status.
func (h *CheckInHandler) GetStatus(c *gin.Context) {
	subjectID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	checkIn, err := h.checkInService.GetStatus(c.Request.Context(), subjectID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read check-in status")
		return
	}
	if checkIn == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, checkIn)
}

// StreamStatus handles GET /checkin/stream: a server-sent-event stream of
// the caller's own live status, starting with the current value. An absent
// status is streamed as an explicit null so clients can flip the toggle off.
func (h *CheckInHandler) StreamStatus(c *gin.Context) {
	subjectID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	statuses, err := h.checkInService.ObserveStatus(c.Request.Context(), subjectID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to subscribe to check-in status")
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case status, ok := <-statuses:
			if !ok {
				return false
			}
			c.SSEvent("status", status)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// GetHistory handles GET /checkin/history?window=recent|weekly: the caller's
// surviving history entries, newest first.
func (h *CheckInHandler) GetHistory(c *gin.Context) {
	subjectID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return
	}

	window := h.recentWindow
	switch c.DefaultQuery("window", "recent") {
	case "recent":
		window = h.recentWindow
	case "weekly":
		window = h.weeklyWindow
	default:
		abortWithError(c, http.StatusBadRequest, "window must be 'recent' or 'weekly'")
		return
	}

	entries, err := h.historyService.RecentHistory(c.Request.Context(), subjectID, window)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to read check-in history")
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrMuscleGroupRequired) || errors.Is(err, service.ErrUnknownMuscleGroup)
}
