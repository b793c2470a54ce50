package engagement

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fitclub/internal/auth"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// CheckIn godoc
// @Summary      Check in at a location
// @Description  Records a check-in and refreshes the member's engagement state.
// @Tags         engagement
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CheckInRequest  true  "Check-in request"
// @Success      201      {object}  CheckInEvent
// @Failure      400      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /checkins [post]
func (h *Handler) CheckIn(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.service.CheckIn(c.Request.Context(), memberID, req.LocationID, Method(req.Method))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidMethod):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrOpenCheckInExists):
			c.JSON(http.StatusConflict, gin.H{"error": "You are already checked in at this location"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check in"})
		}
		return
	}

	c.JSON(http.StatusCreated, event)
}

// CheckOut godoc
// @Summary      Check out
// @Description  Closes an open check-in and stamps the visit duration.
// @Tags         engagement
// @Security     BearerAuth
// @Produce      json
// @Param        checkInID   path      int  true  "Check-in ID"
// @Success      200  {object}  CheckOutResponse
// @Failure      403  {object}  gin.H
// @Failure      404  {object}  gin.H
// @Failure      409  {object}  gin.H
// @Failure      500  {object}  gin.H
// @Router       /checkins/{checkInID}/checkout [post]
func (h *Handler) CheckOut(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	checkInID, err := strconv.Atoi(c.Param("checkInID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid check-in ID"})
		return
	}

	existing, err := h.service.GetCheckIn(c.Request.Context(), checkInID)
	if err != nil {
		if errors.Is(err, ErrCheckInNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Check-in not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check out"})
		return
	}

	if existing.MemberID != memberID && auth.GetRole(c) != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only check out your own visit"})
		return
	}

	closed, err := h.service.CheckOut(c.Request.Context(), checkInID)
	if err != nil {
		switch {
		case errors.Is(err, ErrCheckInNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Check-in not found"})
		case errors.Is(err, ErrAlreadyCheckedOut):
			c.JSON(http.StatusConflict, gin.H{"error": "Already checked out"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check out"})
		}
		return
	}

	duration := 0
	if closed.DurationMinutes != nil {
		duration = *closed.DurationMinutes
	}
	checkOut := ""
	if closed.CheckOutTime != nil {
		checkOut = closed.CheckOutTime.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, CheckOutResponse{
		ID:              closed.ID,
		DurationMinutes: duration,
		CheckOutTime:    checkOut,
	})
}

// Streak godoc
// @Summary      Current streak
// @Tags         engagement
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  StreakSummary
// @Failure      500  {object}  gin.H
// @Router       /members/me/streak [get]
func (h *Handler) Streak(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	summary, err := h.service.ComputeStreak(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute streak"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// Engagement godoc
// @Summary      Engagement record
// @Tags         engagement
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  EngagementRecord
// @Failure      500  {object}  gin.H
// @Router       /members/me/engagement [get]
func (h *Handler) Engagement(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	record, err := h.service.Engagement(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load engagement"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// Achievements godoc
// @Summary      Unlocked achievements
// @Tags         engagement
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Achievement
// @Failure      500  {object}  gin.H
// @Router       /members/me/achievements [get]
func (h *Handler) Achievements(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	achievements, err := h.service.Achievements(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load achievements"})
		return
	}
	if achievements == nil {
		achievements = []Achievement{}
	}

	c.JSON(http.StatusOK, achievements)
}
