package session

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"fitclub/internal/api"
	"fitclub/internal/auth"
	"fitclub/internal/policy"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

func parseStartMinute(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Book godoc
// @Summary      Book trainer session
// @Description  Books a session covered by the member's active membership.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      BookRequest  true  "Booking request"
// @Success      201      {object}  Session
// @Failure      400      {object}  gin.H
// @Failure      402      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /sessions [post]
func (h *Handler) Book(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	var req BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := api.ValidateStruct(req); len(errs) > 0 {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, use YYYY-MM-DD"})
		return
	}

	startMinute, err := parseStartMinute(req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start time, use HH:MM"})
		return
	}

	booked, err := h.service.BookSession(c.Request.Context(), req.TrainerID, memberID, Type(req.SessionType), date, startMinute, req.DurationMinutes)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booked)
}

// BookPaid godoc
// @Summary      Book trainer session (paid path)
// @Description  Books a session against a confirmed external payment. Idempotent on payment_session_id.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      BookPaidRequest  true  "Paid booking request"
// @Success      201      {object}  Session
// @Failure      400      {object}  gin.H
// @Failure      404      {object}  gin.H
// @Failure      409      {object}  gin.H
// @Failure      500      {object}  gin.H
// @Router       /sessions/paid [post]
func (h *Handler) BookPaid(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	var req BookPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := api.ValidateStruct(req); len(errs) > 0 {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, use YYYY-MM-DD"})
		return
	}

	startMinute, err := parseStartMinute(req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start time, use HH:MM"})
		return
	}

	booked, err := h.service.BookSessionPaid(c.Request.Context(), req.TrainerID, memberID, Type(req.SessionType), date, startMinute, req.DurationMinutes, req.PaymentSessionID)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	c.JSON(http.StatusCreated, booked)
}

func respondBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrCrossesMidnight),
		errors.Is(err, ErrInvalidStartTime), errors.Is(err, ErrInvalidSessionType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrNoActiveMembership):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": "An active membership is required to book this session"})
	case errors.Is(err, ErrTrainerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Trainer not found"})
	case errors.Is(err, ErrSlotConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "This time slot is already booked"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to book session"})
	}
}

// Cancel godoc
// @Summary      Cancel session
// @Description  Cancels a session and computes the refund outcome.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID  path      int            true  "Session ID"
// @Param        request    body      CancelRequest  false "Cancellation reason"
// @Success      200        {object}  CancelResponse
// @Failure      400        {object}  gin.H
// @Failure      403        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /sessions/{sessionID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	sessionID, err := strconv.Atoi(c.Param("sessionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	var req CancelRequest
	_ = c.ShouldBindJSON(&req)

	existing, err := h.service.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}

	// Trainers and admins cancel as the provider side; members can only
	// cancel their own bookings.
	role := policy.RoleRequester
	switch auth.GetRole(c) {
	case "trainer", "admin":
		role = policy.RoleProvider
	default:
		if existing.MemberID != memberID {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only cancel your own sessions"})
			return
		}
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), sessionID, req.Reason, role)
	if err != nil {
		switch {
		case errors.Is(err, ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, ErrNotCancellable):
			c.JSON(http.StatusConflict, gin.H{"error": "Session is already cancelled or completed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel session"})
		}
		return
	}

	outcome := policy.OutcomePending
	if cancelled.RefundOutcome != nil {
		outcome = *cancelled.RefundOutcome
	}

	c.JSON(http.StatusOK, CancelResponse{Status: cancelled.Status, RefundOutcome: outcome})
}

// UpdateStatus godoc
// @Summary      Update session status
// @Description  Transitions a session to confirmed, cancelled, completed or no_show. Trainer/admin only.
// @Tags         sessions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        sessionID  path      int                  true  "Session ID"
// @Param        request    body      UpdateStatusRequest  true  "New status"
// @Success      200        {object}  Session
// @Failure      400        {object}  gin.H
// @Failure      404        {object}  gin.H
// @Failure      409        {object}  gin.H
// @Router       /sessions/{sessionID}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	sessionID, err := strconv.Atoi(c.Param("sessionID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.UpdateStatus(c.Request.Context(), sessionID, Status(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		case errors.Is(err, ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		case errors.Is(err, ErrTerminalStatus):
			c.JSON(http.StatusConflict, gin.H{"error": "Session status can no longer change"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update status"})
		}
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ListMine godoc
// @Summary      List my sessions
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Session
// @Failure      500  {object}  gin.H
// @Router       /sessions [get]
func (h *Handler) ListMine(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	sessions, err := h.service.ListForMember(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}

	c.JSON(http.StatusOK, sessions)
}

// ListForTrainer godoc
// @Summary      Trainer day schedule
// @Tags         sessions
// @Security     BearerAuth
// @Produce      json
// @Param        trainerID  path      int     true  "Trainer ID"
// @Param        date       query     string  true  "Date (YYYY-MM-DD)"
// @Success      200        {array}   Session
// @Failure      400        {object}  gin.H
// @Failure      500        {object}  gin.H
// @Router       /trainers/{trainerID}/sessions [get]
func (h *Handler) ListForTrainer(c *gin.Context) {
	trainerID, err := strconv.Atoi(c.Param("trainerID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid trainer ID"})
		return
	}

	date, err := parseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query param is required (YYYY-MM-DD)"})
		return
	}

	sessions, err := h.service.ListForTrainer(c.Request.Context(), trainerID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sessions"})
		return
	}

	c.JSON(http.StatusOK, sessions)
}
