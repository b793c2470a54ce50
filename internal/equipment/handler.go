package equipment

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

// Reserve godoc
// @Summary      Reserve equipment
// @Description  Reserves one unit of an equipment item for a time interval.
// @Tags         equipment
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        equipmentID  path      int             true  "Equipment ID"
// @Param        request      body      ReserveRequest  true  "Reservation interval"
// @Success      201          {object}  Reservation
// @Failure      400          {object}  gin.H
// @Failure      404          {object}  gin.H
// @Failure      409          {object}  gin.H
// @Failure      500          {object}  gin.H
// @Router       /equipment/{equipmentID}/reservations [post]
func (h *Handler) Reserve(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	equipmentID, err := strconv.Atoi(c.Param("equipmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid equipment ID"})
		return
	}

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if errs := api.ValidateStruct(req); len(errs) > 0 {
		api.RespondWithValidationErrors(c, errs)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start_time, use RFC3339"})
		return
	}

	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end_time, use RFC3339"})
		return
	}

	created, err := h.service.Reserve(c.Request.Context(), equipmentID, memberID, start, end, req.Notes)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInterval):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ErrEquipmentNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Equipment not found"})
		case errors.Is(err, ErrCapacityExceeded):
			c.JSON(http.StatusConflict, gin.H{"error": "All units are reserved for this interval"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reserve equipment"})
		}
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Cancel godoc
// @Summary      Cancel reservation
// @Tags         equipment
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        reservationID  path      int            true  "Reservation ID"
// @Param        request        body      CancelRequest  false "Cancellation reason"
// @Success      200            {object}  CancelResponse
// @Failure      400            {object}  gin.H
// @Failure      403            {object}  gin.H
// @Failure      404            {object}  gin.H
// @Failure      409            {object}  gin.H
// @Router       /reservations/{reservationID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	reservationID, err := strconv.Atoi(c.Param("reservationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}

	var req CancelRequest
	_ = c.ShouldBindJSON(&req)

	existing, err := h.service.GetReservation(c.Request.Context(), reservationID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		return
	}

	if existing.MemberID != memberID && auth.GetRole(c) != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only cancel your own reservations"})
		return
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), reservationID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		case errors.Is(err, ErrNotCancellable):
			c.JSON(http.StatusConflict, gin.H{"error": "Reservation is already cancelled or completed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel reservation"})
		}
		return
	}

	outcome := policy.OutcomePending
	if cancelled.RefundOutcome != nil {
		outcome = *cancelled.RefundOutcome
	}

	c.JSON(http.StatusOK, CancelResponse{Status: cancelled.Status, RefundOutcome: outcome})
}

// Complete godoc
// @Summary      Complete reservation
// @Description  Marks a reservation as completed. No-op if already completed.
// @Tags         equipment
// @Security     BearerAuth
// @Produce      json
// @Param        reservationID  path      int  true  "Reservation ID"
// @Success      200            {object}  Reservation
// @Failure      400            {object}  gin.H
// @Failure      404            {object}  gin.H
// @Failure      409            {object}  gin.H
// @Router       /reservations/{reservationID}/complete [post]
func (h *Handler) Complete(c *gin.Context) {
	reservationID, err := strconv.Atoi(c.Param("reservationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reservation ID"})
		return
	}

	completed, err := h.service.Complete(c.Request.Context(), reservationID)
	if err != nil {
		switch {
		case errors.Is(err, ErrReservationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Reservation not found"})
		case errors.Is(err, ErrNotCompletable):
			c.JSON(http.StatusConflict, gin.H{"error": "Cancelled reservations cannot be completed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete reservation"})
		}
		return
	}

	c.JSON(http.StatusOK, completed)
}

// ListMine godoc
// @Summary      List my reservations
// @Tags         equipment
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Reservation
// @Failure      500  {object}  gin.H
// @Router       /reservations [get]
func (h *Handler) ListMine(c *gin.Context) {
	memberID, exists := auth.GetMemberID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Member not authenticated"})
		return
	}

	reservations, err := h.service.ListForMember(c.Request.Context(), memberID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}

// ListForEquipment godoc
// @Summary      List reservations for an equipment item. Admin only.
// @Tags         equipment
// @Security     BearerAuth
// @Produce      json
// @Param        equipmentID  path      int  true  "Equipment ID"
// @Success      200          {array}   Reservation
// @Failure      400          {object}  gin.H
// @Failure      500          {object}  gin.H
// @Router       /admin/equipment/{equipmentID}/reservations [get]
func (h *Handler) ListForEquipment(c *gin.Context) {
	equipmentID, err := strconv.Atoi(c.Param("equipmentID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid equipment ID"})
		return
	}

	reservations, err := h.service.ListForEquipment(c.Request.Context(), equipmentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}
