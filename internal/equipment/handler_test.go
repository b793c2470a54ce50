package equipment

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockService struct{ mock.Mock }

func (m *MockService) Reserve(ctx context.Context, equipmentID, memberID int, start, end time.Time, notes string) (*Reservation, error) {
	args := m.Called(ctx, equipmentID, memberID, start, end, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockService) Cancel(ctx context.Context, reservationID int, reason string) (*Reservation, error) {
	args := m.Called(ctx, reservationID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockService) Complete(ctx context.Context, reservationID int) (*Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockService) GetReservation(ctx context.Context, reservationID int) (*Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockService) ListForEquipment(ctx context.Context, equipmentID int) ([]Reservation, error) {
	args := m.Called(ctx, equipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Reservation), args.Error(1)
}

func (m *MockService) ListForMember(ctx context.Context, memberID int) ([]Reservation, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Reservation), args.Error(1)
}

func setupHandlerRouter(svc Service, memberID int, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("member_id", memberID)
		c.Set("member_role", role)
	})

	h := NewHandler(svc)
	r.POST("/equipment/:equipmentID/reservations", h.Reserve)
	r.POST("/reservations/:reservationID/cancel", h.Cancel)
	return r
}

func postJSON(r *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestReserveHandlerSuccess(t *testing.T) {
	svc := new(MockService)
	svc.On("Reserve", mock.Anything, 3, 7, mock.Anything, mock.Anything, "").
		Return(&Reservation{ID: 1, EquipmentID: 3, MemberID: 7, Status: StatusConfirmed}, nil)

	r := setupHandlerRouter(svc, 7, "member")

	w := postJSON(r, "/equipment/3/reservations", ReserveRequest{
		StartTime: "2025-06-01T14:00:00Z",
		EndTime:   "2025-06-01T15:00:00Z",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	svc.AssertExpectations(t)
}

func TestReserveHandlerRejectsMalformedTimes(t *testing.T) {
	svc := new(MockService)
	r := setupHandlerRouter(svc, 7, "member")

	w := postJSON(r, "/equipment/3/reservations", ReserveRequest{
		StartTime: "2 pm tomorrow",
		EndTime:   "2025-06-01T15:00:00Z",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")
	assert.Contains(t, w.Body.String(), "StartTime")
	svc.AssertNotCalled(t, "Reserve")
}

func TestReserveHandlerCapacity(t *testing.T) {
	svc := new(MockService)
	svc.On("Reserve", mock.Anything, 3, 7, mock.Anything, mock.Anything, "").
		Return(nil, ErrCapacityExceeded)

	r := setupHandlerRouter(svc, 7, "member")

	w := postJSON(r, "/equipment/3/reservations", ReserveRequest{
		StartTime: "2025-06-01T14:00:00Z",
		EndTime:   "2025-06-01T15:00:00Z",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "All units are reserved")
}
