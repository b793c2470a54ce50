package equipment

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitclub/internal/logger"
	"fitclub/internal/member"
	"fitclub/internal/notify"
	"fitclub/internal/policy"
	"fitclub/internal/schedule"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type MockRepo struct{ mock.Mock }
type MockMemberRepo struct{ mock.Mock }
type MockDispatcher struct{ mock.Mock }

func (m *MockRepo) GetItemByID(ctx context.Context, id int) (*Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Item), args.Error(1)
}

func (m *MockRepo) CreateReservation(ctx context.Context, r *Reservation) (*Reservation, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockRepo) GetReservationByID(ctx context.Context, id int) (*Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Reservation), args.Error(1)
}

func (m *MockRepo) ListOverlapping(ctx context.Context, equipmentID int, start, end time.Time) ([]Reservation, error) {
	args := m.Called(ctx, equipmentID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Reservation), args.Error(1)
}

func (m *MockRepo) ListForEquipment(ctx context.Context, equipmentID int) ([]Reservation, error) {
	args := m.Called(ctx, equipmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Reservation), args.Error(1)
}

func (m *MockRepo) ListForMember(ctx context.Context, memberID int) ([]Reservation, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Reservation), args.Error(1)
}

func (m *MockRepo) CancelReservation(ctx context.Context, id int, reason string, outcome policy.Outcome) error {
	return m.Called(ctx, id, reason, outcome).Error(0)
}

func (m *MockRepo) CompleteReservation(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMemberRepo) FindByID(ctx context.Context, id int) (*member.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*member.Member), args.Error(1)
}

func (m *MockDispatcher) Send(ctx context.Context, event notify.Event) error {
	return m.Called(ctx, event).Error(0)
}

var (
	rowerItem  = &Item{ID: 3, Name: "Rowing Machine", TotalUnits: 2, Active: true}
	testMember = &member.Member{ID: 7, Name: "Mia", Email: "mia@fitclub.local"}

	slotStart = time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	slotEnd   = time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
)

func newTestService(repo Repository) (*service, *MockMemberRepo, *MockDispatcher) {
	memberRepo := new(MockMemberRepo)
	dispatcher := new(MockDispatcher)
	svc := NewService(repo, memberRepo, dispatcher, schedule.NewKeyedMutex()).(*service)
	return svc, memberRepo, dispatcher
}

func TestReserveSuccess(t *testing.T) {
	repo := new(MockRepo)
	svc, memberRepo, dispatcher := newTestService(repo)

	repo.On("GetItemByID", mock.Anything, 3).Return(rowerItem, nil)
	repo.On("ListOverlapping", mock.Anything, 3, slotStart, slotEnd).Return([]Reservation{}, nil)
	// empty notes must stay NULL all the way down, not become a pointer to ""
	repo.On("CreateReservation", mock.Anything, mock.MatchedBy(func(r *Reservation) bool {
		return r.Status == StatusConfirmed && r.EquipmentID == 3 && r.Notes == nil
	})).Return(&Reservation{ID: 1, EquipmentID: 3, MemberID: 7, StartTime: slotStart, EndTime: slotEnd, Status: StatusConfirmed}, nil)
	memberRepo.On("FindByID", mock.Anything, 7).Return(testMember, nil)
	dispatcher.On("Send", mock.Anything, mock.Anything).Return(nil)

	created, err := svc.Reserve(context.Background(), 3, 7, slotStart, slotEnd, "")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, created.Status)
}

func TestReserveInvalidInterval(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	_, err := svc.Reserve(context.Background(), 3, 7, slotEnd, slotStart, "")
	assert.ErrorIs(t, err, ErrInvalidInterval)

	_, err = svc.Reserve(context.Background(), 3, 7, slotStart, slotStart, "")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestReserveMissingOrInactiveEquipment(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	repo.On("GetItemByID", mock.Anything, 99).Return(nil, sql.ErrNoRows)
	repo.On("GetItemByID", mock.Anything, 4).Return(&Item{ID: 4, TotalUnits: 1, Active: false}, nil)

	_, err := svc.Reserve(context.Background(), 99, 7, slotStart, slotEnd, "")
	assert.ErrorIs(t, err, ErrEquipmentNotFound)

	_, err = svc.Reserve(context.Background(), 4, 7, slotStart, slotEnd, "")
	assert.ErrorIs(t, err, ErrEquipmentNotFound)
}

func TestReserveAtCapacity(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	// both units already taken for the window
	existing := []Reservation{
		{ID: 1, StartTime: slotStart, EndTime: slotEnd, Status: StatusConfirmed},
		{ID: 2, StartTime: slotStart, EndTime: slotEnd, Status: StatusConfirmed},
	}

	repo.On("GetItemByID", mock.Anything, 3).Return(rowerItem, nil)
	repo.On("ListOverlapping", mock.Anything, 3, slotStart, slotEnd).Return(existing, nil)

	_, err := svc.Reserve(context.Background(), 3, 7, slotStart, slotEnd, "")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	repo.AssertNotCalled(t, "CreateReservation", mock.Anything, mock.Anything)
}

func TestReserveBackToBackAllowed(t *testing.T) {
	repo := new(MockRepo)
	svc, memberRepo, dispatcher := newTestService(repo)

	oneUnit := &Item{ID: 5, Name: "Squat Rack", TotalUnits: 1, Active: true}
	nextStart := slotEnd
	nextEnd := slotEnd.Add(time.Hour)

	// SQL overlap filter would exclude the touching reservation; the checker
	// agrees it does not count
	repo.On("GetItemByID", mock.Anything, 5).Return(oneUnit, nil)
	repo.On("ListOverlapping", mock.Anything, 5, nextStart, nextEnd).
		Return([]Reservation{{StartTime: slotStart, EndTime: slotEnd, Status: StatusConfirmed}}, nil)
	repo.On("CreateReservation", mock.Anything, mock.Anything).
		Return(&Reservation{ID: 2, EquipmentID: 5, MemberID: 7, StartTime: nextStart, EndTime: nextEnd, Status: StatusConfirmed}, nil)
	memberRepo.On("FindByID", mock.Anything, 7).Return(testMember, nil)
	dispatcher.On("Send", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Reserve(context.Background(), 5, 7, nextStart, nextEnd, "")
	require.NoError(t, err)
}

func TestCancelOutcome(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	// 4h notice, requester role always: pending
	existing := &Reservation{ID: 1, MemberID: 7, StartTime: now.Add(4 * time.Hour), EndTime: now.Add(5 * time.Hour), Status: StatusConfirmed}
	outcome := policy.OutcomePending
	cancelled := *existing
	cancelled.Status = StatusCancelled
	cancelled.RefundOutcome = &outcome

	repo.On("GetReservationByID", mock.Anything, 1).Return(existing, nil).Once()
	repo.On("CancelReservation", mock.Anything, 1, "done early", policy.OutcomePending).Return(nil)
	repo.On("GetReservationByID", mock.Anything, 1).Return(&cancelled, nil)

	got, err := svc.Cancel(context.Background(), 1, "done early")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, policy.OutcomePending, *got.RefundOutcome)
}

func TestCancelTerminal(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	repo.On("GetReservationByID", mock.Anything, 1).
		Return(&Reservation{ID: 1, Status: StatusCompleted}, nil)

	_, err := svc.Cancel(context.Background(), 1, "")
	assert.ErrorIs(t, err, ErrNotCancellable)
}

func TestCompleteIdempotent(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	done := &Reservation{ID: 1, Status: StatusCompleted}
	repo.On("GetReservationByID", mock.Anything, 1).Return(done, nil)

	got, err := svc.Complete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	repo.AssertNotCalled(t, "CompleteReservation", mock.Anything, mock.Anything)
}

func TestCompleteCancelledRejected(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	repo.On("GetReservationByID", mock.Anything, 1).
		Return(&Reservation{ID: 1, Status: StatusCancelled}, nil)

	_, err := svc.Complete(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotCompletable)
}

// memRepo backs the capacity property: totalUnits=2, three racing requests
// for the same interval, exactly two confirmed.
type memRepo struct {
	mu           sync.Mutex
	nextID       int
	item         *Item
	reservations []Reservation
}

func (r *memRepo) GetItemByID(ctx context.Context, id int) (*Item, error) {
	if r.item == nil || r.item.ID != id {
		return nil, sql.ErrNoRows
	}
	return r.item, nil
}

func (r *memRepo) CreateReservation(ctx context.Context, res *Reservation) (*Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	created := *res
	created.ID = r.nextID
	r.reservations = append(r.reservations, created)
	return &created, nil
}

func (r *memRepo) GetReservationByID(ctx context.Context, id int) (*Reservation, error) {
	return nil, sql.ErrNoRows
}

func (r *memRepo) ListOverlapping(ctx context.Context, equipmentID int, start, end time.Time) ([]Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Reservation
	for _, res := range r.reservations {
		if res.EquipmentID == equipmentID && res.Status == StatusConfirmed &&
			res.StartTime.Before(end) && res.EndTime.After(start) {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *memRepo) ListForEquipment(ctx context.Context, equipmentID int) ([]Reservation, error) {
	return r.ListOverlapping(ctx, equipmentID, time.Time{}, time.Unix(1<<62, 0))
}

func (r *memRepo) ListForMember(ctx context.Context, memberID int) ([]Reservation, error) {
	return nil, nil
}

func (r *memRepo) CancelReservation(ctx context.Context, id int, reason string, outcome policy.Outcome) error {
	return nil
}

func (r *memRepo) CompleteReservation(ctx context.Context, id int) error {
	return nil
}

func TestConcurrentReservationsRespectCapacity(t *testing.T) {
	repo := &memRepo{item: rowerItem}
	svc, memberRepo, dispatcher := newTestService(repo)
	memberRepo.On("FindByID", mock.Anything, mock.Anything).Return(testMember, nil)
	dispatcher.On("Send", mock.Anything, mock.Anything).Return(nil)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = svc.Reserve(context.Background(), 3, n+1, slotStart, slotEnd, "")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	capacityRejected := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrCapacityExceeded):
			capacityRejected++
		}
	}

	assert.Equal(t, 2, succeeded)
	assert.Equal(t, 1, capacityRejected)

	confirmed, err := repo.ListOverlapping(context.Background(), 3, slotStart, slotEnd)
	require.NoError(t, err)
	assert.Len(t, confirmed, 2)
}
