package engagement

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitclub/internal/logger"
	"fitclub/internal/member"
	"fitclub/internal/notify"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type MockRepo struct{ mock.Mock }
type MockMemberRepo struct{ mock.Mock }
type MockDispatcher struct{ mock.Mock }

func (m *MockRepo) CreateCheckIn(ctx context.Context, event *CheckInEvent) (*CheckInEvent, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckInEvent), args.Error(1)
}

func (m *MockRepo) GetCheckInByID(ctx context.Context, id int) (*CheckInEvent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckInEvent), args.Error(1)
}

func (m *MockRepo) GetOpenCheckIn(ctx context.Context, memberID, locationID int) (*CheckInEvent, error) {
	args := m.Called(ctx, memberID, locationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckInEvent), args.Error(1)
}

func (m *MockRepo) CloseCheckIn(ctx context.Context, id int, checkOut time.Time, durationMinutes int) error {
	return m.Called(ctx, id, checkOut, durationMinutes).Error(0)
}

func (m *MockRepo) ListRecentCheckIns(ctx context.Context, memberID, limit int) ([]CheckInEvent, error) {
	args := m.Called(ctx, memberID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]CheckInEvent), args.Error(1)
}

func (m *MockRepo) CountCheckIns(ctx context.Context, memberID int) (int, error) {
	args := m.Called(ctx, memberID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) CountActivePlans(ctx context.Context, memberID int) (int, error) {
	args := m.Called(ctx, memberID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) CountCompletedChallenges(ctx context.Context, memberID int) (int, error) {
	args := m.Called(ctx, memberID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) CountCompletedWorkouts(ctx context.Context, memberID int) (int, error) {
	args := m.Called(ctx, memberID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) UpsertEngagement(ctx context.Context, record *EngagementRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockRepo) GetEngagement(ctx context.Context, memberID int) (*EngagementRecord, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EngagementRecord), args.Error(1)
}

func (m *MockRepo) ListAchievements(ctx context.Context, memberID int) ([]Achievement, error) {
	args := m.Called(ctx, memberID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Achievement), args.Error(1)
}

func (m *MockRepo) HasAchievement(ctx context.Context, memberID int, title string) (bool, error) {
	args := m.Called(ctx, memberID, title)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepo) InsertAchievement(ctx context.Context, achievement *Achievement) (*Achievement, error) {
	args := m.Called(ctx, achievement)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Achievement), args.Error(1)
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

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.Local)

func newTestService(repo Repository) (*service, *MockMemberRepo, *MockDispatcher) {
	memberRepo := new(MockMemberRepo)
	dispatcher := new(MockDispatcher)
	svc := NewService(repo, memberRepo, dispatcher).(*service)
	svc.now = func() time.Time { return testNow }
	return svc, memberRepo, dispatcher
}

// eventsOnDays builds one check-in per local day offset from testNow,
// newest first.
func eventsOnDays(offsets ...int) []CheckInEvent {
	var events []CheckInEvent
	for i, off := range offsets {
		events = append(events, CheckInEvent{
			ID:          i + 1,
			MemberID:    7,
			LocationID:  1,
			Method:      MethodApp,
			CheckInTime: testNow.AddDate(0, 0, -off).Add(-3 * time.Hour),
		})
	}
	return events
}

// noUnlocks satisfies the achievement pass without new inserts.
func noUnlocks(repo *MockRepo) {
	repo.On("HasAchievement", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
}

func zeroExtras(repo *MockRepo) {
	repo.On("CountActivePlans", mock.Anything, 7).Return(0, nil)
	repo.On("CountCompletedChallenges", mock.Anything, 7).Return(0, nil)
	repo.On("CountCompletedWorkouts", mock.Anything, 7).Return(0, nil)
}

func TestCheckInSuccess(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	created := &CheckInEvent{ID: 1, MemberID: 7, LocationID: 1, Method: MethodQR, CheckInTime: testNow}

	repo.On("GetOpenCheckIn", mock.Anything, 7, 1).Return(nil, sql.ErrNoRows)
	repo.On("CreateCheckIn", mock.Anything, mock.MatchedBy(func(e *CheckInEvent) bool {
		return e.MemberID == 7 && e.LocationID == 1 && e.Method == MethodQR && e.CheckInTime.Equal(testNow)
	})).Return(created, nil)
	repo.On("CountCheckIns", mock.Anything, 7).Return(1, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).Return(eventsOnDays(0), nil)
	zeroExtras(repo)
	repo.On("UpsertEngagement", mock.Anything, mock.Anything).Return(nil)
	noUnlocks(repo)

	got, err := svc.CheckIn(context.Background(), 7, 1, MethodQR)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ID)
	repo.AssertCalled(t, "UpsertEngagement", mock.Anything, mock.Anything)
}

func TestCheckInDuplicateOpen(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	repo.On("GetOpenCheckIn", mock.Anything, 7, 1).
		Return(&CheckInEvent{ID: 5, MemberID: 7, LocationID: 1}, nil)

	_, err := svc.CheckIn(context.Background(), 7, 1, MethodApp)
	assert.ErrorIs(t, err, ErrOpenCheckInExists)
	repo.AssertNotCalled(t, "CreateCheckIn", mock.Anything, mock.Anything)
}

func TestCheckInInvalidMethod(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	_, err := svc.CheckIn(context.Background(), 7, 1, Method("carrier pigeon"))
	assert.ErrorIs(t, err, ErrInvalidMethod)
}

func TestCheckInSurvivesRecomputeFailure(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	created := &CheckInEvent{ID: 1, MemberID: 7, LocationID: 1, Method: MethodApp, CheckInTime: testNow}

	repo.On("GetOpenCheckIn", mock.Anything, 7, 1).Return(nil, sql.ErrNoRows)
	repo.On("CreateCheckIn", mock.Anything, mock.Anything).Return(created, nil)
	repo.On("CountCheckIns", mock.Anything, 7).Return(0, assert.AnError)

	got, err := svc.CheckIn(context.Background(), 7, 1, MethodApp)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ID)
}

func TestCheckOutStampsDuration(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	checkIn := testNow.Add(-95 * time.Minute)
	open := &CheckInEvent{ID: 3, MemberID: 7, LocationID: 1, Method: MethodApp, CheckInTime: checkIn}
	duration := 95
	closed := &CheckInEvent{ID: 3, MemberID: 7, LocationID: 1, Method: MethodApp,
		CheckInTime: checkIn, CheckOutTime: &testNow, DurationMinutes: &duration}

	repo.On("GetCheckInByID", mock.Anything, 3).Return(open, nil).Once()
	repo.On("CloseCheckIn", mock.Anything, 3, testNow, 95).Return(nil)
	repo.On("CountCheckIns", mock.Anything, 7).Return(1, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).Return(eventsOnDays(0), nil)
	zeroExtras(repo)
	repo.On("UpsertEngagement", mock.Anything, mock.Anything).Return(nil)
	repo.On("GetCheckInByID", mock.Anything, 3).Return(closed, nil)

	got, err := svc.CheckOut(context.Background(), 3)
	require.NoError(t, err)
	require.NotNil(t, got.DurationMinutes)
	assert.Equal(t, 95, *got.DurationMinutes)
}

func TestCheckOutNotFound(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	repo.On("GetCheckInByID", mock.Anything, 99).Return(nil, sql.ErrNoRows)

	_, err := svc.CheckOut(context.Background(), 99)
	assert.ErrorIs(t, err, ErrCheckInNotFound)
}

func TestCheckOutAlreadyClosed(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	out := testNow.Add(-time.Hour)
	repo.On("GetCheckInByID", mock.Anything, 3).
		Return(&CheckInEvent{ID: 3, MemberID: 7, CheckOutTime: &out}, nil)

	_, err := svc.CheckOut(context.Background(), 3)
	assert.ErrorIs(t, err, ErrAlreadyCheckedOut)
	repo.AssertNotCalled(t, "CloseCheckIn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestComputeStreakConsecutiveDays(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	// check-ins on D, D-1, D-2, then a gap before D-4
	repo.On("CountCheckIns", mock.Anything, 7).Return(12, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).
		Return(eventsOnDays(0, 1, 2, 4, 5), nil)

	summary, err := svc.ComputeStreak(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Streak)
	assert.Equal(t, 12, summary.TotalCheckIns)
	require.NotNil(t, summary.LastCheckIn)
}

func TestComputeStreakAnchoredYesterday(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	// not checked in yet today, streak still alive from yesterday
	repo.On("CountCheckIns", mock.Anything, 7).Return(2, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).
		Return(eventsOnDays(1, 2), nil)

	summary, err := svc.ComputeStreak(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Streak)
}

func TestComputeStreakBrokenByGap(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	repo.On("CountCheckIns", mock.Anything, 7).Return(8, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).
		Return(eventsOnDays(3, 4, 5), nil)

	summary, err := svc.ComputeStreak(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Streak)
	assert.Equal(t, 8, summary.TotalCheckIns)
}

func TestComputeStreakCollapsesSameDay(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	// two visits today and one yesterday still count as a 2-day streak
	repo.On("CountCheckIns", mock.Anything, 7).Return(3, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).
		Return(eventsOnDays(0, 0, 1), nil)

	summary, err := svc.ComputeStreak(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Streak)
}

func TestComputeStreakNoCheckIns(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	repo.On("CountCheckIns", mock.Anything, 7).Return(0, nil)

	summary, err := svc.ComputeStreak(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Streak)
	assert.Nil(t, summary.LastCheckIn)
}

func TestRecomputeScoreComponents(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	repo.On("CountCheckIns", mock.Anything, 7).Return(5, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).
		Return(eventsOnDays(0, 1), nil)
	repo.On("CountActivePlans", mock.Anything, 7).Return(1, nil)
	repo.On("CountCompletedChallenges", mock.Anything, 7).Return(3, nil)
	repo.On("CountCompletedWorkouts", mock.Anything, 7).Return(4, nil)
	repo.On("UpsertEngagement", mock.Anything, mock.MatchedBy(func(r *EngagementRecord) bool {
		// 5*2 + 2*5 + 20 + 3*5
		return r.Score == 55 && r.CheckInCount == 5 && r.CheckInStreak == 2 &&
			r.WorkoutCompletions == 4 && r.ChallengeCompletions == 3
	})).Return(nil)

	record, err := svc.Recompute(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 55, record.Score)
}

func TestRecomputeScoreBounded(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	// every component far past its cap still sums to exactly 100
	repo.On("CountCheckIns", mock.Anything, 7).Return(10000, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).
		Return(eventsOnDays(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11), nil)
	repo.On("CountActivePlans", mock.Anything, 7).Return(12, nil)
	repo.On("CountCompletedChallenges", mock.Anything, 7).Return(500, nil)
	repo.On("CountCompletedWorkouts", mock.Anything, 7).Return(900, nil)
	repo.On("UpsertEngagement", mock.Anything, mock.Anything).Return(nil)

	record, err := svc.Recompute(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, 100, record.Score)
	assert.GreaterOrEqual(t, record.Score, 0)
	assert.LessOrEqual(t, record.Score, 100)
}

func TestEvaluateAchievementsUnlocks(t *testing.T) {
	repo := new(MockRepo)
	svc, memberRepo, dispatcher := newTestService(repo)

	// 10 total check-ins, 3-day streak: First Check-In, Regular, On a Roll
	repo.On("CountCheckIns", mock.Anything, 7).Return(10, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).
		Return(eventsOnDays(0, 1, 2), nil)
	repo.On("HasAchievement", mock.Anything, 7, "First Check-In").Return(true, nil)
	repo.On("HasAchievement", mock.Anything, 7, "Regular").Return(false, nil)
	repo.On("HasAchievement", mock.Anything, 7, "On a Roll").Return(false, nil)
	repo.On("InsertAchievement", mock.Anything, mock.MatchedBy(func(a *Achievement) bool {
		return a.Title == "Regular" && a.TriggerCount == 10
	})).Return(&Achievement{ID: 2, MemberID: 7, Title: "Regular"}, nil)
	repo.On("InsertAchievement", mock.Anything, mock.MatchedBy(func(a *Achievement) bool {
		return a.Title == "On a Roll" && a.TriggerCount == 3
	})).Return(&Achievement{ID: 3, MemberID: 7, Title: "On a Roll"}, nil)
	memberRepo.On("FindByID", mock.Anything, 7).
		Return(&member.Member{ID: 7, Name: "Mia", Email: "mia@fitclub.local"}, nil)
	dispatcher.On("Send", mock.Anything, mock.MatchedBy(func(e notify.Event) bool {
		return e.Kind == notify.KindAchievementUnlocked
	})).Return(nil)

	err := svc.EvaluateAchievements(context.Background(), 7, "check_in")
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "InsertAchievement", 2)
	dispatcher.AssertNumberOfCalls(t, "Send", 2)
}

func TestEvaluateAchievementsIdempotent(t *testing.T) {
	repo := new(MockRepo)
	svc, _, dispatcher := newTestService(repo)

	repo.On("CountCheckIns", mock.Anything, 7).Return(10, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).
		Return(eventsOnDays(0, 1, 2), nil)
	noUnlocks(repo)

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.EvaluateAchievements(context.Background(), 7, "check_in"))
	}
	repo.AssertNotCalled(t, "InsertAchievement", mock.Anything, mock.Anything)
	dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEvaluateAchievementsLostRace(t *testing.T) {
	repo := new(MockRepo)
	svc, _, dispatcher := newTestService(repo)

	repo.On("CountCheckIns", mock.Anything, 7).Return(1, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).
		Return(eventsOnDays(0), nil)
	repo.On("HasAchievement", mock.Anything, 7, mock.Anything).Return(false, nil)
	// a concurrent evaluator inserted first, the conflict returns no row
	repo.On("InsertAchievement", mock.Anything, mock.Anything).Return(nil, sql.ErrNoRows)

	err := svc.EvaluateAchievements(context.Background(), 7, "check_in")
	require.NoError(t, err)
	dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestEngagementBuildsRecordWhenMissing(t *testing.T) {
	repo := new(MockRepo)
	svc, _, _ := newTestService(repo)

	repo.On("GetEngagement", mock.Anything, 7).Return(nil, sql.ErrNoRows)
	repo.On("CountCheckIns", mock.Anything, 7).Return(1, nil)
	repo.On("ListRecentCheckIns", mock.Anything, 7, streakWindow).Return(eventsOnDays(0), nil)
	zeroExtras(repo)
	repo.On("UpsertEngagement", mock.Anything, mock.Anything).Return(nil)

	record, err := svc.Engagement(context.Background(), 7)
	require.NoError(t, err)
	// 1*2 + 1*5
	assert.Equal(t, 7, record.Score)
}
