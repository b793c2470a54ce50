package engagement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fitclub/internal/logger"
	"fitclub/internal/member"
	"fitclub/internal/metrics"
	"fitclub/internal/notify"
)

var (
	ErrInvalidMethod     = errors.New("invalid check-in method")
	ErrOpenCheckInExists = errors.New("an open check-in already exists for this location")
	ErrCheckInNotFound   = errors.New("check-in not found")
	ErrAlreadyCheckedOut = errors.New("check-in already checked out")
)

// streakWindow bounds how far back the streak walk looks. One check-in per
// day for 100 days is already past every catalog threshold.
const streakWindow = 100

const (
	checkInScoreCap   = 40
	streakScoreCap    = 20
	planScore         = 20
	challengeScoreCap = 20
)

type Service interface {
	CheckIn(ctx context.Context, memberID, locationID int, method Method) (*CheckInEvent, error)
	CheckOut(ctx context.Context, checkInID int) (*CheckInEvent, error)
	ComputeStreak(ctx context.Context, memberID int) (*StreakSummary, error)
	Recompute(ctx context.Context, memberID int) (*EngagementRecord, error)
	EvaluateAchievements(ctx context.Context, memberID int, trigger string) error
	Engagement(ctx context.Context, memberID int) (*EngagementRecord, error)
	Achievements(ctx context.Context, memberID int) ([]Achievement, error)
	GetCheckIn(ctx context.Context, checkInID int) (*CheckInEvent, error)
}

type service struct {
	repo       Repository
	memberRepo member.Repository
	notifier   notify.Dispatcher
	now        func() time.Time
}

func NewService(repo Repository, memberRepo member.Repository, notifier notify.Dispatcher) Service {
	return &service{
		repo:       repo,
		memberRepo: memberRepo,
		notifier:   notifier,
		now:        time.Now,
	}
}

func (s *service) CheckIn(ctx context.Context, memberID, locationID int, method Method) (*CheckInEvent, error) {
	if !ValidMethod(method) {
		return nil, ErrInvalidMethod
	}

	_, err := s.repo.GetOpenCheckIn(ctx, memberID, locationID)
	if err == nil {
		return nil, ErrOpenCheckInExists
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	created, err := s.repo.CreateCheckIn(ctx, &CheckInEvent{
		MemberID:    memberID,
		LocationID:  locationID,
		Method:      method,
		CheckInTime: s.now(),
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCheckIn(string(method))
	logger.Infof("Member %d checked in at location %d via %s", memberID, locationID, method)

	// Derived state is a rebuildable cache; failures here never undo the
	// check-in itself.
	if _, err := s.Recompute(ctx, memberID); err != nil {
		logger.Errorf("Engagement recompute failed for member %d: %v", memberID, err)
	}
	if err := s.EvaluateAchievements(ctx, memberID, "check_in"); err != nil {
		logger.Errorf("Achievement evaluation failed for member %d: %v", memberID, err)
	}

	return created, nil
}

func (s *service) CheckOut(ctx context.Context, checkInID int) (*CheckInEvent, error) {
	event, err := s.repo.GetCheckInByID(ctx, checkInID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCheckInNotFound
		}
		return nil, err
	}

	if !event.Open() {
		return nil, ErrAlreadyCheckedOut
	}

	checkOut := s.now()
	duration := int(checkOut.Sub(event.CheckInTime).Minutes())
	if duration < 0 {
		duration = 0
	}

	if err := s.repo.CloseCheckIn(ctx, checkInID, checkOut, duration); err != nil {
		return nil, err
	}

	if _, err := s.Recompute(ctx, event.MemberID); err != nil {
		logger.Errorf("Engagement recompute failed for member %d: %v", event.MemberID, err)
	}

	return s.repo.GetCheckInByID(ctx, checkInID)
}

// ComputeStreak walks the most recent check-ins newest first, collapses them
// to distinct local calendar days and counts consecutive days. A streak is
// alive only while its newest day is today or yesterday.
func (s *service) ComputeStreak(ctx context.Context, memberID int) (*StreakSummary, error) {
	total, err := s.repo.CountCheckIns(ctx, memberID)
	if err != nil {
		return nil, err
	}

	summary := &StreakSummary{TotalCheckIns: total}
	if total == 0 {
		return summary, nil
	}

	events, err := s.repo.ListRecentCheckIns(ctx, memberID, streakWindow)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return summary, nil
	}

	summary.LastCheckIn = &events[0].CheckInTime

	days := distinctDays(events)
	today := localDay(s.now())
	yesterday := today.AddDate(0, 0, -1)

	if !days[0].Equal(today) && !days[0].Equal(yesterday) {
		return summary, nil
	}

	streak := 1
	for i := 1; i < len(days); i++ {
		if !days[i].Equal(days[i-1].AddDate(0, 0, -1)) {
			break
		}
		streak++
	}
	summary.Streak = streak

	return summary, nil
}

// Recompute rebuilds the member's engagement record from scratch. Each score
// component is capped independently so the total stays within 0..100.
func (s *service) Recompute(ctx context.Context, memberID int) (*EngagementRecord, error) {
	streak, err := s.ComputeStreak(ctx, memberID)
	if err != nil {
		return nil, err
	}

	activePlans, err := s.repo.CountActivePlans(ctx, memberID)
	if err != nil {
		return nil, err
	}

	challenges, err := s.repo.CountCompletedChallenges(ctx, memberID)
	if err != nil {
		return nil, err
	}

	workouts, err := s.repo.CountCompletedWorkouts(ctx, memberID)
	if err != nil {
		return nil, err
	}

	score := capped(streak.TotalCheckIns*2, checkInScoreCap) +
		capped(streak.Streak*5, streakScoreCap) +
		capped(challenges*5, challengeScoreCap)
	if activePlans > 0 {
		score += planScore
	}

	record := &EngagementRecord{
		MemberID:             memberID,
		Score:                score,
		CheckInCount:         streak.TotalCheckIns,
		CheckInStreak:        streak.Streak,
		LastCheckIn:          streak.LastCheckIn,
		WorkoutCompletions:   workouts,
		ChallengeCompletions: challenges,
		LastUpdated:          s.now(),
	}

	if err := s.repo.UpsertEngagement(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

func (s *service) EvaluateAchievements(ctx context.Context, memberID int, trigger string) error {
	streak, err := s.ComputeStreak(ctx, memberID)
	if err != nil {
		return err
	}

	for _, spec := range Catalog() {
		count := streak.TotalCheckIns
		if spec.Kind == KindStreak {
			count = streak.Streak
		}
		if count < spec.Threshold {
			continue
		}

		unlocked, err := s.repo.HasAchievement(ctx, memberID, spec.Title)
		if err != nil {
			return err
		}
		if unlocked {
			continue
		}

		created, err := s.repo.InsertAchievement(ctx, &Achievement{
			MemberID:     memberID,
			Title:        spec.Title,
			Description:  spec.Description,
			Icon:         spec.Icon,
			TriggerCount: count,
			UnlockedAt:   s.now(),
		})
		if err != nil {
			// a concurrent evaluator won the insert
			if err == sql.ErrNoRows {
				continue
			}
			return err
		}

		metrics.RecordAchievementUnlocked(created.Title)
		logger.Infof("Member %d unlocked achievement %q (trigger %s)", memberID, created.Title, trigger)
		s.notifyUnlocked(ctx, created)
	}

	return nil
}

func (s *service) notifyUnlocked(ctx context.Context, achievement *Achievement) {
	m, err := s.memberRepo.FindByID(ctx, achievement.MemberID)
	if err != nil {
		logger.Errorf("Achievement %q unlocked but member %d lookup failed: %v",
			achievement.Title, achievement.MemberID, err)
		return
	}

	if err := s.notifier.Send(ctx, notify.Event{
		Kind:        notify.KindAchievementUnlocked,
		RecipientID: m.ID,
		Email:       m.Email,
		Name:        m.Name,
		Title:       fmt.Sprintf("Achievement Unlocked: %s", achievement.Title),
		Message: fmt.Sprintf("Hi %s,\n\n%s %s\n%s\n\nKeep it up!\n\n- FitClub Team",
			m.Name, achievement.Icon, achievement.Title, achievement.Description),
	}); err != nil {
		logger.Errorf("Failed to queue achievement notification for member %d: %v", m.ID, err)
	}
}

func (s *service) Engagement(ctx context.Context, memberID int) (*EngagementRecord, error) {
	record, err := s.repo.GetEngagement(ctx, memberID)
	if err == nil {
		return record, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	// no record yet, build one from the log
	return s.Recompute(ctx, memberID)
}

func (s *service) Achievements(ctx context.Context, memberID int) ([]Achievement, error) {
	return s.repo.ListAchievements(ctx, memberID)
}

func (s *service) GetCheckIn(ctx context.Context, checkInID int) (*CheckInEvent, error) {
	event, err := s.repo.GetCheckInByID(ctx, checkInID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCheckInNotFound
		}
		return nil, err
	}
	return event, nil
}

func capped(value, limit int) int {
	if value > limit {
		return limit
	}
	return value
}

func localDay(t time.Time) time.Time {
	local := t.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.Local)
}

// distinctDays maps events (newest first) to their distinct local calendar
// days, preserving order.
func distinctDays(events []CheckInEvent) []time.Time {
	var days []time.Time
	for _, e := range events {
		day := localDay(e.CheckInTime)
		if len(days) == 0 || !days[len(days)-1].Equal(day) {
			days = append(days, day)
		}
	}
	return days
}
