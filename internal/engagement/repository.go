package engagement

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

const checkInColumns = `id, member_id, location_id, method, check_in_time, check_out_time,
		duration_minutes, created_at`

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateCheckIn(ctx context.Context, event *CheckInEvent) (*CheckInEvent, error) {
	query := `
		INSERT INTO check_in_events (member_id, location_id, method, check_in_time)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + checkInColumns

	var created CheckInEvent
	err := r.db.GetContext(ctx, &created, query,
		event.MemberID, event.LocationID, event.Method, event.CheckInTime)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (r *repository) GetCheckInByID(ctx context.Context, id int) (*CheckInEvent, error) {
	query := `SELECT ` + checkInColumns + ` FROM check_in_events WHERE id = $1`

	var event CheckInEvent
	err := r.db.GetContext(ctx, &event, query, id)
	if err != nil {
		return nil, err
	}

	return &event, nil
}

func (r *repository) GetOpenCheckIn(ctx context.Context, memberID, locationID int) (*CheckInEvent, error) {
	query := `
		SELECT ` + checkInColumns + `
		FROM check_in_events
		WHERE member_id = $1 AND location_id = $2 AND check_out_time IS NULL
		ORDER BY check_in_time DESC
		LIMIT 1
	`

	var event CheckInEvent
	err := r.db.GetContext(ctx, &event, query, memberID, locationID)
	if err != nil {
		return nil, err
	}

	return &event, nil
}

func (r *repository) CloseCheckIn(ctx context.Context, id int, checkOut time.Time, durationMinutes int) error {
	query := `
		UPDATE check_in_events
		SET check_out_time = $2, duration_minutes = $3
		WHERE id = $1 AND check_out_time IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, id, checkOut, durationMinutes)
	return err
}

func (r *repository) ListRecentCheckIns(ctx context.Context, memberID, limit int) ([]CheckInEvent, error) {
	query := `
		SELECT ` + checkInColumns + `
		FROM check_in_events
		WHERE member_id = $1
		ORDER BY check_in_time DESC
		LIMIT $2
	`

	var events []CheckInEvent
	err := r.db.SelectContext(ctx, &events, query, memberID, limit)
	if err != nil {
		return nil, err
	}

	return events, nil
}

func (r *repository) CountCheckIns(ctx context.Context, memberID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM check_in_events WHERE member_id = $1`, memberID)
	return count, err
}

func (r *repository) CountActivePlans(ctx context.Context, memberID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM workout_plans WHERE member_id = $1 AND active = TRUE`, memberID)
	return count, err
}

func (r *repository) CountCompletedChallenges(ctx context.Context, memberID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM challenge_completions WHERE member_id = $1`, memberID)
	return count, err
}

func (r *repository) CountCompletedWorkouts(ctx context.Context, memberID int) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM sessions WHERE member_id = $1 AND status = 'completed'`, memberID)
	return count, err
}

func (r *repository) UpsertEngagement(ctx context.Context, record *EngagementRecord) error {
	query := `
		INSERT INTO engagement_records
			(member_id, score, check_in_count, check_in_streak, last_check_in,
			 workout_completions, challenge_completions, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (member_id) DO UPDATE SET
			score = EXCLUDED.score,
			check_in_count = EXCLUDED.check_in_count,
			check_in_streak = EXCLUDED.check_in_streak,
			last_check_in = EXCLUDED.last_check_in,
			workout_completions = EXCLUDED.workout_completions,
			challenge_completions = EXCLUDED.challenge_completions,
			last_updated = NOW()
	`

	_, err := r.db.ExecContext(ctx, query,
		record.MemberID, record.Score, record.CheckInCount, record.CheckInStreak,
		record.LastCheckIn, record.WorkoutCompletions, record.ChallengeCompletions)
	return err
}

func (r *repository) GetEngagement(ctx context.Context, memberID int) (*EngagementRecord, error) {
	query := `
		SELECT id, member_id, score, check_in_count, check_in_streak, last_check_in,
			workout_completions, challenge_completions, social_interactions, last_updated
		FROM engagement_records
		WHERE member_id = $1
	`

	var record EngagementRecord
	err := r.db.GetContext(ctx, &record, query, memberID)
	if err != nil {
		return nil, err
	}

	return &record, nil
}

func (r *repository) ListAchievements(ctx context.Context, memberID int) ([]Achievement, error) {
	query := `
		SELECT id, member_id, title, description, icon, trigger_count, unlocked_at
		FROM achievements
		WHERE member_id = $1
		ORDER BY unlocked_at DESC
	`

	var achievements []Achievement
	err := r.db.SelectContext(ctx, &achievements, query, memberID)
	if err != nil {
		return nil, err
	}

	return achievements, nil
}

func (r *repository) HasAchievement(ctx context.Context, memberID int, title string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM achievements WHERE member_id = $1 AND title = $2)`,
		memberID, title)
	return exists, err
}

func (r *repository) InsertAchievement(ctx context.Context, achievement *Achievement) (*Achievement, error) {
	query := `
		INSERT INTO achievements (member_id, title, description, icon, trigger_count, unlocked_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (member_id, title) DO NOTHING
		RETURNING id, member_id, title, description, icon, trigger_count, unlocked_at
	`

	var created Achievement
	err := r.db.GetContext(ctx, &created, query,
		achievement.MemberID, achievement.Title, achievement.Description,
		achievement.Icon, achievement.TriggerCount, achievement.UnlockedAt)
	if err != nil {
		return nil, err
	}

	return &created, nil
}
