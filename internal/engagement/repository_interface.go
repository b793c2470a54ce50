package engagement

import (
	"context"
	"time"
)

type Repository interface {
	CreateCheckIn(ctx context.Context, event *CheckInEvent) (*CheckInEvent, error)
	GetCheckInByID(ctx context.Context, id int) (*CheckInEvent, error)
	GetOpenCheckIn(ctx context.Context, memberID, locationID int) (*CheckInEvent, error)
	CloseCheckIn(ctx context.Context, id int, checkOut time.Time, durationMinutes int) error
	ListRecentCheckIns(ctx context.Context, memberID, limit int) ([]CheckInEvent, error)
	CountCheckIns(ctx context.Context, memberID int) (int, error)
	CountActivePlans(ctx context.Context, memberID int) (int, error)
	CountCompletedChallenges(ctx context.Context, memberID int) (int, error)
	CountCompletedWorkouts(ctx context.Context, memberID int) (int, error)
	UpsertEngagement(ctx context.Context, record *EngagementRecord) error
	GetEngagement(ctx context.Context, memberID int) (*EngagementRecord, error)
	ListAchievements(ctx context.Context, memberID int) ([]Achievement, error)
	HasAchievement(ctx context.Context, memberID int, title string) (bool, error)
	InsertAchievement(ctx context.Context, achievement *Achievement) (*Achievement, error)
}
