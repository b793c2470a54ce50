package notify

import (
	"context"
	"fmt"
	"time"
)

func (s *Service) SendBookingConfirmation(ctx context.Context, memberID int, email, name, trainerName string, when time.Time) error {
	return s.Send(ctx, Event{
		Kind:        KindBookingConfirmed,
		RecipientID: memberID,
		Email:       email,
		Name:        name,
		Title:       "Session Confirmed",
		Message: fmt.Sprintf(`Hi %s,

Your training session is confirmed!

Trainer: %s
Time: %s

See you at the club!

- FitClub Team`, name, trainerName, when.Format("Jan 2, 2006 at 3:04 PM")),
	})
}

func (s *Service) SendBookingCancelled(ctx context.Context, memberID int, email, name, details, outcome string) error {
	return s.Send(ctx, Event{
		Kind:        KindBookingCancelled,
		RecipientID: memberID,
		Email:       email,
		Name:        name,
		Title:       "Booking Cancelled",
		Message: fmt.Sprintf(`Hi %s,

Your booking has been cancelled:

%s
Refund status: %s

- FitClub Team`, name, details, outcome),
	})
}

func (s *Service) SendReservationConfirmation(ctx context.Context, memberID int, email, name, equipmentName string, start, end time.Time) error {
	return s.Send(ctx, Event{
		Kind:        KindReservationConfirmed,
		RecipientID: memberID,
		Email:       email,
		Name:        name,
		Title:       "Equipment Reserved",
		Message: fmt.Sprintf(`Hi %s,

Your reservation is confirmed!

Equipment: %s
From: %s
Until: %s

- FitClub Team`, name, equipmentName, start.Format("Jan 2, 2006 at 3:04 PM"), end.Format("3:04 PM")),
	})
}

func (s *Service) SendAchievementUnlocked(ctx context.Context, memberID int, email, name, title, description string) error {
	return s.Send(ctx, Event{
		Kind:        KindAchievementUnlocked,
		RecipientID: memberID,
		Email:       email,
		Name:        name,
		Title:       "Achievement Unlocked: " + title,
		Message: fmt.Sprintf(`Hi %s,

You just unlocked "%s"!

%s

Keep it up!

- FitClub Team`, name, title, description),
		Link: "/achievements",
	})
}
