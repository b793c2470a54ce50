// Package notify queues notification events in Redis and delivers them over
// SMTP from a background worker. Dispatch is best-effort: producers enqueue
// and move on, delivery failures are retried by the worker and never surface
// to the request path.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"time"

	"github.com/redis/go-redis/v9"

	"fitclub/internal/logger"
	"fitclub/internal/metrics"
)

const (
	queueKey       = "notifications"
	failedQueueKey = "notifications:failed"
	maxTries       = 3
)

type Kind string

const (
	KindBookingConfirmed     Kind = "booking_confirmed"
	KindBookingCancelled     Kind = "booking_cancelled"
	KindReservationConfirmed Kind = "reservation_confirmed"
	KindAchievementUnlocked  Kind = "achievement_unlocked"
)

// Event is one queued notification.
type Event struct {
	Kind        Kind      `json:"kind"`
	RecipientID int       `json:"recipient_id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Link        string    `json:"link,omitempty"`
	Tries       int       `json:"tries"`
	Created     time.Time `json:"created"`
}

// Dispatcher is the narrow interface booking and engagement services depend
// on; *Service implements it.
type Dispatcher interface {
	Send(ctx context.Context, event Event) error
}

// queue abstracts the Redis list so the worker loop is testable without a
// live server.
type queue interface {
	Push(ctx context.Context, payload []byte) error
	Pop(ctx context.Context, timeout time.Duration) ([]byte, error)
	PushFailed(ctx context.Context, payload []byte) error
	Len(ctx context.Context) (int64, error)
	Close() error
}

type redisQueue struct {
	client *redis.Client
}

func (q *redisQueue) Push(ctx context.Context, payload []byte) error {
	return q.client.LPush(ctx, queueKey, payload).Err()
}

func (q *redisQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	result, err := q.client.BRPop(ctx, timeout, queueKey).Result()
	if err != nil {
		return nil, err
	}
	return []byte(result[1]), nil
}

func (q *redisQueue) PushFailed(ctx context.Context, payload []byte) error {
	return q.client.LPush(ctx, failedQueueKey, payload).Err()
}

func (q *redisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, queueKey).Result()
}

func (q *redisQueue) Close() error {
	return q.client.Close()
}

type Service struct {
	queue    queue
	from     string
	fromName string
	smtpHost string
	smtpPort string
	smtpUser string
	smtpPass string
}

func New(fromEmail, fromName, smtpHost, smtpPort, smtpUser, smtpPass, redisAddr string) *Service {
	return &Service{
		queue: &redisQueue{client: redis.NewClient(&redis.Options{
			Addr: redisAddr,
		})},
		from:     fromEmail,
		fromName: fromName,
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		smtpUser: smtpUser,
		smtpPass: smtpPass,
	}
}

// Send enqueues the event. The caller gets an error only when the queue push
// itself fails; callers on booking/check-in paths log it and carry on.
func (s *Service) Send(ctx context.Context, event Event) error {
	if event.Created.IsZero() {
		event.Created = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("Failed to marshal notification: %v", err)
		return err
	}

	if err := s.queue.Push(ctx, data); err != nil {
		metrics.RecordNotification(string(event.Kind), "enqueue_failed")
		logger.Errorf("Failed to queue %s notification for member %d: %v", event.Kind, event.RecipientID, err)
		return err
	}

	metrics.RecordNotification(string(event.Kind), "queued")
	logger.Infof("Notification queued: %s for member %d", event.Kind, event.RecipientID)
	return nil
}

// Start runs the delivery worker until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Notification worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Notification worker stopped")
			return
		default:
			s.processNext(ctx)
		}
	}
}

func (s *Service) processNext(ctx context.Context) {
	payload, err := s.queue.Pop(ctx, 2*time.Second)
	if err != nil {
		return
	}

	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		logger.Errorf("Bad notification data: %v", err)
		return
	}

	event.Tries++
	if err := s.deliver(event); err != nil {
		logger.Errorf("Failed to deliver %s to member %d: %v", event.Kind, event.RecipientID, err)

		if event.Tries < maxTries {
			data, _ := json.Marshal(event)
			if err := s.queue.Push(context.Background(), data); err != nil {
				logger.Errorf("Failed to requeue notification: %v", err)
			}
		} else {
			s.saveFailed(event, err)
		}
		return
	}

	metrics.RecordNotification(string(event.Kind), "delivered")
	logger.Infof("Notification delivered: %s to %s", event.Kind, event.Email)
}

func (s *Service) deliver(event Event) error {
	message := fmt.Sprintf("From: %s <%s>\r\n", s.fromName, s.from)
	message += fmt.Sprintf("To: %s\r\n", event.Email)
	message += fmt.Sprintf("Subject: %s\r\n", event.Title)
	message += "\r\n" + event.Message
	if event.Link != "" {
		message += "\r\n\r\n" + event.Link
	}

	var auth smtp.Auth
	if s.smtpUser != "" && s.smtpPass != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPass, s.smtpHost)
	}

	addr := s.smtpHost + ":" + s.smtpPort
	return smtp.SendMail(addr, auth, s.from, []string{event.Email}, []byte(message))
}

func (s *Service) saveFailed(event Event, cause error) {
	failed := map[string]interface{}{
		"event": event,
		"error": cause.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	if err := s.queue.PushFailed(context.Background(), data); err != nil {
		logger.Errorf("Failed to move notification to failed queue: %v", err)
		return
	}
	metrics.RecordNotification(string(event.Kind), "failed")
	logger.Errorf("Notification moved to failed queue: %s for member %d", event.Kind, event.RecipientID)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, err := s.queue.Len(ctx)
	if err != nil {
		return 0
	}
	metrics.NotificationQueueLength.Set(float64(length))
	return length
}

func (s *Service) Close() error {
	return s.queue.Close()
}
