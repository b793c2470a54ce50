package notify

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitclub/internal/logger"
)

// fakeQueue records pushes in memory.
type fakeQueue struct {
	mu      sync.Mutex
	items   [][]byte
	failed  [][]byte
	pushErr error
}

func (q *fakeQueue) Push(ctx context.Context, payload []byte) error {
	if q.pushErr != nil {
		return q.pushErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, payload)
	return nil
}

func (q *fakeQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, errors.New("empty")
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, nil
}

func (q *fakeQueue) PushFailed(ctx context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.failed = append(q.failed, payload)
	return nil
}

func (q *fakeQueue) Len(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.items)), nil
}

func (q *fakeQueue) Close() error { return nil }

func newTestService(q queue) *Service {
	return &Service{
		queue:    q,
		from:     "noreply@fitclub.local",
		fromName: "FitClub",
		smtpHost: "localhost",
		smtpPort: "1",
	}
}

func TestMain(m *testing.M) {
	// logger globals are touched by Send/processNext
	logger.Init()
	os.Exit(m.Run())
}

func TestSendEnqueues(t *testing.T) {
	q := &fakeQueue{}
	s := newTestService(q)

	err := s.Send(context.Background(), Event{
		Kind:        KindBookingConfirmed,
		RecipientID: 7,
		Email:       "m@fitclub.local",
		Name:        "Mia",
		Title:       "Session Confirmed",
		Message:     "see you there",
	})
	require.NoError(t, err)
	require.Len(t, q.items, 1)

	var event Event
	require.NoError(t, json.Unmarshal(q.items[0], &event))
	assert.Equal(t, KindBookingConfirmed, event.Kind)
	assert.Equal(t, 7, event.RecipientID)
	assert.False(t, event.Created.IsZero())
}

func TestSendEnqueueFailurePropagates(t *testing.T) {
	q := &fakeQueue{pushErr: errors.New("redis down")}
	s := newTestService(q)

	err := s.Send(context.Background(), Event{Kind: KindAchievementUnlocked, Email: "m@fitclub.local"})
	assert.Error(t, err)
}

func TestWorkerMovesExhaustedEventToFailedQueue(t *testing.T) {
	q := &fakeQueue{}
	s := newTestService(q)

	// smtp at localhost:1 refuses connections, so every delivery fails
	event := Event{Kind: KindBookingConfirmed, Email: "m@fitclub.local", Tries: maxTries - 1}
	data, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, q.Push(context.Background(), data))

	s.processNext(context.Background())

	assert.Empty(t, q.items)
	require.Len(t, q.failed, 1)
	assert.Contains(t, string(q.failed[0]), "booking_confirmed")
}

func TestWorkerRequeuesBeforeGivingUp(t *testing.T) {
	q := &fakeQueue{}
	s := newTestService(q)

	event := Event{Kind: KindBookingConfirmed, Email: "m@fitclub.local", Tries: 0}
	data, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, q.Push(context.Background(), data))

	s.processNext(context.Background())

	require.Len(t, q.items, 1)
	assert.Empty(t, q.failed)

	var requeued Event
	require.NoError(t, json.Unmarshal(q.items[0], &requeued))
	assert.Equal(t, 1, requeued.Tries)
}

func TestQueueLength(t *testing.T) {
	q := &fakeQueue{}
	s := newTestService(q)

	require.NoError(t, q.Push(context.Background(), []byte("{}")))
	assert.Equal(t, int64(1), s.QueueLength(context.Background()))
}
