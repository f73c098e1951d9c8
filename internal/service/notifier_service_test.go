package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/college-enroll-api/internal/models"
	"github.com/noah-isme/college-enroll-api/pkg/jobs"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []models.NotificationEvent
	failures int
}

func (f *fakeSender) Send(ctx context.Context, event models.NotificationEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("delivery failed")
	}
	f.sent = append(f.sent, event)
	return nil
}

func (f *fakeSender) delivered() []models.NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.NotificationEvent(nil), f.sent...)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestNotifierServiceDelivers(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotifierService(sender, jobs.QueueConfig{Workers: 1, BufferSize: 4}, true, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	event := models.NotificationEvent{RequestID: "r1", StudentID: "s1", SectionID: "sec1", Kind: models.NotificationEnrollmentApproved}
	svc.Emit(event)

	waitFor(t, time.Second, func() bool { return len(sender.delivered()) == 1 })
	assert.Equal(t, event, sender.delivered()[0])
}

func TestNotifierServiceRetriesFailedDelivery(t *testing.T) {
	sender := &fakeSender{failures: 1}
	svc := NewNotifierService(sender, jobs.QueueConfig{Workers: 1, BufferSize: 4, MaxRetries: 3, RetryDelay: 10 * time.Millisecond}, true, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Emit(models.NotificationEvent{RequestID: "r1", Kind: models.NotificationEnrollmentRejected})

	waitFor(t, time.Second, func() bool { return len(sender.delivered()) == 1 })
	assert.Equal(t, "r1", sender.delivered()[0].RequestID)
}

func TestNotifierServiceDisabledDropsSilently(t *testing.T) {
	sender := &fakeSender{}
	svc := NewNotifierService(sender, jobs.QueueConfig{}, false, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	// Must not panic or block; events are dropped when disabled.
	svc.Emit(models.NotificationEvent{RequestID: "r1"})

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, sender.delivered())
}
