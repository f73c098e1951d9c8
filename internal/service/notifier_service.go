package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/college-enroll-api/internal/models"
	"github.com/noah-isme/college-enroll-api/pkg/jobs"
)

// EventSender delivers a notification event to the external notification
// service.
type EventSender interface {
	Send(ctx context.Context, event models.NotificationEvent) error
}

// NotifierService is the boundary between the enrollment engine and
// notification delivery. Emit is called only after a decision committed;
// delivery itself is asynchronous and retried by the queue.
type NotifierService struct {
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// NewNotifierService wires the sender behind a worker queue.
func NewNotifierService(sender EventSender, cfg jobs.QueueConfig, enabled bool, logger *zap.Logger) *NotifierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotifierService{logger: logger, enabled: enabled}
	if !enabled || sender == nil {
		return s
	}
	s.queue = jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.NotificationEvent)
		if !ok {
			logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
			return nil
		}
		return sender.Send(ctx, event)
	}, cfg)
	return s
}

// Start launches delivery workers.
func (s *NotifierService) Start(ctx context.Context) {
	if s.queue != nil {
		s.queue.Start(ctx)
	}
}

// Stop drains the workers.
func (s *NotifierService) Stop() {
	if s.queue != nil {
		s.queue.Stop()
	}
}

// Emit hands an event to the delivery queue. A full buffer or a disabled
// notifier only logs: the decision already committed and must not be
// rolled back over a notification.
func (s *NotifierService) Emit(event models.NotificationEvent) {
	if s.queue == nil {
		if s.enabled {
			s.logger.Warn("notifier has no sender, dropping event", zap.String("request_id", event.RequestID))
		}
		return
	}
	queued, err := s.queue.TryEnqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    string(event.Kind),
		Payload: event,
	})
	if err != nil {
		s.logger.Error("failed to enqueue notification", zap.String("request_id", event.RequestID), zap.Error(err))
		return
	}
	if !queued {
		s.logger.Warn("notification queue full, dropping event",
			zap.String("request_id", event.RequestID),
			zap.String("kind", string(event.Kind)))
	}
}
