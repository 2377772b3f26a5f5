package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/clock"
	"github.com/deskline/helpdesk/internal/domain"
	"github.com/deskline/helpdesk/internal/observability"
	"github.com/deskline/helpdesk/internal/repository"
	"github.com/deskline/helpdesk/pkg/util/errorutil"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// UnreadCache stores per-user unread counts.
type UnreadCache interface {
	Get(ctx context.Context, userID string) (int64, bool, error)
	Set(ctx context.Context, userID string, count int64) error
	Invalidate(ctx context.Context, userID string) error
}

// Notifier sends a best-effort notification and reports whether it was written.
type Notifier interface {
	Notify(ctx context.Context, in NotificationInput) bool
}

// notifyAll notifies each user in userIDs except skip and returns how many were written.
func notifyAll(ctx context.Context, n Notifier, userIDs []string, skip string, in NotificationInput) int {
	sent := 0
	for _, id := range userIDs {
		if id == skip {
			continue
		}
		in.UserID = id
		if n.Notify(ctx, in) {
			sent++
		}
	}
	return sent
}

// NotificationInput describes one notification to write.
type NotificationInput struct {
	UserID   string
	Type     domain.NotificationType
	Title    string
	Message  string
	TicketID *string
}

// NotificationService writes per-user notifications and queues their emails.
type NotificationService struct {
	repo         repository.NotificationRepository
	cache        UnreadCache
	clock        clock.Clock
	metrics      *observability.Metrics
	logger       *zap.Logger
	emailEnabled bool
}

// NotificationDependencies bundles collaborators for the notification service.
type NotificationDependencies struct {
	Repo         repository.NotificationRepository
	Cache        UnreadCache
	Clock        clock.Clock
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	EmailEnabled bool
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		repo:         deps.Repo,
		cache:        deps.Cache,
		clock:        deps.Clock,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		emailEnabled: deps.EmailEnabled,
	}
}

// Dispatch writes exactly one UNREAD notification and, when email is enabled,
// one outbox entry in the same transaction. Identical calls are not deduplicated.
func (s *NotificationService) Dispatch(ctx context.Context, in NotificationInput) (*domain.Notification, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, errorutil.NewValidationError("recipient is required", nil)
	}
	if !in.Type.Valid() {
		return nil, errorutil.NewValidationError("unknown notification type", map[string]any{"type": in.Type})
	}
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Message) == "" {
		return nil, errorutil.NewValidationError("title and message are required", nil)
	}

	n := &domain.Notification{
		UserID:    in.UserID,
		Type:      in.Type,
		Title:     strings.TrimSpace(in.Title),
		Message:   strings.TrimSpace(in.Message),
		TicketID:  in.TicketID,
		Status:    domain.NotificationUnread,
		CreatedAt: s.clock.Now(),
	}
	var outbox *domain.EmailOutboxEntry
	if s.emailEnabled {
		outbox = &domain.EmailOutboxEntry{Subject: n.Title, Body: n.Message}
	}
	if err := s.repo.Create(ctx, n, outbox); err != nil {
		return nil, errorutil.MapStorage(err, "user", map[string]any{"user_id": in.UserID})
	}
	s.metrics.RecordNotification(string(n.Type))
	s.invalidate(ctx, n.UserID)
	return n, nil
}

// Notify dispatches and swallows failures; lifecycle and evaluation side
// effects must never fail the operation that triggered them.
func (s *NotificationService) Notify(ctx context.Context, in NotificationInput) bool {
	if _, err := s.Dispatch(ctx, in); err != nil {
		fields := []zap.Field{
			zap.String("user_id", in.UserID),
			zap.String("type", string(in.Type)),
			zap.Error(err),
		}
		if in.TicketID != nil {
			fields = append(fields, zap.String("ticket_id", *in.TicketID))
		}
		s.logger.Warn("notification dispatch failed", fields...)
		return false
	}
	return true
}

// MarkRead transitions one notification to READ. Already-read notifications
// are returned unchanged.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, actingUserID string) (*domain.Notification, error) {
	n, err := s.owned(ctx, notificationID, actingUserID)
	if err != nil {
		return nil, err
	}
	if n.Status == domain.NotificationRead {
		return n, nil
	}
	now := s.clock.Now()
	changed, err := s.repo.MarkRead(ctx, n.ID, now)
	if err != nil {
		return nil, errorutil.MapStorage(err, "notification", nil)
	}
	if changed {
		n.Status = domain.NotificationRead
		n.ReadAt = &now
		s.invalidate(ctx, n.UserID)
		return n, nil
	}
	// A concurrent call won the transition; report the stored state.
	return s.owned(ctx, notificationID, actingUserID)
}

// MarkAllRead transitions every UNREAD notification of userID and returns the count.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, s.clock.Now())
	if err != nil {
		return 0, errorutil.MapStorage(err, "notification", nil)
	}
	if count > 0 {
		s.invalidate(ctx, userID)
	}
	return count, nil
}

// List returns userID's notifications newest first.
func (s *NotificationService) List(ctx context.Context, userID string, filter repository.NotificationFilter) ([]domain.Notification, error) {
	if filter.Status != nil && *filter.Status != domain.NotificationUnread && *filter.Status != domain.NotificationRead {
		return nil, errorutil.NewValidationError("unknown notification status", map[string]any{"status": *filter.Status})
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultNotificationLimit
	case filter.Limit > maxNotificationLimit:
		filter.Limit = maxNotificationLimit
	}
	list, err := s.repo.List(ctx, userID, filter)
	if err != nil {
		return nil, errorutil.MapStorage(err, "notification", nil)
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

// UnreadCount serves the cached count when present and falls back to the database.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if s.cache != nil {
		count, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("unread cache read failed", zap.String("user_id", userID), zap.Error(err))
		} else if ok {
			return count, nil
		}
	}
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, errorutil.MapStorage(err, "notification", nil)
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, count); err != nil {
			s.logger.Warn("unread cache write failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return count, nil
}

// Delete removes a notification owned by actingUserID.
func (s *NotificationService) Delete(ctx context.Context, notificationID, actingUserID string) error {
	n, err := s.owned(ctx, notificationID, actingUserID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, n.ID); err != nil {
		return errorutil.MapStorage(err, "notification", nil)
	}
	if n.Status == domain.NotificationUnread {
		s.invalidate(ctx, n.UserID)
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, notificationID, actingUserID string) (*domain.Notification, error) {
	n, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		return nil, errorutil.MapStorage(err, "notification", map[string]any{"notification_id": notificationID})
	}
	if n.UserID != actingUserID {
		return nil, errorutil.NewForbidden("notification belongs to another user")
	}
	return n, nil
}

func (s *NotificationService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("unread cache invalidation failed", zap.String("user_id", userID), zap.Error(err))
	}
}
