package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lifeconnect/lifeconnect-api/internal/domain"
	"github.com/lifeconnect/lifeconnect-api/internal/pkg/id"
	"github.com/lifeconnect/lifeconnect-api/internal/pkg/validate"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldTitle          = "title"
	fieldMessage        = "message"
	fieldType           = "type"
	fieldStatus         = "status"
	fieldTargetAudience = "target_audience"
	fieldPriority       = "priority"
	fieldExpiresAt      = "expires_at"
	fieldIsSystemWide   = "is_system_wide"
)

const defaultSendTimeout = 5 * time.Second

type Service interface {
	Create(ctx context.Context, actorID string, req domain.CreateAlertRequest) (*domain.Alert, error)
	CreateAndBroadcast(ctx context.Context, actorID string, req domain.CreateAlertRequest) (*domain.BroadcastResult, error)
	Resend(ctx context.Context, alertID string) (*domain.BroadcastResult, error)
	ArchiveExpired(ctx context.Context) (int, error)
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	List(ctx context.Context) ([]domain.Alert, error)
	ListActive(ctx context.Context) ([]domain.Alert, error)
	ListByAudience(ctx context.Context, audience string) ([]domain.Alert, error)
	ListByCreator(ctx context.Context, userID string) ([]domain.Alert, error)
	Update(ctx context.Context, actorID, alertID string, req domain.UpdateAlertRequest) (*domain.Alert, error)
	Delete(ctx context.Context, actorID, alertID string) error
}

type alertStore interface {
	Put(ctx context.Context, a *domain.Alert) error
	Get(ctx context.Context, alertID string) (*domain.Alert, error)
	Update(ctx context.Context, alertID string, updates map[string]interface{}) error
	BulkUpdateStatus(ctx context.Context, alertIDs []string, status string) (int, error)
	Delete(ctx context.Context, alertID string) error
	ListAll(ctx context.Context) ([]domain.Alert, error)
	ListByStatus(ctx context.Context, status string) ([]domain.Alert, error)
	ListByCreator(ctx context.Context, userID string) ([]domain.Alert, error)
	ListByAudience(ctx context.Context, audience string) ([]domain.Alert, error)
	FindExpired(ctx context.Context, now time.Time) ([]domain.Alert, error)
}

type identityStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	FindActiveByType(ctx context.Context, userType string) ([]domain.User, error)
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

type adminNotifier interface {
	PublishAdminEvent(ctx context.Context, subject, message string) error
}

type service struct {
	repo        alertStore
	resolver    *Resolver
	identity    identityStore
	mailer      mailSender
	notifier    adminNotifier // nil disables admin event notifications
	sendTimeout time.Duration
	now         func() time.Time
}

type ServiceDeps struct {
	AlertRepo   alertStore
	UserRepo    identityStore
	Mailer      mailSender
	Notifier    adminNotifier
	SendTimeout time.Duration
}

func NewService(deps ServiceDeps) Service {
	timeout := deps.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	return &service{
		repo:        deps.AlertRepo,
		resolver:    NewResolver(deps.UserRepo),
		identity:    deps.UserRepo,
		mailer:      deps.Mailer,
		notifier:    deps.Notifier,
		sendTimeout: timeout,
		now:         time.Now,
	}
}

// requireAdmin loads the acting user and verifies the admin role. Alert
// mutations are admin-only at this boundary, not inside the store.
func (s *service) requireAdmin(ctx context.Context, actorID string) (*domain.User, error) {
	u, err := s.identity.Get(ctx, actorID)
	if err != nil {
		return nil, fmt.Errorf("only admins can manage alerts: %w", domain.ErrForbidden)
	}
	if u.UserType != domain.UserTypeAdmin {
		return nil, fmt.Errorf("only admins can manage alerts: %w", domain.ErrForbidden)
	}
	return u, nil
}

func (s *service) Create(ctx context.Context, actorID string, req domain.CreateAlertRequest) (*domain.Alert, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	expiresAt, err := parseExpiry(req.ExpiresAt)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	a := &domain.Alert{
		AlertID:        id.New(),
		Title:          req.Title,
		Message:        req.Message,
		Type:           domain.AlertTypeInfo,
		Status:         domain.AlertStatusActive,
		TargetAudience: domain.AudienceAll,
		IsSystemWide:   true,
		ExpiresAt:      expiresAt,
		UserID:         actorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Type != "" {
		a.Type = req.Type
	}
	if req.TargetAudience != "" {
		a.TargetAudience = req.TargetAudience
	}
	if req.Priority != nil {
		a.Priority = *req.Priority
	}
	if req.IsSystemWide != nil {
		a.IsSystemWide = *req.IsSystemWide
	}

	if err := s.repo.Put(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) CreateAndBroadcast(ctx context.Context, actorID string, req domain.CreateAlertRequest) (*domain.BroadcastResult, error) {
	a, err := s.Create(ctx, actorID, req)
	if err != nil {
		return nil, err
	}

	result, err := s.broadcast(ctx, a)
	if err != nil {
		return nil, err
	}
	result.Alert = a

	if a.Priority == 3 && s.notifier != nil {
		subject := "Critical alert broadcast: " + a.Title
		msg := fmt.Sprintf("Alert %s (%s) broadcast to audience %q: %d sent, %d failed.",
			a.AlertID, a.Type, a.TargetAudience, result.SentCount, result.FailedCount)
		if err := s.notifier.PublishAdminEvent(ctx, subject, msg); err != nil {
			slog.Warn("admin event notification failed", "alert_id", a.AlertID, "err", err)
		}
	}
	return result, nil
}

func (s *service) Resend(ctx context.Context, alertID string) (*domain.BroadcastResult, error) {
	a, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AlertStatusActive {
		return nil, fmt.Errorf("only active alerts can be sent: %w", domain.ErrInvalidState)
	}
	result, err := s.broadcast(ctx, a)
	if err != nil {
		return nil, err
	}
	result.Alert = a
	return result, nil
}

// broadcast resolves the audience and delivers. An empty audience is a
// reported outcome, never an error; delivery failures never roll back the
// alert record.
func (s *service) broadcast(ctx context.Context, a *domain.Alert) (*domain.BroadcastResult, error) {
	recipients, err := s.resolver.Resolve(ctx, a.TargetAudience)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return &domain.BroadcastResult{
			Success: false,
			Message: fmt.Sprintf("No active users found for target audience: %s", a.TargetAudience),
		}, nil
	}
	result := s.deliver(ctx, a, recipients)
	return &result, nil
}

// ArchiveExpired transitions every active alert whose expiry has passed to
// expired, returning the count. Running it again immediately finds nothing.
func (s *service) ArchiveExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.FindExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}
	ids := make([]string, len(expired))
	for i := range expired {
		ids[i] = expired[i].AlertID
	}
	return s.repo.BulkUpdateStatus(ctx, ids, domain.AlertStatusExpired)
}

func (s *service) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	return s.repo.Get(ctx, alertID)
}

func (s *service) List(ctx context.Context) ([]domain.Alert, error) {
	return s.repo.ListAll(ctx)
}

func (s *service) ListActive(ctx context.Context) ([]domain.Alert, error) {
	return s.repo.ListByStatus(ctx, domain.AlertStatusActive)
}

func (s *service) ListByAudience(ctx context.Context, audience string) ([]domain.Alert, error) {
	if _, ok := audienceUserTypes[audience]; !ok {
		return nil, fmt.Errorf("invalid audience %q: %w", audience, domain.ErrBadRequest)
	}
	return s.repo.ListByAudience(ctx, audience)
}

func (s *service) ListByCreator(ctx context.Context, userID string) ([]domain.Alert, error) {
	return s.repo.ListByCreator(ctx, userID)
}

func (s *service) Update(ctx context.Context, actorID, alertID string, req domain.UpdateAlertRequest) (*domain.Alert, error) {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrBadRequest)
	}

	a, err := s.repo.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		updates[fieldTitle] = *req.Title
	}
	if req.Message != nil {
		updates[fieldMessage] = *req.Message
	}
	if req.Type != nil {
		updates[fieldType] = *req.Type
	}
	if req.Status != nil && *req.Status != a.Status {
		// Status only ever moves away from active.
		if a.Status != domain.AlertStatusActive {
			return nil, fmt.Errorf("cannot change status of %s alert: %w", a.Status, domain.ErrInvalidState)
		}
		updates[fieldStatus] = *req.Status
	}
	if req.TargetAudience != nil {
		updates[fieldTargetAudience] = *req.TargetAudience
	}
	if req.Priority != nil {
		updates[fieldPriority] = *req.Priority
	}
	if req.ExpiresAt != nil {
		t, err := parseExpiry(req.ExpiresAt)
		if err != nil {
			return nil, err
		}
		updates[fieldExpiresAt] = t
	}
	if req.IsSystemWide != nil {
		updates[fieldIsSystemWide] = *req.IsSystemWide
	}
	if len(updates) == 0 {
		return a, nil
	}
	if err := s.repo.Update(ctx, alertID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, alertID)
}

func (s *service) Delete(ctx context.Context, actorID, alertID string) error {
	if _, err := s.requireAdmin(ctx, actorID); err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, alertID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, alertID)
}

func parseExpiry(raw *string) (*time.Time, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		return nil, fmt.Errorf("expires_at must be RFC 3339: %w", domain.ErrBadRequest)
	}
	t = t.UTC()
	return &t, nil
}
