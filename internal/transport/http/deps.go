package http

import (
	"context"
	"time"

	"github.com/lifeconnect/lifeconnect-api/internal/domain"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	FindActiveByType(ctx context.Context, userType string) ([]domain.User, error)
}

// AlertRepository is the minimal interface the router requires from an alert store.
type AlertRepository interface {
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
