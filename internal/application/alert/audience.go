package alert

import (
	"context"
	"fmt"

	"github.com/lifeconnect/lifeconnect-api/internal/domain"
)

// audienceUserTypes maps a target-audience tag to the user type it selects.
// The empty string selects every type.
var audienceUserTypes = map[string]string{
	domain.AudienceAll:      "",
	domain.AudienceDonors:   domain.UserTypeDonor,
	domain.AudienceManagers: domain.UserTypeManager,
	domain.AudienceAdmins:   domain.UserTypeAdmin,
}

// Resolver computes the concrete recipient set for a target audience.
type Resolver struct {
	identity identityStore
}

func NewResolver(identity identityStore) *Resolver {
	return &Resolver{identity: identity}
}

// Resolve returns every active recipient matching targetAudience. An empty
// result is not an error; the caller decides what an empty audience means.
func (r *Resolver) Resolve(ctx context.Context, targetAudience string) ([]domain.Recipient, error) {
	userType, ok := audienceUserTypes[targetAudience]
	if !ok {
		return nil, fmt.Errorf("invalid audience %q: %w", targetAudience, domain.ErrBadRequest)
	}
	users, err := r.identity.FindActiveByType(ctx, userType)
	if err != nil {
		return nil, err
	}
	recipients := make([]domain.Recipient, 0, len(users))
	for i := range users {
		if !users[i].IsActive {
			continue
		}
		recipients = append(recipients, users[i].AsRecipient())
	}
	return recipients, nil
}
