package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lifeconnect/lifeconnect-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockAlertStore struct{ mock.Mock }

func (m *mockAlertStore) Put(ctx context.Context, a *domain.Alert) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockAlertStore) Get(ctx context.Context, alertID string) (*domain.Alert, error) {
	args := m.Called(ctx, alertID)
	if a, _ := args.Get(0).(*domain.Alert); a != nil {
		return a, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockAlertStore) Update(ctx context.Context, alertID string, updates map[string]interface{}) error {
	return m.Called(ctx, alertID, updates).Error(0)
}
func (m *mockAlertStore) BulkUpdateStatus(ctx context.Context, alertIDs []string, status string) (int, error) {
	args := m.Called(ctx, alertIDs, status)
	return args.Int(0), args.Error(1)
}
func (m *mockAlertStore) Delete(ctx context.Context, alertID string) error {
	return m.Called(ctx, alertID).Error(0)
}
func (m *mockAlertStore) ListAll(ctx context.Context) ([]domain.Alert, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Alert), args.Error(1)
}
func (m *mockAlertStore) ListByStatus(ctx context.Context, status string) ([]domain.Alert, error) {
	args := m.Called(ctx, status)
	return args.Get(0).([]domain.Alert), args.Error(1)
}
func (m *mockAlertStore) ListByCreator(ctx context.Context, userID string) ([]domain.Alert, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Alert), args.Error(1)
}
func (m *mockAlertStore) ListByAudience(ctx context.Context, audience string) ([]domain.Alert, error) {
	args := m.Called(ctx, audience)
	return args.Get(0).([]domain.Alert), args.Error(1)
}
func (m *mockAlertStore) FindExpired(ctx context.Context, now time.Time) ([]domain.Alert, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]domain.Alert), args.Error(1)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) PublishAdminEvent(ctx context.Context, subject, message string) error {
	return m.Called(ctx, subject, message).Error(0)
}

// fakeMailer records deliveries and fails addresses listed in failFor.
// Safe for concurrent use.
type fakeMailer struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]bool
	delay   time.Duration
}

func (f *fakeMailer) SendEmail(to, subject, body string) error {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[to] {
		return errors.New("smtp: delivery refused")
	}
	f.sent = append(f.sent, to)
	return nil
}

func (f *fakeMailer) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// --- helpers ---

func ptr[T any](v T) *T { return &v }

func adminAndDonors() []domain.User {
	return []domain.User{
		{UserID: "admin1", Email: "admin@example.com", Name: "Ana", UserType: domain.UserTypeAdmin, IsActive: true},
		{UserID: "d1", Email: "d1@example.com", Name: "Dana", UserType: domain.UserTypeDonor, IsActive: true},
		{UserID: "d2", Email: "d2@example.com", Name: "Dev", UserType: domain.UserTypeDonor, IsActive: true},
		{UserID: "d3", Email: "d3@example.com", Name: "Drew", UserType: domain.UserTypeDonor, IsActive: true},
	}
}

func shortageReq() domain.CreateAlertRequest {
	return domain.CreateAlertRequest{
		Title:          "Blood Shortage",
		Message:        "O- blood critically low, please donate",
		TargetAudience: domain.AudienceDonors,
		Priority:       ptr(3),
	}
}

func newTestService(store *mockAlertStore, users []domain.User, mailer *fakeMailer, notifier adminNotifier) Service {
	return NewService(ServiceDeps{
		AlertRepo:   store,
		UserRepo:    &fakeIdentityStore{users: users},
		Mailer:      mailer,
		Notifier:    notifier,
		SendTimeout: time.Second,
	})
}

// --- Create tests ---

func TestCreate_NonAdmin_Forbidden(t *testing.T) {
	store := &mockAlertStore{}
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	_, err := svc.Create(context.Background(), "d1", shortageReq())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreate_UnknownActor_Forbidden(t *testing.T) {
	store := &mockAlertStore{}
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	_, err := svc.Create(context.Background(), "ghost", shortageReq())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreate_TitleTooShort(t *testing.T) {
	store := &mockAlertStore{}
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	req := shortageReq()
	req.Title = "ab"
	_, err := svc.Create(context.Background(), "admin1", req)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestCreate_MessageTooShort(t *testing.T) {
	svc := newTestService(&mockAlertStore{}, adminAndDonors(), &fakeMailer{}, nil)

	req := shortageReq()
	req.Message = "too short"
	_, err := svc.Create(context.Background(), "admin1", req)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_InvalidExpiry(t *testing.T) {
	svc := newTestService(&mockAlertStore{}, adminAndDonors(), &fakeMailer{}, nil)

	req := shortageReq()
	req.ExpiresAt = ptr("tomorrow-ish")
	_, err := svc.Create(context.Background(), "admin1", req)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestCreate_Defaults(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.Alert")).Return(nil)
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	a, err := svc.Create(context.Background(), "admin1", domain.CreateAlertRequest{
		Title:   "Maintenance window",
		Message: "The system will be briefly unavailable tonight.",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.AlertTypeInfo, a.Type)
	assert.Equal(t, domain.AlertStatusActive, a.Status)
	assert.Equal(t, domain.AudienceAll, a.TargetAudience)
	assert.Equal(t, 0, a.Priority)
	assert.True(t, a.IsSystemWide)
	assert.Equal(t, "admin1", a.UserID)
	store.AssertExpectations(t)
}

// --- CreateAndBroadcast tests ---

func TestCreateAndBroadcast_PartialFailure(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.Alert")).Return(nil)
	mailer := &fakeMailer{failFor: map[string]bool{"d2@example.com": true}}
	svc := newTestService(store, adminAndDonors(), mailer, nil)

	result, err := svc.CreateAndBroadcast(context.Background(), "admin1", shortageReq())

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.SentCount)
	assert.Equal(t, 1, result.FailedCount)
	require.NotNil(t, result.Alert)
	assert.Equal(t, domain.AlertStatusActive, result.Alert.Status)
}

func TestCreateAndBroadcast_CountsCoverWholeAudience(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.Alert")).Return(nil)
	mailer := &fakeMailer{failFor: map[string]bool{"d1@example.com": true, "d3@example.com": true}}
	svc := newTestService(store, adminAndDonors(), mailer, nil)

	result, err := svc.CreateAndBroadcast(context.Background(), "admin1", shortageReq())

	require.NoError(t, err)
	assert.Equal(t, 3, result.SentCount+result.FailedCount)
}

func TestCreateAndBroadcast_AllDeliveriesFail(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.Alert")).Return(nil)
	mailer := &fakeMailer{failFor: map[string]bool{
		"d1@example.com": true, "d2@example.com": true, "d3@example.com": true,
	}}
	svc := newTestService(store, adminAndDonors(), mailer, nil)

	result, err := svc.CreateAndBroadcast(context.Background(), "admin1", shortageReq())

	require.NoError(t, err, "total delivery failure is a reported outcome, not an error")
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.SentCount)
	assert.Equal(t, 3, result.FailedCount)
}

func TestCreateAndBroadcast_EmptyAudience(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.Alert")).Return(nil)
	mailer := &fakeMailer{}
	// Only the admin exists; no active donors.
	users := []domain.User{
		{UserID: "admin1", Email: "admin@example.com", UserType: domain.UserTypeAdmin, IsActive: true},
	}
	svc := newTestService(store, users, mailer, nil)

	result, err := svc.CreateAndBroadcast(context.Background(), "admin1", shortageReq())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.SentCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Equal(t, 0, mailer.sentCount())
	// The alert is persisted even though nobody received it.
	store.AssertCalled(t, "Put", mock.Anything, mock.AnythingOfType("*domain.Alert"))
}

func TestCreateAndBroadcast_SlowSendTimesOut(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.Alert")).Return(nil)
	mailer := &fakeMailer{delay: 200 * time.Millisecond}
	svc := NewService(ServiceDeps{
		AlertRepo:   store,
		UserRepo:    &fakeIdentityStore{users: adminAndDonors()},
		Mailer:      mailer,
		SendTimeout: 20 * time.Millisecond,
	})

	result, err := svc.CreateAndBroadcast(context.Background(), "admin1", shortageReq())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.FailedCount)
}

func TestCreateAndBroadcast_CriticalAlertNotifiesAdmins(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.Alert")).Return(nil)
	notifier := &mockNotifier{}
	notifier.On("PublishAdminEvent", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, notifier)

	_, err := svc.CreateAndBroadcast(context.Background(), "admin1", shortageReq())

	require.NoError(t, err)
	notifier.AssertExpectations(t)
}

func TestCreateAndBroadcast_LowPriorityDoesNotNotify(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Put", mock.Anything, mock.AnythingOfType("*domain.Alert")).Return(nil)
	notifier := &mockNotifier{}
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, notifier)

	req := shortageReq()
	req.Priority = ptr(1)
	_, err := svc.CreateAndBroadcast(context.Background(), "admin1", req)

	require.NoError(t, err)
	notifier.AssertNotCalled(t, "PublishAdminEvent", mock.Anything, mock.Anything, mock.Anything)
}

// --- Resend tests ---

func TestResend_NotFound(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	_, err := svc.Resend(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResend_ArchivedAlert_InvalidState(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Get", mock.Anything, "al1").Return(&domain.Alert{
		AlertID:        "al1",
		Status:         domain.AlertStatusArchived,
		TargetAudience: domain.AudienceDonors,
	}, nil)
	mailer := &fakeMailer{}
	svc := newTestService(store, adminAndDonors(), mailer, nil)

	_, err := svc.Resend(context.Background(), "al1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Equal(t, 0, mailer.sentCount())
}

func TestResend_ActiveAlert_Broadcasts(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Get", mock.Anything, "al1").Return(&domain.Alert{
		AlertID:        "al1",
		Title:          "Blood Shortage",
		Message:        "O- blood critically low, please donate",
		Type:           domain.AlertTypeWarning,
		Status:         domain.AlertStatusActive,
		TargetAudience: domain.AudienceDonors,
	}, nil)
	mailer := &fakeMailer{}
	svc := newTestService(store, adminAndDonors(), mailer, nil)

	result, err := svc.Resend(context.Background(), "al1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.SentCount)
	assert.Equal(t, 0, result.FailedCount)
}

// --- ArchiveExpired tests ---

func TestArchiveExpired_TransitionsAndReturnsCount(t *testing.T) {
	store := &mockAlertStore{}
	store.On("FindExpired", mock.Anything, mock.Anything).Return([]domain.Alert{
		{AlertID: "al1"}, {AlertID: "al2"},
	}, nil)
	store.On("BulkUpdateStatus", mock.Anything, []string{"al1", "al2"}, domain.AlertStatusExpired).Return(2, nil)
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	n, err := svc.ArchiveExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	store.AssertExpectations(t)
}

func TestArchiveExpired_SecondRunFindsNothing(t *testing.T) {
	store := &mockAlertStore{}
	store.On("FindExpired", mock.Anything, mock.Anything).Return([]domain.Alert{{AlertID: "al1"}}, nil).Once()
	store.On("BulkUpdateStatus", mock.Anything, []string{"al1"}, domain.AlertStatusExpired).Return(1, nil).Once()
	store.On("FindExpired", mock.Anything, mock.Anything).Return([]domain.Alert{}, nil).Once()
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	first, err := svc.ArchiveExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := svc.ArchiveExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	store.AssertNumberOfCalls(t, "BulkUpdateStatus", 1)
}

// --- Update tests ---

func TestUpdate_NonAdmin_Forbidden(t *testing.T) {
	svc := newTestService(&mockAlertStore{}, adminAndDonors(), &fakeMailer{}, nil)
	_, err := svc.Update(context.Background(), "d1", "al1", domain.UpdateAlertRequest{Title: ptr("New title")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdate_StatusChangeOnArchivedAlert_InvalidState(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Get", mock.Anything, "al1").Return(&domain.Alert{
		AlertID: "al1", Status: domain.AlertStatusArchived,
	}, nil)
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	_, err := svc.Update(context.Background(), "admin1", "al1", domain.UpdateAlertRequest{
		Status: ptr(domain.AlertStatusActive),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_EmptyRequest_ReturnsExisting(t *testing.T) {
	store := &mockAlertStore{}
	existing := &domain.Alert{AlertID: "al1", Status: domain.AlertStatusActive, Title: "Old"}
	store.On("Get", mock.Anything, "al1").Return(existing, nil)
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	a, err := svc.Update(context.Background(), "admin1", "al1", domain.UpdateAlertRequest{})

	require.NoError(t, err)
	assert.Equal(t, existing, a)
	store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_PartialFields(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Get", mock.Anything, "al1").Return(&domain.Alert{
		AlertID: "al1", Status: domain.AlertStatusActive,
	}, nil)
	store.On("Update", mock.Anything, "al1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		_, hasTitle := updates[fieldTitle]
		_, hasPriority := updates[fieldPriority]
		return hasTitle && hasPriority && len(updates) == 2
	})).Return(nil)
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	_, err := svc.Update(context.Background(), "admin1", "al1", domain.UpdateAlertRequest{
		Title:    ptr("Updated title"),
		Priority: ptr(2),
	})

	require.NoError(t, err)
	store.AssertExpectations(t)
}

// --- Delete tests ---

func TestDelete_NonAdmin_Forbidden(t *testing.T) {
	store := &mockAlertStore{}
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	err := svc.Delete(context.Background(), "d1", "al1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_UnknownAlert_NotFound(t *testing.T) {
	store := &mockAlertStore{}
	store.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)
	svc := newTestService(store, adminAndDonors(), &fakeMailer{}, nil)

	err := svc.Delete(context.Background(), "admin1", "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// --- ListByAudience ---

func TestListByAudience_InvalidAudience(t *testing.T) {
	svc := newTestService(&mockAlertStore{}, adminAndDonors(), &fakeMailer{}, nil)
	_, err := svc.ListByAudience(context.Background(), "nobody")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}
