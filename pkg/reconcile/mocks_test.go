package reconcile

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockPaymentsBackend is a mock implementation of PaymentsBackend.
type MockPaymentsBackend struct {
	mock.Mock
}

func (m *MockPaymentsBackend) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Event), args.Error(1)
}

func (m *MockPaymentsBackend) PlanByID(ctx context.Context, planID string) (*Plan, error) {
	args := m.Called(ctx, planID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Plan), args.Error(1)
}

func (m *MockPaymentsBackend) FetchCustomer(ctx context.Context, customerID string) (*Customer, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Customer), args.Error(1)
}

// MockAccountStore is a mock implementation of AccountStore.
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) AccountByCustomer(ctx context.Context, customerID string) (*Account, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockAccountStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockAccountStore) AccountByUID(ctx context.Context, uid uuid.UUID) (*Account, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockAccountStore) BindCustomer(ctx context.Context, uid uuid.UUID, customerID string) error {
	args := m.Called(ctx, uid, customerID)
	return args.Error(0)
}

func (m *MockAccountStore) Devices(ctx context.Context, uid uuid.UUID) ([]Device, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Device), args.Error(1)
}

// MockCustomerCache is a mock implementation of CustomerCache.
type MockCustomerCache struct {
	mock.Mock
}

func (m *MockCustomerCache) InvalidateCustomer(ctx context.Context, uid uuid.UUID, email string) error {
	args := m.Called(ctx, uid, email)
	return args.Error(0)
}

// MockProfileCache is a mock implementation of ProfileCache.
type MockProfileCache struct {
	mock.Mock
}

func (m *MockProfileCache) DeleteCache(ctx context.Context, uid uuid.UUID) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

// MockPushNotifier is a mock implementation of PushNotifier.
type MockPushNotifier struct {
	mock.Mock
}

func (m *MockPushNotifier) NotifyProfileUpdated(ctx context.Context, uid uuid.UUID, devices []Device) error {
	args := m.Called(ctx, uid, devices)
	return args.Error(0)
}

// MockStatusPublisher is a mock implementation of StatusPublisher.
type MockStatusPublisher struct {
	mock.Mock
}

func (m *MockStatusPublisher) Publish(ctx context.Context, rec StatusRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// MockMailer is a mock implementation of Mailer.
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SubscriptionCreated(ctx context.Context, data EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMailer) SubscriptionUpgraded(ctx context.Context, data EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMailer) SubscriptionDowngraded(ctx context.Context, data EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMailer) SubscriptionCancelled(ctx context.Context, data EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMailer) SubscriptionReactivated(ctx context.Context, data EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMailer) AccountDeleted(ctx context.Context, data EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMailer) PaymentConfirmed(ctx context.Context, data EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMailer) PaymentFailed(ctx context.Context, data EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

func (m *MockMailer) SourceExpiring(ctx context.Context, data EmailData) error {
	args := m.Called(ctx, data)
	return args.Error(0)
}

// MockReporter is a mock implementation of Reporter.
type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) ReportEvent(ctx context.Context, ev *Event) {
	m.Called(ctx, ev)
}

func (m *MockReporter) ReportError(ctx context.Context, ev *Event, err error) {
	m.Called(ctx, ev, err)
}

// MockDeduper is a mock implementation of Deduper.
type MockDeduper struct {
	mock.Mock
}

func (m *MockDeduper) MarkOnce(ctx context.Context, eventID string) (bool, error) {
	args := m.Called(ctx, eventID)
	return args.Bool(0), args.Error(1)
}
