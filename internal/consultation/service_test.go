package consultation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/SyncSphere7/smartwin-official/internal/email"
	"github.com/SyncSphere7/smartwin-official/internal/events"
	"github.com/SyncSphere7/smartwin-official/internal/user"
)

type MockRepository struct{ mock.Mock }
type MockUsers struct{ mock.Mock }
type MockMailer struct{ mock.Mock }
type MockNotifier struct{ mock.Mock }
type MockPublisher struct{ mock.Mock }

func (m *MockRepository) FindByUser(ctx context.Context, userID int) (*Request, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *MockRepository) FindByID(ctx context.Context, id int) (*Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, req Request) (*Request, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context) ([]Request, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Request), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, id int, from, to string) (*Request, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Request), args.Error(1)
}

func (m *MockUsers) FindByID(ctx context.Context, id int) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockMailer) Enqueue(ctx context.Context, kind string, msg email.Message) error {
	return m.Called(ctx, kind, msg).Error(0)
}

func (m *MockNotifier) Notify(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *MockPublisher) Publish(ctx context.Context, key string, ev events.Event) error {
	return m.Called(ctx, key, ev).Error(0)
}

func (m *MockPublisher) Close() error { return nil }

type fixture struct {
	repo      *MockRepository
	users     *MockUsers
	mailer    *MockMailer
	notifier  *MockNotifier
	publisher *MockPublisher
	svc       Service
}

func newFixture(repo Repository) *fixture {
	f := &fixture{
		repo:      new(MockRepository),
		users:     new(MockUsers),
		mailer:    new(MockMailer),
		notifier:  new(MockNotifier),
		publisher: new(MockPublisher),
	}
	if repo == nil {
		repo = f.repo
	}
	f.svc = NewService(repo, f.users, f.mailer,
		email.NewTemplates("https://smartwin.example", "support@smartwin.example"),
		f.notifier, f.publisher, Settings{AdminEmail: "admin@smartwin.example", Currency: "USD"})
	return f
}

var alice = &user.User{ID: 7, Email: "alice@example.com", FullName: "Alice"}

func TestClaimManualPayment_CreatesAndNotifies(t *testing.T) {
	f := newFixture(nil)
	f.users.On("FindByID", mock.Anything, 7).Return(alice, nil)
	f.repo.On("FindByUser", mock.Anything, 7).Return(nil, ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r Request) bool {
		return r.UserID == 7 && r.PaymentMethod == "bitcoin" && r.PaymentAmount == 100 && r.PaymentID == nil
	})).Return(&Request{ID: 11, UserID: 7, PaymentMethod: "bitcoin", PaymentAmount: 100, Status: StatusPending}, nil)
	f.mailer.On("Enqueue", mock.Anything, email.KindAdminAlert, mock.MatchedBy(func(m email.Message) bool {
		return m.To == "admin@smartwin.example"
	})).Return(nil).Once()
	f.mailer.On("Enqueue", mock.Anything, email.KindConsultation, mock.MatchedBy(func(m email.Message) bool {
		return m.To == "alice@example.com"
	})).Return(nil).Once()
	f.notifier.On("Notify", mock.Anything, mock.AnythingOfType("string")).Return(nil).Once()
	f.publisher.On("Publish", mock.Anything, "7", mock.MatchedBy(func(ev events.Event) bool {
		return ev.Type == events.TypeConsultationRequested
	})).Return(nil).Once()

	id, err := f.svc.ClaimManualPayment(context.Background(), 7, " Bitcoin ", 100)

	require.NoError(t, err)
	assert.Equal(t, 11, id)
	f.repo.AssertExpectations(t)
	f.mailer.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestClaimManualPayment_ExistingRequestIsReturnedSilently(t *testing.T) {
	f := newFixture(nil)
	f.users.On("FindByID", mock.Anything, 7).Return(alice, nil)
	f.repo.On("FindByUser", mock.Anything, 7).Return(&Request{ID: 11, UserID: 7}, nil)

	id, err := f.svc.ClaimManualPayment(context.Background(), 7, "bitcoin", 100)

	require.NoError(t, err)
	assert.Equal(t, 11, id)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.mailer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestClaimManualPayment_LostInsertRaceReselects(t *testing.T) {
	f := newFixture(nil)
	f.users.On("FindByID", mock.Anything, 7).Return(alice, nil)
	f.repo.On("FindByUser", mock.Anything, 7).Return(nil, ErrNotFound).Once()
	f.repo.On("Create", mock.Anything, mock.Anything).Return(nil, ErrAlreadyExists)
	f.repo.On("FindByUser", mock.Anything, 7).Return(&Request{ID: 12, UserID: 7}, nil).Once()

	id, err := f.svc.ClaimManualPayment(context.Background(), 7, "bitcoin", 100)

	require.NoError(t, err)
	assert.Equal(t, 12, id)
	f.mailer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestClaimManualPayment_NotificationFailuresAreAbsorbed(t *testing.T) {
	f := newFixture(nil)
	f.users.On("FindByID", mock.Anything, 7).Return(alice, nil)
	f.repo.On("FindByUser", mock.Anything, 7).Return(nil, ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.Anything).Return(&Request{ID: 11, UserID: 7, PaymentMethod: "bitcoin", PaymentAmount: 100}, nil)
	f.mailer.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return(email.ErrNotification)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(assert.AnError)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	id, err := f.svc.ClaimManualPayment(context.Background(), 7, "bitcoin", 100)

	require.NoError(t, err)
	assert.Equal(t, 11, id)
}

func TestClaimManualPayment_Validation(t *testing.T) {
	f := newFixture(nil)
	f.users.On("FindByID", mock.Anything, 404).Return(nil, user.ErrUserNotFound)

	_, err := f.svc.ClaimManualPayment(context.Background(), 7, "", 100)
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = f.svc.ClaimManualPayment(context.Background(), 7, "bitcoin", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.ClaimManualPayment(context.Background(), 404, "bitcoin", 100)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
	f.repo.AssertNotCalled(t, "FindByUser", mock.Anything, mock.Anything)
}

// memRepo enforces one request per user the way the unique index does.
type memRepo struct {
	mu     sync.Mutex
	nextID int
	byUser map[int]*Request
}

func newMemRepo() *memRepo {
	return &memRepo{nextID: 1, byUser: make(map[int]*Request)}
}

func (r *memRepo) FindByUser(ctx context.Context, userID int) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req, ok := r.byUser[userID]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (r *memRepo) FindByID(ctx context.Context, id int) (*Request, error) {
	return nil, ErrNotFound
}

func (r *memRepo) Create(ctx context.Context, req Request) (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUser[req.UserID]; ok {
		return nil, ErrAlreadyExists
	}
	req.ID = r.nextID
	req.Status = StatusPending
	req.CreatedAt = time.Now()
	r.nextID++
	r.byUser[req.UserID] = &req
	cp := req
	return &cp, nil
}

func (r *memRepo) List(ctx context.Context) ([]Request, error) { return nil, nil }

func (r *memRepo) UpdateStatus(ctx context.Context, id int, from, to string) (*Request, error) {
	return nil, ErrNotFound
}

func TestClaimManualPayment_TwiceYieldsOneRow(t *testing.T) {
	repo := newMemRepo()
	f := newFixture(repo)
	f.users.On("FindByID", mock.Anything, 7).Return(alice, nil)
	f.mailer.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	first, err := f.svc.ClaimManualPayment(context.Background(), 7, "bitcoin", 100)
	require.NoError(t, err)
	second, err := f.svc.ClaimManualPayment(context.Background(), 7, "bitcoin", 100)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, repo.byUser, 1)
	f.mailer.AssertNumberOfCalls(t, "Enqueue", 2)
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestClaimManualPayment_ConcurrentClaimsConverge(t *testing.T) {
	repo := newMemRepo()
	f := newFixture(repo)
	f.users.On("FindByID", mock.Anything, 7).Return(alice, nil)
	f.mailer.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	const n = 8
	ids := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := f.svc.ClaimManualPayment(context.Background(), 7, "bitcoin", 100)
			assert.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, repo.byUser, 1)
	f.notifier.AssertNumberOfCalls(t, "Notify", 1)
}

func TestOpenForPayment(t *testing.T) {
	f := newFixture(nil)
	f.users.On("FindByID", mock.Anything, 7).Return(alice, nil)
	f.repo.On("FindByUser", mock.Anything, 7).Return(nil, ErrNotFound)
	f.repo.On("Create", mock.Anything, mock.MatchedBy(func(r Request) bool {
		return r.PaymentID != nil && *r.PaymentID == 3 && r.PaymentMethod == MethodGateway
	})).Return(&Request{ID: 20, UserID: 7, PaymentMethod: MethodGateway}, nil)
	f.publisher.On("Publish", mock.Anything, "7", mock.Anything).Return(nil).Once()

	id, err := f.svc.OpenForPayment(context.Background(), 7, 3, 100)

	require.NoError(t, err)
	assert.Equal(t, 20, id)
	f.mailer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertExpectations(t)
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name    string
		current string
		next    string
		wantErr error
	}{
		{"pending to contacted", StatusPending, StatusContacted, nil},
		{"contacted to negotiating", StatusContacted, StatusNegotiating, nil},
		{"pending to completed is skipped", StatusPending, StatusCompleted, ErrInvalidTransition},
		{"declined is terminal", StatusDeclined, StatusContacted, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil)
			f.repo.On("FindByID", mock.Anything, 5).Return(&Request{ID: 5, Status: tt.current}, nil)
			f.repo.On("UpdateStatus", mock.Anything, 5, tt.current, tt.next).Return(&Request{ID: 5, Status: tt.next}, nil)

			got, err := f.svc.UpdateStatus(context.Background(), 5, tt.next)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				f.repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.next, got.Status)
		})
	}
}
