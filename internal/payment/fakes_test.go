package payment

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/SyncSphere7/smartwin-official/internal/email"
	"github.com/SyncSphere7/smartwin-official/internal/events"
	"github.com/SyncSphere7/smartwin-official/internal/gateway"
	"github.com/SyncSphere7/smartwin-official/internal/user"
)

// memLedger behaves like the Postgres ledger: unique references and
// tracking ids, and a conditional completion that only one caller wins.
type memLedger struct {
	mu       sync.Mutex
	nextID   int
	payments map[int]*Payment
	paid     map[int]bool
	calls    []string
}

func newMemLedger() *memLedger {
	return &memLedger{nextID: 1, payments: make(map[int]*Payment), paid: make(map[int]bool)}
}

func (l *memLedger) record(call string) {
	l.calls = append(l.calls, call)
}

func (l *memLedger) Create(ctx context.Context, userID int, amount float64, currency, ref string) (*Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("create")
	p := &Payment{ID: l.nextID, UserID: userID, Amount: amount, Currency: currency, Status: StatusPending, MerchantReference: ref, CreatedAt: time.Now()}
	l.payments[p.ID] = p
	l.nextID++
	cp := *p
	return &cp, nil
}

func (l *memLedger) SetTrackingID(ctx context.Context, id int, trackingID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("set_tracking")
	p, ok := l.payments[id]
	if !ok {
		return ErrNotFound
	}
	p.TrackingID = &trackingID
	return nil
}

func (l *memLedger) MarkFailed(ctx context.Context, id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("mark_failed")
	if p, ok := l.payments[id]; ok && p.Status == StatusPending {
		p.Status = StatusFailed
	}
	return nil
}

func (l *memLedger) FindByID(ctx context.Context, id int) (*Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *memLedger) FindByTrackingID(ctx context.Context, trackingID string) (*Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.payments {
		if p.TrackingID != nil && *p.TrackingID == trackingID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (l *memLedger) Complete(ctx context.Context, id, userID int) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record("complete")
	p, ok := l.payments[id]
	if !ok || p.Status == StatusCompleted {
		return false, nil
	}
	p.Status = StatusCompleted
	l.paid[userID] = true
	return true, nil
}

func (l *memLedger) ListByUser(ctx context.Context, userID int) ([]Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Payment
	for _, p := range l.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (l *memLedger) List(ctx context.Context) ([]WithUser, error) { return nil, nil }

func (l *memLedger) transitions() int {
	n := 0
	for _, c := range l.calls {
		if c == "complete" {
			n++
		}
	}
	return n
}

// fakeGateway answers like Pesapal for a fixed set of orders.
type fakeGateway struct {
	mu            sync.Mutex
	ledger        *memLedger
	status        map[string]string
	submitErr     error
	nextTracking  string
	registrations int
	submitted     []gateway.Order
	lookups       int
}

func (g *fakeGateway) GetToken(ctx context.Context) (string, error) { return "tok", nil }

func (g *fakeGateway) RegisterCallback(ctx context.Context, token, url string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registrations++
	return "ipn-registered", nil
}

func (g *fakeGateway) SubmitOrder(ctx context.Context, token string, order gateway.Order) (*gateway.OrderResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ledger != nil {
		g.ledger.mu.Lock()
		g.ledger.record("submit")
		g.ledger.mu.Unlock()
	}
	g.submitted = append(g.submitted, order)
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	return &gateway.OrderResult{TrackingID: g.nextTracking, MerchantReference: order.MerchantReference, RedirectURL: "https://pay.example/" + g.nextTracking}, nil
}

func (g *fakeGateway) GetStatus(ctx context.Context, token, trackingID string) (*gateway.TransactionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.lookups++
	desc, ok := g.status[trackingID]
	if !ok {
		return nil, &gateway.Error{Kind: gateway.KindLookup, Op: "get_status", Detail: "invalid_order_tracking_id"}
	}
	return &gateway.TransactionStatus{Description: desc}, nil
}

type fakeUsers struct{}

func (fakeUsers) FindByID(ctx context.Context, id int) (*user.User, error) {
	return &user.User{ID: id, Email: "alice@example.com", FullName: "Alice", Locale: "en"}, nil
}

type MockConsultations struct{ mock.Mock }

func (m *MockConsultations) OpenForPayment(ctx context.Context, userID, paymentID int, amount float64) (int, error) {
	args := m.Called(ctx, userID, paymentID, amount)
	return args.Int(0), args.Error(1)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *recordingMailer) Enqueue(ctx context.Context, kind string, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, kind+":"+msg.To)
	return nil
}

func (m *recordingMailer) count(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.sent {
		if len(s) > len(kind) && s[:len(kind)+1] == kind+":" {
			n++
		}
	}
	return n
}

type countingNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (n *countingNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.texts = append(n.texts, text)
	return nil
}

type countingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *countingPublisher) Publish(ctx context.Context, key string, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *countingPublisher) Close() error { return nil }
