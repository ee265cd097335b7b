package policy

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/tempcover/backend/internal/domain/policy"
	"github.com/tempcover/backend/internal/domain/shared"
	"github.com/tempcover/backend/internal/infrastructure/billing"
	"github.com/tempcover/backend/internal/infrastructure/email"
	"github.com/tempcover/backend/internal/infrastructure/storage"
)

// countingStore counts uploads on top of the memory store
type countingStore struct {
	*storage.MemoryDocumentStore
	mu   sync.Mutex
	puts int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryDocumentStore: storage.NewMemoryDocumentStore("https://files.test")}
}

func (s *countingStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	s.puts++
	s.mu.Unlock()
	return s.MemoryDocumentStore.Put(ctx, key, data, contentType)
}

func (s *countingStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

var testStart = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func validInput(paymentID string) policy.FinalizeInput {
	return policy.FinalizeInput{
		Registration:    "AB12CDE",
		Make:            "Ford",
		Model:           "Fiesta",
		Year:            2019,
		StartAt:         testStart.Format(time.RFC3339),
		EndAt:           testStart.Add(3 * time.Hour).Format(time.RFC3339),
		DurationMs:      (3 * time.Hour).Milliseconds(),
		PricePence:      1299,
		Currency:        "GBP",
		FirstName:       "Sam",
		LastName:        "Taylor",
		DateOfBirth:     "1990-05-01",
		Email:           "sam@example.com",
		PaymentProvider: policy.PaymentProviderStripe,
		PaymentID:       paymentID,
		PaymentStatus:   "paid",
	}
}

// memoryPolicies enforces the same unique keys as the database
type memoryPolicies struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*policy.Policy
	createErr error
}

func newMemoryPolicies() *memoryPolicies {
	return &memoryPolicies{byID: map[uuid.UUID]*policy.Policy{}}
}

func (r *memoryPolicies) Create(_ context.Context, p *policy.Policy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.PolicyNumber == p.PolicyNumber {
			return policy.ErrPolicyNumberTaken
		}
		if existing.Payment.Provider == p.Payment.Provider && existing.Payment.ID == p.Payment.ID {
			return policy.ErrPaymentAlreadyFinalized
		}
	}
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *memoryPolicies) FindByID(_ context.Context, id uuid.UUID) (*policy.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryPolicies) FindByPayment(_ context.Context, provider policy.PaymentProvider, paymentID string) (*policy.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Payment.Provider == provider && p.Payment.ID == paymentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryPolicies) FindByPolicyNumber(_ context.Context, number string) (*policy.Policy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.PolicyNumber == policy.NormalizePolicyNumber(number) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryPolicies) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

type memoryDocuments struct {
	mu   sync.Mutex
	docs []policy.PolicyDocument
}

func (r *memoryDocuments) FindByPolicyID(_ context.Context, policyID uuid.UUID) ([]policy.PolicyDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []policy.PolicyDocument
	for _, d := range r.docs {
		if d.PolicyID == policyID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memoryDocuments) CreateIfAbsent(_ context.Context, doc *policy.PolicyDocument) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.docs {
		if d.PolicyID == doc.PolicyID && d.Kind == doc.Kind {
			return false, nil
		}
	}
	r.docs = append(r.docs, *doc)
	return true, nil
}

func (r *memoryDocuments) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs)
}

type memoryEvents struct {
	mu     sync.Mutex
	events []policy.PolicyEvent
}

func (r *memoryEvents) Append(_ context.Context, e *policy.PolicyEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return nil
}

func (r *memoryEvents) Exists(_ context.Context, policyID uuid.UUID, t policy.EventType) (bool, error) {
	return r.countOf(policyID, t) > 0, nil
}

func (r *memoryEvents) countOf(policyID uuid.UUID, t policy.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.PolicyID == policyID && e.Type == t {
			n++
		}
	}
	return n
}

// MockRenderer is a mock implementation of DocumentRenderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, kind policy.DocumentKind, data policy.DocumentData) ([]byte, error) {
	args := m.Called(ctx, kind, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockMailer is a mock implementation of DocumentMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendDocuments(ctx context.Context, msg email.DocumentsEmail) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

// MockParser is a mock implementation of CheckoutParser
type MockParser struct {
	mock.Mock
}

func (m *MockParser) Parse(payload []byte, signature string) (*billing.CheckoutEvent, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CheckoutEvent), args.Error(1)
}

// MockFinalizer is a mock implementation of Finalizer
type MockFinalizer struct {
	mock.Mock
}

func (m *MockFinalizer) Finalize(ctx context.Context, in policy.FinalizeInput) (*FinalizeResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FinalizeResult), args.Error(1)
}

// MockFulfiller is a mock implementation of Fulfiller
type MockFulfiller struct {
	mock.Mock
}

func (m *MockFulfiller) Fulfill(ctx context.Context, policyID uuid.UUID) (*FulfillmentResult, error) {
	args := m.Called(ctx, policyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FulfillmentResult), args.Error(1)
}

var fakePDF = []byte("%PDF-1.7 test")
