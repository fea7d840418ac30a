package testutil

import (
	"context"
	"sync"
	"time"

	"card-admin/internal/domain"
)

// MockCardRepository implements domain.CardRepository for testing
type MockCardRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc    func(ctx context.Context, input domain.CardInput) (*domain.Card, error)
	GetByIDFunc   func(ctx context.Context, id string) (*domain.Card, error)
	GetRecentFunc func(ctx context.Context, limit int) ([]*domain.Card, error)
	GetAllFunc    func(ctx context.Context) ([]*domain.Card, error)

	// In-memory storage, newest last
	Cards []*domain.Card
	// Inputs records every payload passed to Create
	Inputs []domain.CardInput
}

// NewMockCardRepository creates a new MockCardRepository
func NewMockCardRepository() *MockCardRepository {
	return &MockCardRepository{}
}

func (m *MockCardRepository) Create(ctx context.Context, input domain.CardInput) (*domain.Card, error) {
	m.mu.Lock()
	m.Inputs = append(m.Inputs, input)
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, input)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	card := domain.NewCard(nextID("card"), input, time.Now().UTC())
	m.Cards = append(m.Cards, card)
	return card.Clone(), nil
}

func (m *MockCardRepository) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, card := range m.Cards {
		if card.ID == id {
			return card.Clone(), nil
		}
	}
	return nil, domain.ErrCardNotFound
}

func (m *MockCardRepository) GetRecent(ctx context.Context, limit int) ([]*domain.Card, error) {
	if m.GetRecentFunc != nil {
		return m.GetRecentFunc(ctx, limit)
	}
	all, _ := m.GetAll(ctx)
	limit = domain.RecentLimit(limit)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *MockCardRepository) GetAll(ctx context.Context) ([]*domain.Card, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Card, 0, len(m.Cards))
	for i := len(m.Cards) - 1; i >= 0; i-- {
		out = append(out, m.Cards[i].Clone())
	}
	return out, nil
}

// MockSessionRepository implements domain.SessionRepository for testing
type MockSessionRepository struct {
	mu sync.RWMutex

	// Function overrides
	CreateFunc        func(ctx context.Context, session *domain.Session) error
	GetByTokenFunc    func(ctx context.Context, token string) (*domain.Session, error)
	DeleteFunc        func(ctx context.Context, token string) error
	DeleteExpiredFunc func(ctx context.Context) (int64, error)

	// In-memory storage
	Sessions map[string]*domain.Session
}

// NewMockSessionRepository creates a new MockSessionRepository with initialized maps
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		Sessions: make(map[string]*domain.Session),
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Sessions == nil {
		m.Sessions = make(map[string]*domain.Session)
	}
	m.Sessions[session.Token] = session
	return nil
}

func (m *MockSessionRepository) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.GetByTokenFunc != nil {
		return m.GetByTokenFunc(ctx, token)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if session, ok := m.Sessions[token]; ok {
		if session.Expired(time.Now()) {
			return nil, domain.ErrSessionNotFound
		}
		cp := *session
		return &cp, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) Delete(ctx context.Context, token string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, token)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.Sessions, token)
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	now := time.Now()
	for token, session := range m.Sessions {
		if session.Expired(now) {
			delete(m.Sessions, token)
			count++
		}
	}
	return count, nil
}

// Has reports whether a session with token is stored
func (m *MockSessionRepository) Has(token string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.Sessions[token]
	return ok
}

// MockCardPublisher records published card events
type MockCardPublisher struct {
	mu sync.Mutex

	PublishFunc func(ctx context.Context, card *domain.Card) error
	Published   []*domain.Card
}

func NewMockCardPublisher() *MockCardPublisher {
	return &MockCardPublisher{}
}

func (m *MockCardPublisher) PublishCardCreated(ctx context.Context, card *domain.Card) error {
	m.mu.Lock()
	m.Published = append(m.Published, card)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, card)
	}
	return nil
}

// Calls returns a snapshot of published cards
func (m *MockCardPublisher) Calls() []*domain.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Card, len(m.Published))
	copy(out, m.Published)
	return out
}
