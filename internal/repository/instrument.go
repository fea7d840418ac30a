package repository

import (
	"context"
	"errors"
	"time"

	"card-admin/internal/domain"
	"card-admin/internal/observability"
)

// InstrumentedCards records the latency and outcome of every call to the
// wrapped repository.
type InstrumentedCards struct {
	next    domain.CardRepository
	backend string
}

// Instrument wraps repo with Prometheus timings labelled by backend.
func Instrument(repo domain.CardRepository, backend string) *InstrumentedCards {
	return &InstrumentedCards{next: repo, backend: backend}
}

func (r *InstrumentedCards) observe(op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrCardNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	observability.StorageOperationDuration.
		WithLabelValues(r.backend, op, outcome).
		Observe(time.Since(start).Seconds())
}

func (r *InstrumentedCards) Create(ctx context.Context, input domain.CardInput) (*domain.Card, error) {
	start := time.Now()
	card, err := r.next.Create(ctx, input)
	r.observe("create", start, err)
	return card, err
}

func (r *InstrumentedCards) GetByID(ctx context.Context, id string) (*domain.Card, error) {
	start := time.Now()
	card, err := r.next.GetByID(ctx, id)
	r.observe("get_by_id", start, err)
	return card, err
}

func (r *InstrumentedCards) GetRecent(ctx context.Context, limit int) ([]*domain.Card, error) {
	start := time.Now()
	cards, err := r.next.GetRecent(ctx, limit)
	r.observe("get_recent", start, err)
	return cards, err
}

func (r *InstrumentedCards) GetAll(ctx context.Context) ([]*domain.Card, error) {
	start := time.Now()
	cards, err := r.next.GetAll(ctx)
	r.observe("get_all", start, err)
	return cards, err
}

// Ping forwards to the wrapped repository when it supports it.
func (r *InstrumentedCards) Ping(ctx context.Context) error {
	if p, ok := r.next.(domain.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
