package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chuckycastle/mealtogether/backend/internal/store"
)

// CircuitBreaker gates calls to the normalization providers. Its state lives
// in a CircuitStore so that every process sees the same failure count. Store
// errors never block imports: the breaker fails open and lets the call
// through.
type CircuitBreaker struct {
	store     store.CircuitStore
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	log       *logrus.Logger
}

func NewCircuitBreaker(s store.CircuitStore, threshold int, cooldown time.Duration, log *logrus.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		store:     s,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
		log:       log,
	}
}

// CanAttempt reports whether a provider call is currently allowed. When the
// circuit is open and the cooldown has elapsed it optimistically resets the
// state and allows one attempt through.
func (b *CircuitBreaker) CanAttempt(ctx context.Context) bool {
	state, err := b.store.State(ctx)
	if err != nil {
		b.log.WithError(err).Warn("circuit state read failed, allowing attempt")
		return true
	}
	if !state.IsOpen {
		return true
	}
	if !state.LastFailureAt.IsZero() && b.now().Sub(state.LastFailureAt) >= b.cooldown {
		if err := b.store.Reset(ctx); err != nil {
			b.log.WithError(err).Warn("circuit reset failed")
		}
		return true
	}
	return false
}

// RecordFailure bumps the consecutive failure count and returns true when the
// increment opened the circuit.
func (b *CircuitBreaker) RecordFailure(ctx context.Context) bool {
	opened, err := b.store.RecordFailure(ctx, b.threshold, b.now())
	if err != nil {
		b.log.WithError(err).Warn("circuit failure record failed")
		return false
	}
	if opened {
		b.log.WithField("threshold", b.threshold).Warn("normalization circuit opened")
	}
	return opened
}

// RecordSuccess closes the circuit and clears the failure count.
func (b *CircuitBreaker) RecordSuccess(ctx context.Context) {
	if err := b.store.Reset(ctx); err != nil {
		b.log.WithError(err).Warn("circuit reset failed")
	}
}

// Status exposes the current breaker state for the health endpoint. Read
// errors surface as a closed circuit with zero failures.
func (b *CircuitBreaker) Status(ctx context.Context) store.CircuitState {
	state, err := b.store.State(ctx)
	if err != nil {
		b.log.WithError(err).Warn("circuit state read failed")
		return store.CircuitState{}
	}
	return state
}
