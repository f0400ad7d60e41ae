package request

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// ServiceBackoff manages exponential backoff per service.
type ServiceBackoff struct {
	mu        sync.RWMutex
	services  map[string]*backoffState
	baseDelay time.Duration
	maxDelay  time.Duration
}

type backoffState struct {
	failureCount int
	nextAllowed  time.Time
}

// NewServiceBackoff creates a new backoff manager.
func NewServiceBackoff(baseDelay, maxDelay time.Duration) *ServiceBackoff {
	return &ServiceBackoff{
		services:  make(map[string]*backoffState),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// Wait blocks until the service is allowed to make a request.
func (b *ServiceBackoff) Wait(service string) {
	b.mu.RLock()
	state, exists := b.services[service]
	b.mu.RUnlock()

	if !exists {
		return // No backoff state, proceed immediately
	}

	now := time.Now()
	if now.Before(state.nextAllowed) {
		time.Sleep(time.Until(state.nextAllowed))
	}
}

// RecordFailure increases the backoff delay for a service.
func (b *ServiceBackoff) RecordFailure(service string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, exists := b.services[service]
	if !exists {
		state = &backoffState{}
		b.services[service] = state
	}

	state.failureCount++
	delay := b.calculateDelay(state.failureCount)
	state.nextAllowed = time.Now().Add(delay)
}

// RecordSuccess decreases the backoff delay (gradual recovery).
func (b *ServiceBackoff) RecordSuccess(service string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, exists := b.services[service]
	if !exists {
		return // No state to recover from
	}

	if state.failureCount > 0 {
		state.failureCount--
	}
	if state.failureCount == 0 {
		state.nextAllowed = time.Time{} // Clear backoff
	}
}

// calculateDelay returns exponential delay with jitter.
func (b *ServiceBackoff) calculateDelay(failures int) time.Duration {
	// Exponential: baseDelay * 2^(failures-1)
	multiplier := math.Pow(2, float64(failures-1))
	delay := time.Duration(float64(b.baseDelay) * multiplier)

	// Cap at maxDelay
	if delay > b.maxDelay {
		delay = b.maxDelay
	}

	// Add 10% jitter
	jitter := time.Duration(rand.Float64() * 0.1 * float64(delay))
	return delay + jitter
}

// GetState returns current backoff state for a service (for debugging/metrics).
func (b *ServiceBackoff) GetState(service string) (failureCount int, nextAllowed time.Time) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if state, exists := b.services[service]; exists {
		return state.failureCount, state.nextAllowed
	}
	return 0, time.Time{}
}
