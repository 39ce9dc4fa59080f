// Package ai holds the generation adapters the study-pack orchestrator calls.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerfox1974/StudyBuddy/internal/models"
)

// Request is one completion call. Kind and Count are hints for adapters that do
// not talk to a model; live adapters only use the prompt text and temperature.
type Request struct {
	Kind        models.ArtifactKind
	System      string
	Prompt      string
	Temperature float32
	Count       int
}

// Provider is the generation capability. Implementations must be safe for concurrent use.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
	Model() string
}

// rateLimiter is a counting semaphore over in-flight model calls.
type rateLimiter struct {
	slots       chan struct{}
	timeout     time.Duration
	callTimeout time.Duration
}

// newRateLimiter allows concurrent calls at once. A positive callTimeout bounds
// each call from the moment it gets a slot.
func newRateLimiter(concurrent int, callTimeout time.Duration) *rateLimiter {
	if concurrent < 1 {
		concurrent = 1
	}
	slots := make(chan struct{}, concurrent)
	for i := 0; i < concurrent; i++ {
		slots <- struct{}{}
	}
	return &rateLimiter{slots: slots, timeout: 5 * time.Minute, callTimeout: callTimeout}
}

// acquire blocks until a slot is available
func (r *rateLimiter) acquire(ctx context.Context) error {
	select {
	case <-r.slots:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.timeout):
		return fmt.Errorf("timeout waiting for model rate slot")
	}
}

func (r *rateLimiter) release() {
	r.slots <- struct{}{}
}

// callContext derives the deadline for a single model call.
func (r *rateLimiter) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.callTimeout)
}
