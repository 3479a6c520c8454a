// Package geo turns a platform-specific position source into a bounded,
// best-effort lookup. Location is advisory: every failure mode (timeout,
// denial, no provider) resolves to "no location" rather than an error, and the
// resolver never retries on its own.
package geo

import (
	"context"
	"log"
	"time"

	"github.com/akipresenca/aki_device_agent/internal/models"
)

// Provider is the platform position source. Implementations should honor ctx,
// but the resolver enforces its own hard timeout regardless.
type Provider interface {
	Locate(ctx context.Context) (models.Location, error)
}

type Resolver struct {
	provider Provider
	timeout  time.Duration
}

func NewResolver(p Provider, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{provider: p, timeout: timeout}
}

// Resolve issues a single location request. It returns nil when no position
// could be obtained within the timeout.
func (r *Resolver) Resolve(ctx context.Context) *models.Location {
	if r == nil || r.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type answer struct {
		loc models.Location
		err error
	}
	ch := make(chan answer, 1)
	go func() {
		loc, err := r.provider.Locate(ctx)
		ch <- answer{loc, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			log.Printf("geo: location unavailable: %v", a.err)
			return nil
		}
		return &a.loc
	case <-ctx.Done():
		log.Printf("geo: location request timed out after %s", r.timeout)
		return nil
	}
}

// StaticProvider reports fixed coordinates, typically configured per
// installation for wall-mounted devices.
type StaticProvider struct {
	Location models.Location
}

func (p StaticProvider) Locate(context.Context) (models.Location, error) {
	return p.Location, nil
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) (models.Location, error)

func (f ProviderFunc) Locate(ctx context.Context) (models.Location, error) {
	return f(ctx)
}
