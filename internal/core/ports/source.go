package ports

import (
	"context"

	"github.com/lcalzada-xor/cellwatch/internal/core/domain"
)

// SampleSource defines the interface for radio observation adapters.
type SampleSource interface {
	// Next blocks until the next sample is available or the context is done.
	Next(ctx context.Context) (domain.RadioSample, error)
	// Close releases resources (handles, sockets).
	Close() error
}
