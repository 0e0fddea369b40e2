package ports

import (
	"context"

	"paperQuantBot/internal/domain"
)

// SignalStore defines the interface for the single-slot signal record
// exchanged between the quant engine and the execution engine. Writes must
// atomically replace the previous record so a concurrent read never observes
// a partial write.
type SignalStore interface {
	// Write overwrites the current signal.
	Write(ctx context.Context, signal *domain.Signal) error
	// Read retrieves the current signal. Returns nil, nil when no signal
	// has been written yet.
	Read(ctx context.Context) (*domain.Signal, error)
}
