// Package store persists the drowsy-event counter, the sleep profile and
// failed-check notification records across restarts.
package store

import (
	"context"
	"errors"

	"github.com/teslashibe/go-wraith/pkg/notify"
	"github.com/teslashibe/go-wraith/pkg/sleep"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("store: closed")

// Store is the persistence surface used by the pipeline.
type Store interface {
	// IncrementDrowsy bumps the drowsy-event counter and returns the new value.
	IncrementDrowsy(ctx context.Context) (int, error)
	DrowsyCount(ctx context.Context) (int, error)
	ResetDrowsy(ctx context.Context) error

	SaveSleep(ctx context.Context, p sleep.Profile) error
	// LoadSleep returns false when no profile was saved.
	LoadSleep(ctx context.Context) (sleep.Profile, bool, error)

	SaveRecord(ctx context.Context, rec notify.Record) error
	// Records returns the newest records first.
	Records(ctx context.Context, limit int) ([]notify.Record, error)

	Close() error
}
