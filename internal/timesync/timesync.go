// Package timesync keeps the wall-clock time shown on the panel.
//
// The local clock is corrected by an offset obtained from a network time
// source. A failed synchronization keeps the previous offset, so the clock
// keeps running with whatever drift it had.
package timesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beevik/ntp"
	"github.com/rs/zerolog/log"

	"github.com/BeatGlow/verseclock/internal/clock"
)

// ErrUnavailable is returned by Now while the local clock has not been set.
var ErrUnavailable = errors.New("timesync: time not available")

// minPlausible is the earliest time considered set. Boards without a battery
// backed clock boot somewhere in 1970.
var minPlausible = time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC)

// Source measures how far the local clock is off.
type Source interface {
	// Offset returns the correction to add to the local clock.
	Offset(ctx context.Context) (time.Duration, error)
}

// NTPSource queries a network time protocol server.
type NTPSource struct {
	Server  string
	Timeout time.Duration
}

func (s NTPSource) Offset(ctx context.Context) (time.Duration, error) {
	timeout := s.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	resp, err := ntp.QueryWithOptions(s.Server, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, fmt.Errorf("timesync: query %s: %w", s.Server, err)
	}
	if err = resp.Validate(); err != nil {
		return 0, fmt.Errorf("timesync: invalid response from %s: %w", s.Server, err)
	}
	return resp.ClockOffset, nil
}

// Authority is the corrected wall clock.
type Authority struct {
	clock    clock.Clock
	source   Source
	location *time.Location
	timeout  time.Duration
	offset   time.Duration
	synced   time.Time
}

// New returns an Authority reading c, corrected by source, in location. Each
// synchronization attempt is bounded by timeout.
func New(c clock.Clock, source Source, location *time.Location, timeout time.Duration) *Authority {
	if location == nil {
		location = time.Local
	}
	return &Authority{
		clock:    c,
		source:   source,
		location: location,
		timeout:  timeout,
	}
}

// Now returns the corrected local time, or ErrUnavailable when the clock
// was never set.
func (a *Authority) Now() (time.Time, error) {
	t := a.clock.Now().Add(a.offset)
	if t.Before(minPlausible) {
		return time.Time{}, ErrUnavailable
	}
	return t.In(a.location), nil
}

// Resync asks the source for a fresh offset.
func (a *Authority) Resync(ctx context.Context) error {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	log.Info().Msg("synchronizing time")
	offset, err := a.source.Offset(ctx)
	if err != nil {
		log.Warn().Err(err).Dur("offset", a.offset).Msg("time synchronization failed, keeping local clock")
		return err
	}

	a.offset = offset
	a.synced = a.clock.Now().Add(offset)
	log.Info().Dur("offset", offset).Msg("time synchronized")
	return nil
}

// Offset is the correction established by the last successful Resync.
func (a *Authority) Offset() time.Duration {
	return a.offset
}

// Synced returns the corrected time of the last successful Resync, the zero
// time if there was none.
func (a *Authority) Synced() time.Time {
	return a.synced
}
