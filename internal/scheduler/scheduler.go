// Package scheduler drives the minute refresh of the panel.
//
// Every cycle checks whether the hour changed and the time should be
// resynchronized, resolves and shows the verse of the current minute, and
// then idles for the rest of the period. Idle time is measured against the
// work actually done, so refreshes stay just after the minute boundary.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BeatGlow/verseclock/internal/clock"
	"github.com/BeatGlow/verseclock/internal/render"
	"github.com/BeatGlow/verseclock/internal/timesync"
	"github.com/BeatGlow/verseclock/internal/verse"
)

// Defaults
const (
	DefaultPeriod = time.Minute
	DefaultGuard  = time.Second
)

// noHour marks that no hour has been handled yet.
const noHour = -1

// Display shows a frame.
type Display interface {
	Show(render.Snapshot) error
}

// Network reports whether the time source can be reached.
type Network interface {
	Connected() bool
}

// Config tunes the refresh timing.
type Config struct {
	// Period is the nominal cycle length.
	Period time.Duration

	// Guard is added to the startup alignment so the first regular refresh
	// lands after the minute rolled over.
	Guard time.Duration
}

// Scheduler runs the refresh cycle. It is not safe for concurrent use.
type Scheduler struct {
	clock   clock.Clock
	time    *timesync.Authority
	verses  *verse.Store
	display Display
	network Network
	config  Config

	// lastSyncedHour is the clock hour (0..23) the last sync attempt was made
	// for.
	lastSyncedHour int

	// unaligned is set while the refresh phase is not tied to the minute
	// boundary because no time was known.
	unaligned bool
}

// New returns a Scheduler. Zero Config fields take their defaults.
func New(c clock.Clock, authority *timesync.Authority, verses *verse.Store, display Display, network Network, config Config) *Scheduler {
	if config.Period <= 0 {
		config.Period = DefaultPeriod
	}
	if config.Guard < 0 {
		config.Guard = 0
	}
	return &Scheduler{
		clock:          c,
		time:           authority,
		verses:         verses,
		display:        display,
		network:        network,
		config:         config,
		lastSyncedHour: noHour,
	}
}

// IdleInterval is what remains of period after elapsed, never negative.
func IdleInterval(period, elapsed time.Duration) time.Duration {
	if elapsed >= period {
		return 0
	}
	return period - elapsed
}

// untilNextMinute is the time left until the minute after t starts.
func untilNextMinute(t time.Time) time.Duration {
	into := time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
	return time.Minute - into
}

// Start synchronizes the time once and shows the first frame. When the time
// is known it then waits for the next minute boundary plus the guard,
// refreshes again and idles out that period, so that Run cycles start right
// after the minute rolls over. Without a usable time a placeholder is shown
// and Start returns at once.
func (s *Scheduler) Start(ctx context.Context) {
	s.initialSync(ctx)

	now, err := s.time.Now()
	if err != nil {
		log.Warn().Err(err).Msg("no time available, showing placeholder")
		s.unaligned = true
		if err = s.display.Show(render.Placeholder()); err != nil {
			log.Error().Err(err).Msg("failed to show placeholder")
		}
		return
	}

	start := s.clock.Now()
	s.checkTimeSync(ctx)
	s.updateDisplay()

	delay := IdleInterval(untilNextMinute(now), s.clock.Now().Sub(start)) + s.config.Guard
	log.Debug().Dur("delay", delay).Msg("aligning to minute boundary")
	s.clock.Sleep(delay)

	start = s.clock.Now()
	s.updateDisplay()
	s.clock.Sleep(IdleInterval(s.config.Period, s.clock.Now().Sub(start)))
}

// Cycle runs one sync-check and refresh and returns the idle interval that
// keeps the cycle on its period. On the first cycle with a known time after
// running without one, the interval instead reaches the next minute boundary
// plus the guard.
func (s *Scheduler) Cycle(ctx context.Context) time.Duration {
	start := s.clock.Now()
	s.checkTimeSync(ctx)
	s.updateDisplay()

	if s.unaligned {
		if now, err := s.time.Now(); err == nil {
			s.unaligned = false
			delay := untilNextMinute(now) + s.config.Guard
			log.Info().Dur("delay", delay).Msg("time available, aligning to minute boundary")
			return delay
		}
	}
	return IdleInterval(s.config.Period, s.clock.Now().Sub(start))
}

// Run repeats Cycle and the idle sleep until ctx is done. The context is only
// checked between cycles.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		idle := s.Cycle(ctx)
		log.Debug().Dur("idle", idle).Msg("sleeping until next refresh")
		s.clock.Sleep(idle)
	}
}

// initialSync is the best-effort startup synchronization.
func (s *Scheduler) initialSync(ctx context.Context) {
	if !s.connected() {
		log.Warn().Msg("network not connected, continuing without time synchronization")
		return
	}
	if err := s.time.Resync(ctx); err != nil {
		log.Warn().Err(err).Msg("initial time synchronization failed, continuing with local clock")
		return
	}
	if now, err := s.time.Now(); err == nil {
		s.lastSyncedHour = now.Hour()
	}
}

// checkTimeSync resynchronizes once per observed hour. The hour is marked
// before the attempt, so a failure is not retried until the next hour.
// While no time is available at all every cycle tries again.
func (s *Scheduler) checkTimeSync(ctx context.Context) {
	now, err := s.time.Now()
	switch {
	case errors.Is(err, timesync.ErrUnavailable):
		s.lastSyncedHour = noHour
		s.unaligned = true
	case err != nil:
		log.Error().Err(err).Msg("failed to read time")
		return
	case now.Hour() == s.lastSyncedHour:
		return
	default:
		s.lastSyncedHour = now.Hour()
	}

	if !s.connected() {
		log.Warn().Int("hour", s.lastSyncedHour).Msg("network not connected, cannot synchronize time")
		return
	}
	log.Info().Int("hour", s.lastSyncedHour).Msg("new hour, synchronizing time")
	if err = s.time.Resync(ctx); err != nil {
		return
	}
	if now, err = s.time.Now(); err == nil {
		s.lastSyncedHour = now.Hour()
	}
	s.updateDisplay()
}

// updateDisplay shows the verse of the current minute. Any failure leaves the
// previous frame on the panel.
func (s *Scheduler) updateDisplay() {
	now, err := s.time.Now()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read time, skipping refresh")
		return
	}

	record, err := s.verses.Resolve(now.Hour(), now.Minute())
	if err != nil {
		log.Warn().Err(err).Int("hour", now.Hour()).Int("minute", now.Minute()).Msg("no verse, skipping refresh")
		return
	}

	snapshot := render.NewSnapshot(now, record)
	if snapshot.IsEmpty() {
		log.Warn().Int("hour", now.Hour()).Int("minute", now.Minute()).Msg("verse is empty, skipping refresh")
		return
	}
	if err = s.display.Show(snapshot); err != nil {
		log.Error().Err(err).Msg("failed to refresh display")
	}
}

func (s *Scheduler) connected() bool {
	return s.network == nil || s.network.Connected()
}
