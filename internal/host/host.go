// Package host is a reference host runtime for the bridge's entities. It
// stands in for a home-automation platform's scheduler: it registers
// entities, polls them on a fixed interval, serializes user commands with
// those polls, and owns the retry-by-next-poll behavior for read failures.
package host

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danielsmyers/evolution-bridge/internal/datadog"
	"github.com/danielsmyers/evolution-bridge/internal/entity"
	"github.com/danielsmyers/evolution-bridge/internal/notifications"
)

// failureNotifyThreshold is how many consecutive failed polls it takes
// before the harness raises a notification.
const failureNotifyThreshold = 3

const notifyCooldown = 30 * time.Minute

type registration struct {
	info    entity.Info
	updater entity.Updater // nil for passive entities
}

type task struct {
	fn   func(context.Context) error
	done chan error
}

// Host polls registered entities sequentially on one goroutine and runs
// submitted commands on that same goroutine, so nothing ever touches the
// device or entity state concurrently. The SAM answers one parameter at a
// time; two interleaved conversations would corrupt both.
type Host struct {
	interval time.Duration
	entities []registration
	tasks    chan task
	writer   entity.StateWriter

	failures     int
	lastNotified time.Time
}

func New(interval time.Duration) *Host {
	return &Host{
		interval: interval,
		tasks:    make(chan task),
		writer:   entity.NopWriter,
	}
}

// BindStateWriter sets the signal raised after each poll pass, so hosts
// that render over a transport (MQTT) see polled state, not just
// optimistic mutations.
func (h *Host) BindStateWriter(w entity.StateWriter) {
	if w == nil {
		w = entity.NopWriter
	}
	h.writer = w
}

// Register adds an entity. Passive entities (no polling of their own) pass
// a nil updater and only contribute registry metadata.
func (h *Host) Register(info entity.Info, updater entity.Updater) {
	h.entities = append(h.entities, registration{info: info, updater: updater})
	log.Info().
		Str("unique_id", info.UniqueID).
		Str("name", info.Name).
		Str("device", info.Device.ID).
		Msg("Entity registered")
}

// Do submits a command and waits for the loop to run it. Implements
// entity.Executor.
func (h *Host) Do(ctx context.Context, fn func(context.Context) error) error {
	t := task{fn: fn, done: make(chan error, 1)}
	select {
	case h.tasks <- t:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-t.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run performs one update pass before entering the loop, so entities have
// state to show the moment they appear, then alternates between scheduled
// polls and submitted commands until ctx is done.
func (h *Host) Run(ctx context.Context) {
	h.updateAll(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Host loop stopped")
			return
		case t := <-h.tasks:
			t.done <- t.fn(ctx)
		case <-ticker.C:
			h.updateAll(ctx)
		}
	}
}

func (h *Host) updateAll(ctx context.Context) {
	for _, reg := range h.entities {
		if reg.updater == nil {
			continue
		}
		if err := reg.updater.Update(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			h.failures++
			datadog.Count("zone.refresh_failures", 1)
			log.Error().
				Err(err).
				Str("unique_id", reg.info.UniqueID).
				Int("consecutive", h.failures).
				Msg("Entity update failed")
			h.maybeNotify(reg.info, err)
			continue
		}
		h.failures = 0
	}
	h.writer.WriteState()
}

func (h *Host) maybeNotify(info entity.Info, err error) {
	if h.failures < failureNotifyThreshold {
		return
	}
	if time.Since(h.lastNotified) < notifyCooldown {
		return
	}
	h.lastNotified = time.Now()
	if nerr := notifications.Send("Evolution bridge", info.Name+" is not answering polls: "+err.Error()); nerr != nil {
		log.Warn().Err(nerr).Msg("Failed to send failure notification")
	}
}
