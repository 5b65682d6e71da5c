package tables

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Reloader re-reads the table files on a fixed interval and publishes each
// fresh snapshot atomically. The dispatch loop reads whatever snapshot is
// current; a reload never tears a snapshot mid-read.
type Reloader struct {
	dataDir       string
	adminName     string
	nick          string
	commandPrefix string
	interval      time.Duration

	current atomic.Pointer[Snapshot]
}

// NewReloader loads an initial snapshot. A failed initial load still
// yields a usable (empty) snapshot; the error is reported so startup can
// log it.
func NewReloader(dataDir, adminName, nick, commandPrefix string, interval time.Duration) (*Reloader, error) {
	r := &Reloader{
		dataDir:       dataDir,
		adminName:     adminName,
		nick:          nick,
		commandPrefix: commandPrefix,
		interval:      interval,
	}
	snap, err := Load(dataDir, adminName, nick, commandPrefix)
	if err != nil {
		snap = &Snapshot{BotPeers: map[string]bool{}}
	}
	r.current.Store(snap)
	return r, err
}

// Current returns the latest snapshot. Never nil.
func (r *Reloader) Current() *Snapshot {
	return r.current.Load()
}

// Run reloads the tables every interval until ctx is done.
func (r *Reloader) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snap, err := Load(r.dataDir, r.adminName, r.nick, r.commandPrefix)
			if err != nil {
				// Keep serving the previous snapshot.
				slog.Error("table reload failed", slog.Any("err", err))
				continue
			}
			r.current.Store(snap)
			slog.Debug("tables reloaded",
				slog.Int("triggers", len(snap.Triggers)),
				slog.Int("responses", len(snap.Responses)),
				slog.Int("bot_peers", len(snap.BotPeers)))
		}
	}
}
