// Package bot ties the connection, router, command table and reloadable
// tables into a supervised run loop that reconnects on failure.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/muhbot/muhbot/internal/analysis"
	"github.com/muhbot/muhbot/internal/cloud"
	"github.com/muhbot/muhbot/internal/command"
	"github.com/muhbot/muhbot/internal/config"
	"github.com/muhbot/muhbot/internal/irc"
	"github.com/muhbot/muhbot/internal/store"
	"github.com/muhbot/muhbot/internal/tables"
	"github.com/muhbot/muhbot/internal/telemetry"
)

// Supervisor owns one bot instance: it dials, authenticates, runs the
// frame loop and reconnects with exponential backoff until the context is
// cancelled or the admin shuts the bot down.
type Supervisor struct {
	cfg       *config.Config
	users     *store.Users
	snaps     *tables.Reloader
	analyzer  analysis.TextAnalyzer
	artifacts cloud.ArtifactStore
	pasta     command.PastaSource
	version   string
	started   time.Time

	// dial is swapped by tests to run sessions over a pipe.
	dial           func(ctx context.Context) (*irc.Conn, error)
	backoffInitial time.Duration
	backoffMax     time.Duration
}

// New builds a supervisor. The reloader is shared between the run loop
// and the command handlers; both only read snapshots through it.
func New(cfg *config.Config, users *store.Users, snaps *tables.Reloader,
	analyzer analysis.TextAnalyzer, artifacts cloud.ArtifactStore,
	pasta command.PastaSource, version string) *Supervisor {
	s := &Supervisor{
		cfg:            cfg,
		users:          users,
		snaps:          snaps,
		analyzer:       analyzer,
		artifacts:      artifacts,
		pasta:          pasta,
		version:        version,
		started:        time.Now(),
		backoffInitial: 2 * time.Second,
		backoffMax:     2 * time.Minute,
	}
	s.dial = func(ctx context.Context) (*irc.Conn, error) {
		return irc.Dial(ctx, cfg.Server, cfg.ChunkDelay)
	}
	return s
}

// Run keeps a session alive until ctx is cancelled or the admin issues
// the exit phrase. Every other session end, including the idle timeout,
// tears the connection down and reconnects after a backoff interval.
func (s *Supervisor) Run(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.backoffInitial
	bo.MaxInterval = s.backoffMax

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := s.dial(ctx)
		if err != nil {
			slog.Error("connect failed", slog.String("server", s.cfg.Server), slog.Any("err", err))
			if err := s.wait(ctx, bo.NextBackOff()); err != nil {
				return err
			}
			continue
		}

		telemetry.SetConnected(true)
		bo.Reset()

		err = s.runSession(ctx, conn)
		conn.Close()
		telemetry.SetConnected(false)

		switch {
		case errors.Is(err, irc.ErrShutdown):
			slog.Info("shutdown requested, not reconnecting")
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		}

		telemetry.Inc(telemetry.Reconnects)
		d := bo.NextBackOff()
		slog.Warn("session ended, reconnecting",
			slog.Any("err", err), slog.Duration("backoff", d))
		if err := s.wait(ctx, d); err != nil {
			return err
		}
	}
}

// runSession drives one authenticated connection until it fails, goes
// idle or the router asks for shutdown.
func (s *Supervisor) runSession(ctx context.Context, conn *irc.Conn) error {
	sess := &irc.Session{
		Server:        s.cfg.Server,
		Channel:       s.cfg.Channel,
		Nick:          s.cfg.Nick,
		AdminName:     s.cfg.AdminName,
		ExitPhrase:    s.cfg.ExitPhrase,
		CommandPrefix: s.cfg.CommandPrefix,
		CreatedAt:     time.Now(),
		State:         irc.StateConnecting,
	}

	conn.Authenticate(s.cfg.Nick, s.cfg.Password)
	slog.Info("authenticated, waiting for server",
		slog.String("server", s.cfg.Server), slog.String("nick", s.cfg.Nick))

	table := command.NewTable(command.Deps{
		Reply:       &sessionReplier{conn: conn, sess: sess},
		Users:       s.users,
		Analyzer:    s.analyzer,
		Cloud:       s.artifacts,
		Tables:      s.snaps,
		Pasta:       s.pasta,
		MaxLen:      func() int { return sess.MaxMsgLen },
		LineDelay:   s.cfg.ChunkDelay / 10,
		Channel:     s.cfg.Channel,
		Prefix:      s.cfg.CommandPrefix,
		AdminName:   s.cfg.AdminName,
		Nick:        s.cfg.Nick,
		UserLogSize: s.cfg.UserLogSize,
		Stopwords:   s.cfg.Stopwords,
		StartTime:   s.started,
		Version:     s.version,
	})

	router := irc.NewRouter(s.cfg, sess, conn, s.users, s.snaps, table, nil)
	frames := irc.NewFrameReader(conn.NetConn(), s.cfg.IdleTimeout)

	for {
		frame, err := frames.ReadFrame()
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := router.HandleFrame(frame); err != nil {
			return err
		}
	}
}

func (s *Supervisor) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// sessionReplier binds outbound replies to the session's current length
// budget so command handlers never learn about chunking.
type sessionReplier struct {
	conn *irc.Conn
	sess *irc.Session
}

func (r *sessionReplier) Reply(text, target string, notice bool) error {
	return r.conn.SendReply(text, target, r.sess.MaxMsgLen, notice)
}
