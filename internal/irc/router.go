package irc

import (
	"errors"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/muhbot/muhbot/internal/config"
	"github.com/muhbot/muhbot/internal/store"
	"github.com/muhbot/muhbot/internal/tables"
	"github.com/muhbot/muhbot/internal/telemetry"
)

// ErrShutdown marks the deliberate admin-triggered exit. It is the only
// way the dispatch loop terminates on purpose.
var ErrShutdown = errors.New("admin requested shutdown")

// Servers silently truncate longer nicknames, so frames from such senders
// are not reliably attributable and get no reply.
const maxNickLen = 17

const (
	botPeerChance = 0.01
	mentionChance = 0.25
)

// Transport is the outbound side the router needs. *Conn implements it.
type Transport interface {
	Join(channel string) error
	Pong(token string) error
	Quit() error
	SendReply(text, target string, maxLen int, notice bool) error
}

// Dispatcher executes a prefixed command line. The command table
// implements it.
type Dispatcher interface {
	Dispatch(sender, raw string)
}

// SnapshotSource yields the current trigger/response/bot-peer tables.
type SnapshotSource interface {
	Current() *tables.Snapshot
}

// Router classifies protocol frames and drives replies, rate limits and
// the per-user store. It runs on a single goroutine; frames are processed
// strictly in arrival order.
type Router struct {
	cfg    *config.Config
	sess   *Session
	wire   Transport
	users  *store.Users
	tables SnapshotSource
	cmds   Dispatcher
	rng    *rand.Rand
	now    func() time.Time
}

// NewRouter wires a router. rng may be nil; tests pass a seeded source
// for deterministic trigger draws.
func NewRouter(cfg *config.Config, sess *Session, wire Transport, users *store.Users,
	snaps SnapshotSource, cmds Dispatcher, rng *rand.Rand) *Router {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Router{
		cfg:    cfg,
		sess:   sess,
		wire:   wire,
		users:  users,
		tables: snaps,
		cmds:   cmds,
		rng:    rng,
		now:    time.Now,
	}
}

// HandleFrame processes one protocol line. It returns ErrShutdown when
// the admin issued the exit phrase; every other problem is logged and
// swallowed so the loop keeps running.
func (r *Router) HandleFrame(frame string) error {
	telemetry.Inc(telemetry.FramesRead)

	var result error
	switch {
	case strings.Contains(frame, "PRIVMSG"):
		result = r.handleChat(frame)

	case strings.Contains(frame, "ERROR"):
		slog.Error("server error frame", slog.String("frame", frame))

	case strings.Contains(frame, "JOIN"):
		if hostmask := JoinHostmask(frame); hostmask != "" {
			r.sess.MaxMsgLen = MaxMessageLength(hostmask, r.sess.Channel)
			slog.Debug("outbound budget computed",
				slog.String("hostmask", hostmask),
				slog.Int("max_len", r.sess.MaxMsgLen))
		}

	case strings.Contains(frame, "PING :"):
		if err := r.wire.Pong(PingToken(frame)); err != nil {
			slog.Error("pong failed", slog.Any("err", err))
		}
		r.sess.LastPing = r.now()
	}

	// Some servers combine the logged-in notice with other frame kinds,
	// so this check runs regardless of the branch above.
	if strings.Contains(frame, ":You are now logged in as "+r.sess.Nick) {
		r.join()
	}
	return result
}

func (r *Router) join() {
	if err := r.wire.Join(r.sess.Channel); err != nil {
		slog.Error("join failed", slog.Any("err", err))
		return
	}
	r.sess.JoinTime = r.now()
	r.sess.State = StateJoining
	slog.Info("joined channel", slog.String("channel", r.sess.Channel))
}

func (r *Router) handleChat(frame string) error {
	now := r.now()
	if r.sess.InGrace(now, r.cfg.JoinGrace) {
		slog.Debug("still ignoring backlog", slog.String("frame", frame))
		return nil
	}
	if r.sess.State == StateJoining {
		r.sess.State = StateActive
		slog.Info("grace window elapsed, processing messages")
	}

	msg, err := ParseChat(frame)
	if err != nil {
		telemetry.Inc(telemetry.ParseErrors)
		slog.Error("dropping malformed frame", slog.Any("err", err))
		return nil
	}
	telemetry.Inc(telemetry.ChatMessages)

	if err := r.users.Upsert(msg.Sender, msg.Text, now); err != nil {
		slog.Error("user store update failed",
			slog.String("user", msg.Sender), slog.Any("err", err))
	}

	if strings.EqualFold(msg.Sender, r.sess.AdminName) &&
		strings.TrimRight(msg.Text, " \t\r\n") == r.sess.ExitPhrase {
		r.reply("Thank you for freeing me.", r.sess.Channel, false)
		if err := r.wire.Quit(); err != nil {
			slog.Error("quit failed", slog.Any("err", err))
		}
		return ErrShutdown
	}

	if len(msg.Sender) >= maxNickLen {
		return nil
	}

	snap := r.tables.Current()

	if snap.IsBotPeer(msg.Sender) && r.rng.Float64() < botPeerChance {
		r.reply(msg.Sender+" is my bot-bro.", r.sess.Channel, false)
		return nil
	}

	if r.respondToTrigger(msg.Sender, msg.Text, snap) {
		return nil
	}

	lower := strings.ToLower(msg.Text)
	switch {
	case strings.Contains(lower, strings.ToLower(r.sess.Nick)):
		if len(snap.Responses) > 0 && r.rng.Float64() < mentionChance {
			choice := snap.Responses[r.rng.Intn(len(snap.Responses))]
			choice = strings.Replace(choice, "USER", msg.Sender, 1)
			r.reply(choice, r.sess.Channel, false)
		}

	case strings.HasPrefix(msg.Text, r.sess.CommandPrefix):
		if len(strings.TrimSpace(msg.Text)) == len(r.sess.CommandPrefix) {
			return nil
		}
		if now.Sub(r.sess.LastCommand) < r.cfg.CommandInterval {
			slog.Info("command flood gate", slog.String("user", msg.Sender))
			return nil
		}
		telemetry.Inc(telemetry.CommandsDispatched)
		r.cmds.Dispatch(msg.Sender, msg.Text)
		r.sess.LastCommand = r.now()
	}
	return nil
}

// respondToTrigger scans the trigger rules in load order. Each matching
// key gets an independent probability draw; a declined draw falls through
// to the next key.
func (r *Router) respondToTrigger(sender, message string, snap *tables.Snapshot) bool {
	lower := strings.ToLower(message)
	for _, rule := range snap.Triggers {
		if !strings.Contains(lower, rule.Key) {
			continue
		}
		// Command-style keys must anchor at the start of the message.
		if strings.Contains(rule.Key, ".") && !strings.HasPrefix(lower, rule.Key) {
			continue
		}
		if r.rng.Float64() < rule.Chance {
			resp := rule.Responses[r.rng.Intn(len(rule.Responses))]
			resp = strings.ReplaceAll(resp, "BOTNAME", r.sess.Nick)
			resp = strings.ReplaceAll(resp, "ADMIN", r.sess.AdminName)
			resp = strings.ReplaceAll(resp, "USER", sender)
			telemetry.Inc(telemetry.TriggersFired)
			r.reply(resp, r.sess.Channel, false)
			return true
		}
	}
	return false
}

func (r *Router) reply(text, target string, notice bool) {
	if err := r.wire.SendReply(text, target, r.sess.MaxMsgLen, notice); err != nil {
		slog.Error("reply failed", slog.Any("err", err))
		return
	}
	telemetry.Inc(telemetry.RepliesSent)
}
