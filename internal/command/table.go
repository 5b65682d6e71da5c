// Package command implements the bot command registry and its handlers.
package command

import (
	"log/slog"
	"strings"
	"time"

	"github.com/muhbot/muhbot/internal/analysis"
	"github.com/muhbot/muhbot/internal/cloud"
	"github.com/muhbot/muhbot/internal/store"
	"github.com/muhbot/muhbot/internal/tables"
)

// Replier sends a reply chunked to the session's current length budget.
type Replier interface {
	Reply(text, target string, notice bool) error
}

// SnapshotSource yields the current reloadable tables.
type SnapshotSource interface {
	Current() *tables.Snapshot
}

// PastaSource fetches copypasta text for a search query.
type PastaSource interface {
	Search(query string) (string, error)
}

// Handler is one named command: a help line plus an executable bound at
// construction time to the capabilities it needs.
type Handler interface {
	HelpText() string
	Execute(sender, raw string) bool
}

// Deps carries everything a handler might be bound to. Handlers keep only
// the fields they use.
type Deps struct {
	Reply    Replier
	Users    *store.Users
	Analyzer analysis.TextAnalyzer
	Cloud    cloud.ArtifactStore
	Tables   SnapshotSource
	Pasta    PastaSource

	// MaxLen reports the session's current outbound text budget; 0 means
	// not yet known.
	MaxLen func() int
	// LineDelay spaces out multi-message replies to respect flood limits.
	LineDelay time.Duration

	Channel     string
	Prefix      string
	AdminName   string
	Nick        string
	UserLogSize int
	Stopwords   []string
	StartTime   time.Time
	Version     string
}

// Table maps command names to handlers. Built once at startup; names are
// disjoint by construction.
type Table struct {
	order      []string
	handlers   map[string]Handler
	maxNameLen int

	reply   Replier
	channel string
	prefix  string
}

// NewTable registers the full command set.
func NewTable(d Deps) *Table {
	t := &Table{
		handlers: make(map[string]Handler),
		reply:    d.Reply,
		channel:  d.Channel,
		prefix:   d.Prefix,
	}

	t.register("about", &aboutCmd{d.Reply, d.Channel, d.Prefix, d.AdminName, d.Version})
	t.register("cmds", &cmdsCmd{t, d.Reply, d.LineDelay})
	t.register("copypasta", &copypastaCmd{d.Reply, d.Channel, d.Pasta, d.MaxLen})
	t.register("date", &dateCmd{d.Reply, d.Channel})
	t.register("help", &helpCmd{d.Reply, d.Prefix})
	t.register("interject", &interjectCmd{d.Reply, d.Channel, d.Tables})
	lastMessage := &lastMessageCmd{d.Reply, d.Channel, d.Users}
	t.register("lastmessage", lastMessage)
	t.register("lm", lastMessage)
	t.register("sentiment", &sentimentCmd{d.Reply, d.Channel, d.Users, d.Analyzer})
	t.register("shrug", &shrugCmd{d.Reply, d.Channel})
	t.register("time", &timeCmd{d.Reply, d.Channel})
	t.register("updog", &updogCmd{d.Reply, d.Channel})
	t.register("uptime", &uptimeCmd{d.Reply, d.Channel, d.StartTime})
	t.register("weekday", &weekdayCmd{d.Reply, d.Channel})
	t.register("wordcloud", &wordcloudCmd{d.Reply, d.Channel, d.Users, d.Cloud, t, d.Stopwords})
	t.register("words", &wordsCmd{d.Reply, d.Channel, d.Users, t, d.Stopwords, d.UserLogSize})

	return t
}

func (t *Table) register(name string, h Handler) {
	t.order = append(t.order, name)
	t.handlers[name] = h
	if len(name) > t.maxNameLen {
		t.maxNameLen = len(name)
	}
}

// Names returns the registered command names in registration order.
func (t *Table) Names() []string {
	return t.order
}

// CommandName extracts the command token from a raw prefixed message. The
// text after the prefix is truncated to the longest registered name
// before taking the first whitespace-delimited token, so an unbounded
// message is never scanned for a delimiter that is not there and an
// over-long token still resolves to the command it starts with.
func (t *Table) CommandName(raw string) string {
	if !strings.HasPrefix(raw, t.prefix) {
		return ""
	}
	rest := raw[len(t.prefix):]
	if len(rest) > t.maxNameLen {
		rest = rest[:t.maxNameLen]
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Dispatch resolves and runs the handler for a raw prefixed message. A
// panicking handler is caught here and logged; it never crashes the
// router loop.
func (t *Table) Dispatch(sender, raw string) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("command handler panicked",
				slog.String("raw", raw), slog.Any("panic", rec))
		}
	}()

	name := t.CommandName(raw)
	if name == "" {
		return
	}
	h, ok := t.handlers[strings.ToLower(name)]
	if !ok {
		t.reply.Reply("I don't know that one. Try "+t.prefix+"help.", t.channel, false)
		return
	}
	if !h.Execute(sender, raw) {
		slog.Debug("command reported failure",
			slog.String("command", name), slog.String("sender", sender))
	}
}

// arg returns the text after the command token, trimmed. Junk arguments
// that used to confuse the matcher are treated as absent.
func arg(raw string) (string, bool) {
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) < 2 {
		return "", false
	}
	q := strings.TrimSpace(parts[1])
	if q == "" || q == "*" || q == `\` {
		return "", false
	}
	return q, true
}
