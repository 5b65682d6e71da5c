package command

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type helpCmd struct {
	reply  Replier
	prefix string
}

func (c *helpCmd) HelpText() string { return "show basic help text" }

func (c *helpCmd) Execute(sender, raw string) bool {
	msg := fmt.Sprintf("Use %scmds for all commands, and %sabout for more info.",
		c.prefix, c.prefix)
	c.reply.Reply(msg, sender, true)
	return true
}

type cmdsCmd struct {
	table     *Table
	reply     Replier
	lineDelay time.Duration
}

func (c *cmdsCmd) HelpText() string { return "[multiline] list available commands and usages" }

func (c *cmdsCmd) Execute(sender, raw string) bool {
	_, multiline := arg(raw)

	if multiline {
		// One notice per command line; paced so the server's flood
		// limits don't eat the tail of the list.
		for i, name := range c.table.Names() {
			if i > 0 {
				time.Sleep(c.lineDelay)
			}
			line := c.table.prefix + name + " - " + c.table.handlers[name].HelpText()
			c.reply.Reply(line, sender, true)
		}
		return true
	}

	parts := make([]string, 0, len(c.table.order))
	for _, name := range c.table.Names() {
		parts = append(parts, c.table.prefix+name+" - "+c.table.handlers[name].HelpText())
	}
	c.reply.Reply(strings.Join(parts, " | "), sender, true)
	return true
}

type aboutCmd struct {
	reply     Replier
	channel   string
	prefix    string
	adminName string
	version   string
}

func (c *aboutCmd) HelpText() string { return "show information about me" }

func (c *aboutCmd) Execute(sender, raw string) bool {
	msg := fmt.Sprintf("I am a smol IRC bot made by %s. Mention me by name or use %s for commands. Version %s.",
		c.adminName, c.prefix, c.version)
	c.reply.Reply(msg, c.channel, false)
	return true
}

type timeCmd struct {
	reply   Replier
	channel string
}

func (c *timeCmd) HelpText() string { return "show the time" }

func (c *timeCmd) Execute(sender, raw string) bool {
	c.reply.Reply(fmt.Sprintf("%d", time.Now().Unix()), c.channel, false)
	return true
}

type dateCmd struct {
	reply   Replier
	channel string
}

func (c *dateCmd) HelpText() string { return "show the date" }

func (c *dateCmd) Execute(sender, raw string) bool {
	c.reply.Reply(time.Now().UTC().Format("2006-01-02 15:04:05+00:00"), c.channel, false)
	return true
}

type weekdayCmd struct {
	reply   Replier
	channel string
}

func (c *weekdayCmd) HelpText() string { return "show the weekday" }

func (c *weekdayCmd) Execute(sender, raw string) bool {
	c.reply.Reply(time.Now().Weekday().String(), c.channel, false)
	return true
}

type uptimeCmd struct {
	reply   Replier
	channel string
	start   time.Time
}

func (c *uptimeCmd) HelpText() string { return "show my age" }

func (c *uptimeCmd) Execute(sender, raw string) bool {
	age := time.Since(c.start).Truncate(time.Second)
	c.reply.Reply(age.String(), c.channel, false)
	return true
}

type updogCmd struct {
	reply   Replier
	channel string
}

func (c *updogCmd) HelpText() string { return "is it me or does it smell like updog in here" }

func (c *updogCmd) Execute(sender, raw string) bool {
	c.reply.Reply("Nothing much, what's up with you?", c.channel, false)
	return true
}

type shrugCmd struct {
	reply   Replier
	channel string
}

func (c *shrugCmd) HelpText() string { return "shrug" }

func (c *shrugCmd) Execute(sender, raw string) bool {
	c.reply.Reply(`¯\_(ツ)_/¯`, c.channel, false)
	return true
}

type copypastaCmd struct {
	reply   Replier
	channel string
	pasta   PastaSource
	maxLen  func() int
}

// fallbackPastaLen bounds the reply when the outbound budget is not yet
// known.
const fallbackPastaLen = 400

func (c *copypastaCmd) HelpText() string { return "<query> get copypasta based on query" }

func (c *copypastaCmd) Execute(sender, raw string) bool {
	query, ok := arg(raw)
	if !ok {
		c.reply.Reply("I need a search term.", c.channel, false)
		return false
	}
	if c.pasta == nil {
		return false
	}

	text, err := c.pasta.Search(query)
	if err != nil {
		slog.Error("copypasta search failed", slog.String("query", query), slog.Any("err", err))
		return false
	}

	budget := 0
	if c.maxLen != nil {
		budget = c.maxLen()
	}
	if budget <= 3 {
		budget = fallbackPastaLen
	}

	// Flatten to one line, keep it inside a single message, always
	// trail off.
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > budget-3 {
		text = strings.TrimSpace(text[:budget-3])
	}
	c.reply.Reply(text+"...", c.channel, false)
	return true
}

type interjectCmd struct {
	reply   Replier
	channel string
	tables  SnapshotSource
}

func (c *interjectCmd) HelpText() string { return "set people right about GNU/Linux" }

func (c *interjectCmd) Execute(sender, raw string) bool {
	if c.tables != nil {
		for _, rule := range c.tables.Current().Triggers {
			if strings.Contains(rule.Key, "linux") && len(rule.Responses) > 0 {
				c.reply.Reply(rule.Responses[0], c.channel, false)
				return true
			}
		}
	}
	c.reply.Reply("I'd just like to interject for a moment.", c.channel, false)
	return true
}
