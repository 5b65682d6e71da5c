package command

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/muhbot/muhbot/internal/analysis"
	"github.com/muhbot/muhbot/internal/cloud"
	"github.com/muhbot/muhbot/internal/store"
)

type lastMessageCmd struct {
	reply   Replier
	channel string
	users   *store.Users
}

func (c *lastMessageCmd) HelpText() string {
	return "<user> show information about last message of a user"
}

func (c *lastMessageCmd) Execute(sender, raw string) bool {
	name, ok := arg(raw)
	if !ok {
		c.reply.Reply("I need a name.", c.channel, false)
		return false
	}

	rec, err := c.users.Lookup(name)
	if err != nil {
		slog.Error("user lookup failed", slog.String("name", name), slog.Any("err", err))
		return false
	}
	if rec == nil {
		c.reply.Reply("I haven't encountered this user yet.", c.channel, false)
		return true
	}

	msg := fmt.Sprintf("%s's last message: %q at %s.",
		rec.Name, rec.LastMessage, rec.LastSeen.UTC().Format("2006-01-02 15:04:05"))
	c.reply.Reply(msg, c.channel, false)
	return true
}

type sentimentCmd struct {
	reply    Replier
	channel  string
	users    *store.Users
	analyzer analysis.TextAnalyzer
}

func (c *sentimentCmd) HelpText() string { return "<text>/<user> analyze sentiment" }

func (c *sentimentCmd) Execute(sender, raw string) bool {
	query, ok := arg(raw)
	if !ok {
		c.reply.Reply("I need a name or some text.", c.channel, false)
		return false
	}

	// A known nickname means "score that user's last message"; anything
	// else is scored as-is.
	text := query
	rec, err := c.users.Lookup(query)
	if err != nil {
		slog.Error("user lookup failed", slog.String("name", query), slog.Any("err", err))
	} else if rec != nil {
		text = rec.LastMessage
	}

	cls := c.analyzer.Classify(text)
	msg := fmt.Sprintf("The text: %q is %s. %s", text, cls.Category, cls.String())
	c.reply.Reply(msg, c.channel, false)
	return true
}

type wordsCmd struct {
	reply     Replier
	channel   string
	users     *store.Users
	table     *Table
	stopwords []string
	logSize   int
}

func (c *wordsCmd) HelpText() string { return "<user> show a user's most used words" }

const topWordCount = 10

func (c *wordsCmd) Execute(sender, raw string) bool {
	name, ok := arg(raw)
	if !ok {
		name = sender
	}

	rec, err := c.users.Lookup(name)
	if err != nil {
		slog.Error("user lookup failed", slog.String("name", name), slog.Any("err", err))
		return false
	}
	if rec == nil {
		c.reply.Reply("I haven't encountered this user yet.", c.channel, false)
		return true
	}

	stop := c.subjectStopwords(rec.Name)
	top := analysis.TopWords(rec.Messages, stop, topWordCount)

	msg := fmt.Sprintf("(%s) Top words (of last %d messages) for %s: %s",
		sender, c.logSize, rec.Name, analysis.FormatCounts(top))
	c.reply.Reply(msg, c.channel, false)
	return true
}

// subjectStopwords merges the configured stopwords, the command names and
// the subject's own nick so neither dominates the counts.
func (c *wordsCmd) subjectStopwords(name string) map[string]bool {
	extras := append([]string{}, c.stopwords...)
	extras = append(extras, c.table.Names()...)
	extras = append(extras, name)
	return analysis.Stopwords(extras...)
}

type wordcloudCmd struct {
	reply     Replier
	channel   string
	users     *store.Users
	cloud     cloud.ArtifactStore
	table     *Table
	stopwords []string
}

func (c *wordcloudCmd) HelpText() string { return "<user> [title] generate a word cloud for a user" }

func (c *wordcloudCmd) Execute(sender, raw string) bool {
	name, ok := arg(raw)
	if !ok {
		name = sender
	}
	// The optional second argument captions the image.
	fields := strings.Fields(raw)
	useTitle := len(fields) >= 3 && fields[2] == "title"
	if ok {
		name = fields[1]
	}

	rec, err := c.users.Lookup(name)
	if err != nil {
		slog.Error("user lookup failed", slog.String("name", name), slog.Any("err", err))
		return false
	}
	if rec == nil {
		c.reply.Reply("I haven't encountered this user yet.", c.channel, false)
		return true
	}

	// Rendering and upload are slow; acknowledge before starting so the
	// channel is not left wondering.
	c.reply.Reply(fmt.Sprintf("(%s) Cloud generation for nick %s started...", sender, rec.Name),
		c.channel, false)

	extras := append([]string{}, c.stopwords...)
	extras = append(extras, c.table.Names()...)
	extras = append(extras, rec.Name)

	var title string
	if useTitle {
		title = "Wordcloud for " + rec.Name
	}

	img, err := c.cloud.Render(rec.Messages, analysis.Stopwords(extras...), title)
	if err != nil {
		slog.Error("cloud render failed", slog.String("name", rec.Name), slog.Any("err", err))
		return false
	}
	link, err := c.cloud.Publish(img)
	if err != nil {
		slog.Error("cloud upload failed", slog.String("name", rec.Name), slog.Any("err", err))
		return false
	}

	c.reply.Reply("Cloud generated for "+rec.Name+": "+link, c.channel, false)
	return true
}
