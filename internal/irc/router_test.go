package irc

import (
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muhbot/muhbot/internal/analysis"
	"github.com/muhbot/muhbot/internal/command"
	"github.com/muhbot/muhbot/internal/config"
	"github.com/muhbot/muhbot/internal/store"
	"github.com/muhbot/muhbot/internal/tables"
)

type fakeWire struct {
	joins   []string
	pongs   []string
	quits   int
	replies []struct {
		text, target string
		notice       bool
	}
}

func (f *fakeWire) Join(channel string) error {
	f.joins = append(f.joins, channel)
	return nil
}

func (f *fakeWire) Pong(token string) error {
	f.pongs = append(f.pongs, token)
	return nil
}

func (f *fakeWire) Quit() error {
	f.quits++
	return nil
}

func (f *fakeWire) SendReply(text, target string, maxLen int, notice bool) error {
	f.replies = append(f.replies, struct {
		text, target string
		notice       bool
	}{text, target, notice})
	return nil
}

type fakeDispatcher struct {
	calls []string
}

func (f *fakeDispatcher) Dispatch(sender, raw string) {
	f.calls = append(f.calls, sender+"|"+raw)
}

type staticSnaps struct{ snap *tables.Snapshot }

func (s *staticSnaps) Current() *tables.Snapshot { return s.snap }

// fixedSource makes probability draws deterministic: an Int63 of 0 yields
// Float64 0.0 (always below any positive chance), and the largest Int63
// whose Float64 stays below 1.0 yields a draw that fails every chance
// below 1. (True max Int63 rounds to 1.0, which Float64 rejects and
// retries, consuming extra values.)
type fixedSource struct {
	vals []int64
	i    int
}

func (s *fixedSource) Int63() int64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func (s *fixedSource) Seed(int64) {}

const never = int64(1<<63 - 1<<10)

func alwaysFire() *rand.Rand { return rand.New(&fixedSource{vals: []int64{0}}) }
func neverFire() *rand.Rand  { return rand.New(&fixedSource{vals: []int64{never}}) }

type routerFixture struct {
	router *Router
	wire   *fakeWire
	disp   *fakeDispatcher
	sess   *Session
	users  *store.Users
	snap   *tables.Snapshot
}

func newFixture(t *testing.T, rng *rand.Rand) *routerFixture {
	t.Helper()
	cfg := &config.Config{
		JoinGrace:       10 * time.Second,
		CommandInterval: time.Second,
	}
	sess := &Session{
		Channel:       "#chan",
		Nick:          "muh_bot",
		AdminName:     "Asmodean",
		ExitPhrase:    "bye muh_bot",
		CommandPrefix: "?",
		CreatedAt:     time.Now(),
	}
	users, err := store.Open(filepath.Join(t.TempDir(), "users.db"), 10)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { users.Close() })

	wire := &fakeWire{}
	disp := &fakeDispatcher{}
	snap := &tables.Snapshot{BotPeers: map[string]bool{}}
	r := NewRouter(cfg, sess, wire, users, &staticSnaps{snap}, disp, rng)
	return &routerFixture{router: r, wire: wire, disp: disp, sess: sess, users: users, snap: snap}
}

func chat(sender, text string) string {
	return ":" + sender + "!" + sender + "@host PRIVMSG #chan :" + text
}

func TestPingYieldsOnePong(t *testing.T) {
	f := newFixture(t, neverFire())

	if err := f.router.HandleFrame("PING :abc123"); err != nil {
		t.Fatalf("HandleFrame failed: %v", err)
	}
	if len(f.wire.pongs) != 1 || f.wire.pongs[0] != "abc123" {
		t.Errorf("pongs = %v", f.wire.pongs)
	}
	if f.sess.LastPing.IsZero() {
		t.Error("LastPing not recorded")
	}
}

func TestJoinFrameComputesBudget(t *testing.T) {
	f := newFixture(t, neverFire())

	if f.sess.MaxMsgLen != 0 {
		t.Fatalf("budget should start unset, got %d", f.sess.MaxMsgLen)
	}
	f.router.HandleFrame(":muh_bot!~muh_bot@host.example JOIN #chan")
	if f.sess.MaxMsgLen <= 0 {
		t.Errorf("budget = %d, want positive", f.sess.MaxMsgLen)
	}
}

func TestLoggedInNoticeTriggersJoin(t *testing.T) {
	f := newFixture(t, neverFire())

	f.router.HandleFrame(":server NOTICE muh_bot :You are now logged in as muh_bot")
	if len(f.wire.joins) != 1 || f.wire.joins[0] != "#chan" {
		t.Errorf("joins = %v", f.wire.joins)
	}
	if f.sess.JoinTime.IsZero() || f.sess.State != StateJoining {
		t.Errorf("session = %+v", f.sess)
	}
}

func TestLoggedInCheckRunsOnAnyFrameKind(t *testing.T) {
	f := newFixture(t, neverFire())

	// Batched with a PING: both the pong and the join must happen.
	f.router.HandleFrame("PING :x :You are now logged in as muh_bot")
	if len(f.wire.pongs) != 1 {
		t.Errorf("pongs = %v", f.wire.pongs)
	}
	if len(f.wire.joins) != 1 {
		t.Errorf("joins = %v", f.wire.joins)
	}
}

func TestGraceWindowDiscardsChat(t *testing.T) {
	f := newFixture(t, alwaysFire())
	f.sess.JoinTime = time.Now()
	f.sess.State = StateJoining
	f.snap.Triggers = []tables.TriggerRule{{Key: "hello", Chance: 1, Responses: []string{"hi"}}}

	f.router.HandleFrame(chat("Alice", "hello there"))

	if len(f.wire.replies) != 0 {
		t.Errorf("replies during grace = %v", f.wire.replies)
	}
	if rec, _ := f.users.Get("Alice"); rec != nil {
		t.Error("grace-window frames must not touch the user store")
	}
}

func TestGraceWindowElapsesIntoActive(t *testing.T) {
	f := newFixture(t, neverFire())
	f.sess.JoinTime = time.Now().Add(-11 * time.Second)
	f.sess.State = StateJoining

	f.router.HandleFrame(chat("Alice", "hello there"))

	if f.sess.State != StateActive {
		t.Errorf("state = %v, want active", f.sess.State)
	}
	if rec, _ := f.users.Get("Alice"); rec == nil {
		t.Error("message after grace should reach the user store")
	}
}

func TestChatUpdatesUserRecord(t *testing.T) {
	f := newFixture(t, neverFire())

	f.router.HandleFrame(chat("Alice", "first"))
	f.router.HandleFrame(chat("Alice", "second"))

	rec, err := f.users.Get("Alice")
	if err != nil || rec == nil {
		t.Fatalf("record missing: %v", err)
	}
	if rec.LastMessage != "second" || len(rec.Messages) != 2 {
		t.Errorf("record = %+v", rec)
	}
}

func TestMalformedPrivmsgDroppedWithoutError(t *testing.T) {
	f := newFixture(t, neverFire())

	if err := f.router.HandleFrame(":Alice!Alice@host PRIVMSG"); err != nil {
		t.Errorf("malformed frame must not propagate, got %v", err)
	}
}

func TestAdminExitSequence(t *testing.T) {
	f := newFixture(t, neverFire())

	// Any other admin message does not terminate.
	if err := f.router.HandleFrame(chat("Asmodean", "hello bot")); err != nil {
		t.Fatalf("normal admin chat errored: %v", err)
	}
	if f.wire.quits != 0 {
		t.Fatal("quit before exit phrase")
	}

	// Case-insensitive admin match, trailing whitespace trimmed.
	err := f.router.HandleFrame(chat("asmodean", "bye muh_bot  "))
	if !errors.Is(err, ErrShutdown) {
		t.Fatalf("err = %v, want ErrShutdown", err)
	}
	if f.wire.quits != 1 {
		t.Error("QUIT not sent")
	}
	if len(f.wire.replies) == 0 || !strings.Contains(f.wire.replies[0].text, "freeing") {
		t.Errorf("farewell replies = %v", f.wire.replies)
	}
}

func TestExitPhraseFromNonAdminIgnored(t *testing.T) {
	f := newFixture(t, neverFire())

	if err := f.router.HandleFrame(chat("Mallory", "bye muh_bot")); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
	if f.wire.quits != 0 {
		t.Error("non-admin must not shut the bot down")
	}
}

func TestOverlongNickReadButNotReplied(t *testing.T) {
	f := newFixture(t, alwaysFire())
	longNick := strings.Repeat("x", 17)

	f.router.HandleFrame(chat(longNick, "hi muh_bot what's up"))

	if rec, _ := f.users.Get(longNick); rec == nil {
		t.Error("overlong-nick messages are still recorded")
	}
	if len(f.wire.replies) != 0 {
		t.Errorf("replies = %v, want none", f.wire.replies)
	}
}

func TestBotPeerAcknowledgement(t *testing.T) {
	f := newFixture(t, alwaysFire())
	f.snap.BotPeers["otherbot"] = true

	f.router.HandleFrame(chat("otherbot", "beep boop muh_bot"))

	if len(f.wire.replies) != 1 || f.wire.replies[0].text != "otherbot is my bot-bro." {
		t.Errorf("replies = %v", f.wire.replies)
	}
}

func TestTriggerCertainAndImpossible(t *testing.T) {
	f := newFixture(t, alwaysFire())
	f.snap.Triggers = []tables.TriggerRule{
		{Key: "nope", Chance: 0, Responses: []string{"never sent"}},
		{Key: "banana", Chance: 1, Responses: []string{"USER likes BOTNAME and ADMIN"}},
	}

	f.router.HandleFrame(chat("Alice", "I had a banana today"))

	if len(f.wire.replies) != 1 {
		t.Fatalf("replies = %v", f.wire.replies)
	}
	if f.wire.replies[0].text != "Alice likes muh_bot and Asmodean" {
		t.Errorf("substituted reply = %q", f.wire.replies[0].text)
	}
}

func TestTriggerZeroChanceNeverFires(t *testing.T) {
	f := newFixture(t, alwaysFire()) // draw 0.0 is still not < 0
	f.snap.Triggers = []tables.TriggerRule{
		{Key: "banana", Chance: 0, Responses: []string{"never"}},
	}

	f.router.HandleFrame(chat("Alice", "banana"))

	if len(f.wire.replies) != 0 {
		t.Errorf("replies = %v, want none", f.wire.replies)
	}
}

func TestTriggerDotKeyAnchorsAtStart(t *testing.T) {
	f := newFixture(t, alwaysFire())
	f.snap.Triggers = []tables.TriggerRule{
		{Key: ".interject", Chance: 1, Responses: []string{"gnu/linux"}},
	}

	f.router.HandleFrame(chat("Alice", "talking about .interject mid-message"))
	if len(f.wire.replies) != 0 {
		t.Fatalf("mid-message dot key must not fire: %v", f.wire.replies)
	}

	f.router.HandleFrame(chat("Alice", ".interject now"))
	if len(f.wire.replies) != 1 {
		t.Errorf("anchored dot key should fire: %v", f.wire.replies)
	}
}

func TestTriggerDeclinedDrawFallsThrough(t *testing.T) {
	// First draw fails (max), second succeeds (0).
	rng := rand.New(&fixedSource{vals: []int64{never, 0, 0}})
	f := newFixture(t, rng)
	f.snap.Triggers = []tables.TriggerRule{
		{Key: "banana", Chance: 0.5, Responses: []string{"first"}},
		{Key: "nana", Chance: 0.5, Responses: []string{"second"}},
	}

	f.router.HandleFrame(chat("Alice", "banana"))

	if len(f.wire.replies) != 1 || f.wire.replies[0].text != "second" {
		t.Errorf("replies = %v, want the second rule", f.wire.replies)
	}
}

func TestMentionResponse(t *testing.T) {
	f := newFixture(t, alwaysFire())
	f.snap.Responses = []string{"Why was I created, USER?"}

	f.router.HandleFrame(chat("Alice", "have you met muh_bot?"))

	if len(f.wire.replies) != 1 || f.wire.replies[0].text != "Why was I created, Alice?" {
		t.Errorf("replies = %v", f.wire.replies)
	}
}

func TestMentionDeclined(t *testing.T) {
	f := newFixture(t, neverFire())
	f.snap.Responses = []string{"Why was I created, USER?"}

	f.router.HandleFrame(chat("Alice", "have you met muh_bot?"))

	if len(f.wire.replies) != 0 {
		t.Errorf("replies = %v, want none", f.wire.replies)
	}
}

func TestCommandDispatchAndFloodGate(t *testing.T) {
	f := newFixture(t, neverFire())

	f.router.HandleFrame(chat("Alice", "?help"))
	if len(f.disp.calls) != 1 || f.disp.calls[0] != "Alice|?help" {
		t.Fatalf("calls = %v", f.disp.calls)
	}

	// Within the flood interval: skipped, global gate.
	f.router.HandleFrame(chat("Bob", "?help"))
	if len(f.disp.calls) != 1 {
		t.Errorf("flood gate failed, calls = %v", f.disp.calls)
	}
}

func TestBarePrefixIgnored(t *testing.T) {
	f := newFixture(t, neverFire())

	f.router.HandleFrame(chat("Alice", "?"))
	f.router.HandleFrame(chat("Alice", "?   "))

	if len(f.disp.calls) != 0 {
		t.Errorf("calls = %v, want none", f.disp.calls)
	}
}

// End-to-end: a raw sentiment command frame reaches the real command
// table and produces a positive classification reply.
func TestSentimentEndToEnd(t *testing.T) {
	f := newFixture(t, neverFire())

	replies := &recordingReplier{}
	table := command.NewTable(command.Deps{
		Reply:    replies,
		Users:    f.users,
		Analyzer: positiveAnalyzer{},
		Channel:  "#chan",
		Prefix:   "?",
	})
	f.router.cmds = table

	f.router.HandleFrame(":Alice!Alice@host PRIVMSG #chan :?sentiment I love this")

	if len(replies.texts) != 1 {
		t.Fatalf("replies = %v", replies.texts)
	}
	if !strings.Contains(replies.texts[0], "positive") ||
		!strings.Contains(replies.texts[0], "I love this") {
		t.Errorf("reply = %q", replies.texts[0])
	}
}

type recordingReplier struct{ texts []string }

func (r *recordingReplier) Reply(text, target string, notice bool) error {
	r.texts = append(r.texts, text)
	return nil
}

type positiveAnalyzer struct{}

func (positiveAnalyzer) Classify(text string) analysis.Classification {
	return analysis.Classification{Category: "positive", Compound: 0.6}
}
