package irc

import (
	"fmt"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// ChatMessage is the sender, destination and text extracted from a
// PRIVMSG frame.
type ChatMessage struct {
	Sender string
	Target string
	Text   string
}

// ParseChat extracts a ChatMessage from a raw PRIVMSG frame. A frame
// whose PRIVMSG segment lacks the ':' text separator is rejected with an
// error rather than guessed at.
func ParseChat(frame string) (*ChatMessage, error) {
	idx := strings.Index(frame, "PRIVMSG")
	if idx < 0 {
		return nil, fmt.Errorf("frame has no PRIVMSG marker: %q", frame)
	}
	if !strings.Contains(frame[idx:], ":") {
		return nil, fmt.Errorf("PRIVMSG frame missing text separator: %q", frame)
	}

	msg, err := ircmsg.ParseLine(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to parse frame: %w", err)
	}
	if msg.Command != "PRIVMSG" || len(msg.Params) < 2 {
		return nil, fmt.Errorf("malformed PRIVMSG frame: %q", frame)
	}

	sender := msg.Nick()
	if sender == "" {
		sender = msg.Source
	}
	return &ChatMessage{
		Sender: sender,
		Target: msg.Params[0],
		Text:   msg.Params[1],
	}, nil
}

// PingToken returns the token to echo back for a PING frame. Servers can
// batch a PING with other content, so the token is whatever follows the
// last occurrence of "PING" in the line.
func PingToken(frame string) string {
	i := strings.LastIndex(frame, "PING")
	if i < 0 {
		return ""
	}
	token := frame[i+len("PING"):]
	token = strings.TrimPrefix(token, " ")
	token = strings.TrimPrefix(token, ":")
	return token
}

// JoinHostmask returns the sender token of a JOIN frame (the first
// whitespace-delimited field, leading colon included). Its length feeds
// the outbound message budget.
func JoinHostmask(frame string) string {
	fields := strings.Fields(frame)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// MaxMessageLength computes the outbound PRIVMSG text budget for this
// session. 510 rather than 512 reserves the closing CRLF.
func MaxMessageLength(hostmask, channel string) int {
	return 510 - (len(hostmask) +
		len("PRIVMSG ") +
		len(channel) +
		len(" :") +
		len("\n"))
}
