package irc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"
)

// Conn owns the TCP socket and performs raw protocol I/O. It does not
// retry anything itself; connect errors go back to the caller.
type Conn struct {
	conn       net.Conn
	ctx        context.Context
	chunkDelay time.Duration
}

// Dial opens the TCP connection. ctx bounds the dial and is honored
// between reply chunks for the lifetime of the connection.
func Dial(ctx context.Context, addr string, chunkDelay time.Duration) (*Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &Conn{conn: conn, ctx: ctx, chunkDelay: chunkDelay}, nil
}

// NewConn wraps an existing connection; used by tests with net.Pipe.
func NewConn(ctx context.Context, conn net.Conn, chunkDelay time.Duration) *Conn {
	return &Conn{conn: conn, ctx: ctx, chunkDelay: chunkDelay}
}

// NetConn exposes the underlying connection for the frame reader.
func (c *Conn) NetConn() net.Conn {
	return c.conn
}

// Close closes the socket.
func (c *Conn) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Conn) raw(line string) error {
	if c.conn == nil {
		return nil
	}
	_, err := fmt.Fprintf(c.conn, "%s\r\n", line)
	return err
}

// Authenticate sends the plain-text handshake: PASS, USER, NICK in that
// order. No acknowledgement is awaited.
func (c *Conn) Authenticate(nick, password string) {
	if c.conn == nil {
		return
	}
	c.raw("PASS " + password)
	c.raw(fmt.Sprintf("USER %s %s %s :%s", nick, nick, nick, nick))
	c.raw("NICK " + nick)
}

// Join sends a JOIN for the channel.
func (c *Conn) Join(channel string) error {
	return c.raw("JOIN " + channel)
}

// Pong echoes the token from the most recent PING.
func (c *Conn) Pong(token string) error {
	return c.raw("PONG :" + token)
}

// Quit sends QUIT; it does not wait for the server to close the socket.
func (c *Conn) Quit() error {
	return c.raw("QUIT")
}

// SendReply transmits text to target, split into chunks of at most maxLen
// bytes, with a fixed delay between chunks to respect server flood
// limits. Every chunk is attempted even if an earlier one fails; the
// first error is reported. A maxLen of 0 (budget not yet known) sends the
// text unsplit.
func (c *Conn) SendReply(text, target string, maxLen int, notice bool) error {
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	if maxLen <= 0 {
		maxLen = len(text)
	}

	cmd, sep := "PRIVMSG ", " :"
	if notice {
		cmd, sep = "NOTICE ", " "
	}

	var firstErr error
	for start := 0; start < len(text); start += maxLen {
		end := start + maxLen
		if end > len(text) {
			end = len(text)
		}
		if err := c.raw(cmd + target + sep + text[start:end]); err != nil && firstErr == nil {
			firstErr = err
		}
		if end < len(text) {
			if err := c.sleep(); err != nil {
				return err
			}
		}
	}
	return firstErr
}

func (c *Conn) sleep() error {
	if c.ctx == nil {
		time.Sleep(c.chunkDelay)
		return nil
	}
	timer := time.NewTimer(c.chunkDelay)
	defer timer.Stop()
	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StartBatch opens a draft/multiline batch on the channel and returns its
// id. Experimental; correctness does not depend on it.
func (c *Conn) StartBatch(channel string) (string, error) {
	id := uuid.NewString()
	if err := c.raw(fmt.Sprintf("BATCH +%s draft/multiline %s", id, channel)); err != nil {
		return "", err
	}
	return id, nil
}

// EndBatch closes a batch previously opened with StartBatch.
func (c *Conn) EndBatch(id string) error {
	return c.raw("BATCH -" + id)
}
