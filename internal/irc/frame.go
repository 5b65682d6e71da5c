package irc

import (
	"errors"
	"net"
	"time"
	"unicode/utf8"

	"github.com/ergochat/irc-go/ircreader"
)

// ErrIdle is returned when no frame arrives within the idle timeout. The
// caller decides whether that means a dead connection.
var ErrIdle = errors.New("no data before idle timeout")

// FrameReader turns the raw byte stream into complete protocol lines.
// Partial lines are accumulated across reads by the buffered reader, so a
// frame split across TCP segments is never truncated.
type FrameReader struct {
	conn        net.Conn
	reader      *ircreader.Reader
	idleTimeout time.Duration
}

// NewFrameReader wraps conn with a line-buffering reader and a bounded
// per-read wait.
func NewFrameReader(conn net.Conn, idleTimeout time.Duration) *FrameReader {
	return &FrameReader{
		conn:        conn,
		reader:      ircreader.NewIRCReader(conn),
		idleTimeout: idleTimeout,
	}
}

// ReadFrame blocks for at most the idle timeout and returns one complete
// line without its terminator. A timed-out read yields ErrIdle; bytes
// that do not decode as UTF-8 yield a synthetic "ERROR" frame instead of
// an error.
func (fr *FrameReader) ReadFrame() (string, error) {
	if fr.idleTimeout > 0 {
		if err := fr.conn.SetReadDeadline(time.Now().Add(fr.idleTimeout)); err != nil {
			return "", err
		}
	}

	line, err := fr.reader.ReadLine()
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return "", ErrIdle
		}
		return "", err
	}
	if !utf8.Valid(line) {
		return "ERROR", nil
	}
	return string(line), nil
}
