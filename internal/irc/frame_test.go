package irc

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestReadFrameSplitsLines(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	fr := NewFrameReader(client, time.Second)

	go server.Write([]byte("PING :abc\r\n:a!a@h PRIVMSG #c :hi\r\n"))

	first, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if first != "PING :abc" {
		t.Errorf("first frame = %q", first)
	}

	second, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if second != ":a!a@h PRIVMSG #c :hi" {
		t.Errorf("second frame = %q", second)
	}
}

func TestReadFrameAccumulatesPartialLines(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	fr := NewFrameReader(client, time.Second)

	// One frame delivered in two TCP segments.
	go func() {
		server.Write([]byte(":a!a@h PRIVMSG #c :split "))
		time.Sleep(50 * time.Millisecond)
		server.Write([]byte("across reads\r\n"))
	}()

	frame, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if frame != ":a!a@h PRIVMSG #c :split across reads" {
		t.Errorf("frame = %q", frame)
	}
}

func TestReadFrameIdleTimeout(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	fr := NewFrameReader(client, 50*time.Millisecond)

	_, err := fr.ReadFrame()
	if !errors.Is(err, ErrIdle) {
		t.Errorf("err = %v, want ErrIdle", err)
	}
}

func TestReadFrameInvalidUTF8(t *testing.T) {
	client, server := net.Pipe()
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	fr := NewFrameReader(client, time.Second)

	go server.Write([]byte{0xff, 0xfe, 0xfd, '\r', '\n'})

	frame, err := fr.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if frame != "ERROR" {
		t.Errorf("frame = %q, want synthetic ERROR", frame)
	}
}
