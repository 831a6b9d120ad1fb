package player

import (
	"bufio"
	"net"
	"slices"
	"testing"
	"time"
)

func newSleepingExternal(t *testing.T) (*External, *[]string) {
	t.Helper()
	args := stubCommands(t, "sleep", "30")
	e, err := NewExternal("https://video.example/watch?v=1", "", nil)
	if err != nil {
		t.Fatalf("NewExternal() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, args
}

func TestExternalStartsMPVPaused(t *testing.T) {
	e, args := newSleepingExternal(t)
	if !slices.Contains(*args, "--pause") || !slices.Contains(*args, "--input-ipc-server="+e.socket) {
		t.Fatalf("unexpected mpv args %v", *args)
	}
	if !e.Paused() {
		t.Fatal("expected external player to start paused")
	}
	if e.Name() != "https://video.example/watch?v=1" {
		t.Fatalf("Name() = %q, want the URL", e.Name())
	}
}

func TestExternalFlushesCommandsOnceSocketIsUp(t *testing.T) {
	e, _ := newSleepingExternal(t)

	start := time.Now()
	e.SetVolume(0.5)
	e.Play()
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected commands to return without waiting for mpv, took %v", elapsed)
	}

	time.Sleep(50 * time.Millisecond)
	ln, err := net.Listen("unix", e.socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	ln.(*net.UnixListener).SetDeadline(time.Now().Add(2 * time.Second))
	conn, err := ln.Accept()
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	s := bufio.NewScanner(conn)
	var got []string
	for len(got) < 2 && s.Scan() {
		got = append(got, s.Text())
	}
	want := []string{
		`{"command":["set_property","volume",50]}`,
		`{"command":["set_property","pause",false]}`,
	}
	if !slices.Equal(got, want) {
		t.Fatalf("mpv received %q, want %q", got, want)
	}

	// Once connected, commands go straight through.
	e.Pause()
	if !s.Scan() || s.Text() != `{"command":["set_property","pause",true]}` {
		t.Fatalf("expected pause command, got %q (err %v)", s.Text(), s.Err())
	}
}

func TestExternalDoneClosesOnClose(t *testing.T) {
	e, _ := newSleepingExternal(t)
	e.Close()

	select {
	case <-e.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected Done to close after Close")
	}
	if e.Err() != nil {
		t.Fatalf("Err() = %v, want nil after Close", e.Err())
	}
}

func TestExternalReportsMPVExit(t *testing.T) {
	stubCommands(t, "false")
	e, err := NewExternal("https://video.example/watch?v=2", "clip", nil)
	if err != nil {
		t.Fatalf("NewExternal() error = %v", err)
	}
	defer e.Close()

	select {
	case <-e.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected Done when mpv exits")
	}
	if e.Err() == nil {
		t.Fatal("expected exit error from mpv")
	}
}
