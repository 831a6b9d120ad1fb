package player

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

// External plays a page URL through mpv. The audio never passes through
// this process, so it cannot be tapped; pause and volume go over mpv's
// JSON IPC socket.
type External struct {
	url    string
	title  string
	cmd    *exec.Cmd
	socket string
	logger *log.Logger

	mu       sync.Mutex
	conn     net.Conn
	queued   [][]any // commands sent before the IPC socket accepted
	volume   float64
	paused   bool
	started  time.Time
	elapsed  time.Duration // played time before the last resume
	done     chan struct{}
	err      error
	closed   bool
	waitDone chan struct{}
}

// NewExternal starts mpv paused on url. Audio starts with Play.
func NewExternal(url, title string, logger *log.Logger) (*External, error) {
	mpv, err := lookPath("mpv")
	if err != nil {
		return nil, fmt.Errorf("mpv not found (required for page URLs)")
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if title == "" {
		title = url
	}

	dir, err := os.MkdirTemp("", "djstage-mpv-")
	if err != nil {
		return nil, fmt.Errorf("creating mpv socket dir: %w", err)
	}
	socket := filepath.Join(dir, "ipc.sock")

	cmd := commandFn(
		mpv,
		"--no-video",
		"--no-terminal",
		"--pause",
		"--volume="+fmt.Sprint(int(defaultVolume*100)),
		"--input-ipc-server="+socket,
		url,
	)
	cmd.Stdin = nil
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("starting mpv: %w", err)
	}

	e := &External{
		url:      url,
		title:    title,
		cmd:      cmd,
		socket:   socket,
		logger:   logger,
		volume:   defaultVolume,
		paused:   true,
		done:     make(chan struct{}),
		waitDone: make(chan struct{}),
	}
	go e.wait(dir)
	go e.connect()
	return e, nil
}

// ipcDialTimeout bounds how long connect waits for mpv to open its socket.
var ipcDialTimeout = 10 * time.Second

// connect dials the IPC socket until mpv has created it, then flushes the
// commands queued meanwhile. It runs without e.mu so callers never wait on
// a dial.
func (e *External) connect() {
	deadline := time.Now().Add(ipcDialTimeout)
	for {
		conn, err := net.DialTimeout("unix", e.socket, 200*time.Millisecond)
		if err == nil {
			e.mu.Lock()
			if e.closed || e.exitedLocked() {
				e.mu.Unlock()
				conn.Close()
				return
			}
			e.conn = conn
			queued := e.queued
			e.queued = nil
			for _, args := range queued {
				e.writeLocked(args)
			}
			e.mu.Unlock()

			// Drain replies and events so mpv never blocks on the socket.
			s := bufio.NewScanner(conn)
			for s.Scan() {
			}
			return
		}
		if time.Now().After(deadline) {
			e.logger.Printf("player: mpv ipc unavailable: %v", err)
			return
		}
		select {
		case <-e.waitDone:
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (e *External) exitedLocked() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

func (e *External) wait(dir string) {
	err := e.cmd.Wait()
	os.RemoveAll(dir)

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed && err != nil {
		e.err = fmt.Errorf("mpv exited: %w", err)
	}
	close(e.done)
	if e.conn != nil {
		e.conn.Close()
		e.conn = nil
	}
	close(e.waitDone)
}

// Name returns the track title.
func (e *External) Name() string { return e.title }

// ipcCommand sends one command to mpv, or queues it until the socket is
// up. Callers hold e.mu.
func (e *External) ipcCommand(args ...any) {
	if e.conn == nil {
		e.queued = append(e.queued, args)
		return
	}
	e.writeLocked(args)
}

func (e *External) writeLocked(args []any) {
	msg, _ := json.Marshal(map[string]any{"command": args})
	if _, err := e.conn.Write(append(msg, '\n')); err != nil {
		e.logger.Printf("player: mpv ipc write: %v", err)
	}
}

func (e *External) Play() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || !e.paused {
		return
	}
	e.ipcCommand("set_property", "pause", false)
	e.paused = false
	e.started = time.Now()
}

func (e *External) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.paused {
		return
	}
	e.ipcCommand("set_property", "pause", true)
	e.paused = true
	e.elapsed += time.Since(e.started)
}

// TogglePause toggles between play and pause.
func (e *External) TogglePause() {
	if e.Paused() {
		e.Play()
	} else {
		e.Pause()
	}
}

// Paused returns whether playback is paused.
func (e *External) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Position is estimated from wall-clock play time.
func (e *External) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return e.elapsed
	}
	return e.elapsed + time.Since(e.started)
}

// Duration is unknown for page URLs.
func (e *External) Duration() time.Duration { return 0 }

// Volume returns current volume (0.0 to 1.0).
func (e *External) Volume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.volume
}

// SetVolume sets volume (clamped to 0.0 - 1.0).
func (e *External) SetVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v = min(max(v, 0), 1)
	e.volume = v
	if !e.closed {
		e.ipcCommand("set_property", "volume", int(v*100))
	}
}

// AdjustVolume adjusts volume by delta.
func (e *External) AdjustVolume(delta float64) {
	e.mu.Lock()
	v := e.volume + delta
	e.mu.Unlock()
	e.SetVolume(v)
}

// Done returns a channel that closes when mpv exits.
func (e *External) Done() <-chan struct{} { return e.done }

// Err returns the mpv exit error, if any.
func (e *External) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Close stops mpv and waits for it to exit.
func (e *External) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	_ = e.cmd.Process.Kill()
	<-e.waitDone
	return nil
}
