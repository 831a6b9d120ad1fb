package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/djstage/internal/analysis"
	"github.com/olivier-w/djstage/internal/audio"
	"github.com/olivier-w/djstage/internal/player"
	"github.com/olivier-w/djstage/internal/queue"
	"github.com/olivier-w/djstage/internal/ui"
)

type nopVoice struct{}

func (nopVoice) Play()             {}
func (nopVoice) Pause()            {}
func (nopVoice) IsPlaying() bool   { return false }
func (nopVoice) SetVolume(float64) {}
func (nopVoice) Close() error      { return nil }

type fakeOutput struct{}

func (fakeOutput) NewVoice(io.Reader) audio.Voice { return nopVoice{} }
func (fakeOutput) Suspend() error                 { return nil }
func (fakeOutput) Resume() error                  { return nil }
func (fakeOutput) Close() error                   { return nil }

func newTestConfig(open ui.Opener, titles ...string) ui.Config {
	ctx := audio.NewContext(audio.Options{
		Open: func(audio.Format) (audio.Output, error) { return fakeOutput{}, nil },
	})
	var tracks []queue.Track
	for _, title := range titles {
		tracks = append(tracks, queue.Track{Title: title, Target: title + ".mp3"})
	}
	return ui.Config{
		Session: analysis.NewSession(ctx, analysis.Options{}),
		Queue:   queue.New(tracks),
		Open:    open,
		FPS:     30,
	}
}

func enterKey() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func TestStartupEnterResumesAudioAndOpensTrack(t *testing.T) {
	var opened []string
	open := func(_ context.Context, tr queue.Track) (player.Handle, error) {
		opened = append(opened, tr.Title)
		return nil, nil
	}
	cfg := newTestConfig(open, "one")

	model, cmd := newStartupModel(cfg).Update(enterKey())
	if cmd == nil {
		t.Fatal("expected opening command")
	}
	startup, ok := model.(startupModel)
	if !ok {
		t.Fatalf("expected startupModel, got %T", model)
	}
	if startup.phase != phaseOpening {
		t.Fatalf("expected phaseOpening, got %v", startup.phase)
	}
	if got := cfg.Session.Status().Context; got != audio.StateRunning {
		t.Fatalf("expected running context, got %s", got)
	}

	msg := openTrackCmd(cfg.Open, *cfg.Queue.Current())()
	if _, ok := msg.(startupResolvedMsg); !ok {
		t.Fatalf("expected startupResolvedMsg, got %T", msg)
	}
	if len(opened) != 1 || opened[0] != "one" {
		t.Fatalf("unexpected opened tracks %v", opened)
	}
}

func TestStartupEnterWithoutTracksGoesStraightToStage(t *testing.T) {
	cfg := newTestConfig(nil)

	model, cmd := newStartupModel(cfg).Update(enterKey())
	if cmd == nil {
		t.Fatal("expected stage init command")
	}
	if _, ok := model.(ui.Model); !ok {
		t.Fatalf("expected ui.Model, got %T", model)
	}
}

func TestStartupErrorReturnsToGateAndAdvances(t *testing.T) {
	cfg := newTestConfig(nil, "one", "two")
	m := newStartupModel(cfg)
	m.phase = phaseOpening

	model, cmd := m.Update(startupResolvedMsg{err: errBoom{}})
	if cmd != nil {
		t.Fatal("expected no command on error return")
	}
	startup := model.(startupModel)
	if startup.phase != phaseGate {
		t.Fatalf("expected phaseGate, got %v", startup.phase)
	}
	if startup.errMsg != "boom" {
		t.Fatalf("expected error message, got %q", startup.errMsg)
	}
	if got := cfg.Queue.Track(0).State; got != queue.Failed {
		t.Fatalf("expected first track failed, got %s", got)
	}
	if cfg.Queue.CurrentIndex() != 1 {
		t.Fatalf("expected deck advanced to 1, got %d", cfg.Queue.CurrentIndex())
	}
}

func TestStartupIgnoresLateResolveAtGate(t *testing.T) {
	m := newStartupModel(newTestConfig(nil, "one"))

	model, cmd := m.Update(startupResolvedMsg{err: errBoom{}})
	if cmd != nil {
		t.Fatal("expected no command")
	}
	if model.(startupModel).errMsg != "" {
		t.Fatal("expected late result ignored")
	}
}

func TestStartupQuit(t *testing.T) {
	_, cmd := newStartupModel(newTestConfig(nil)).Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-sim", "-fps", "30", "-seed", "7", "a.mp3", "b.ogg"})
	if err != nil {
		t.Fatalf("parseFlags() unexpected error: %v", err)
	}
	if !opts.sim || opts.fps != 30 || opts.seed != 7 || opts.volume != 0.8 {
		t.Fatalf("unexpected options %+v", opts)
	}
	if len(opts.targets) != 2 || opts.targets[1] != "b.ogg" {
		t.Fatalf("unexpected targets %v", opts.targets)
	}
}

func TestParseFlagsRejectsBadValues(t *testing.T) {
	for _, args := range [][]string{
		{"-fps", "0"},
		{"-volume", "1.5"},
		{"-nope"},
	} {
		if _, err := parseFlags(args); err == nil {
			t.Fatalf("parseFlags(%v) expected error", args)
		}
	}
}

func TestBuildDeck(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.ogg", "A.mp3", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	list := filepath.Join(dir, "set.m3u")
	if err := os.WriteFile(list, []byte("#EXTM3U\n#EXTINF:-1,Opener\nA.mp3\nhttps://radio.example/live\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	tracks, err := buildDeck([]string{dir, list, "https://example.com/watch?v=1"})
	if err != nil {
		t.Fatalf("buildDeck() unexpected error: %v", err)
	}
	want := []string{"A", "b", "Opener", "https://radio.example/live", "https://example.com/watch?v=1"}
	if len(tracks) != len(want) {
		t.Fatalf("expected %d tracks, got %d: %+v", len(want), len(tracks), tracks)
	}
	for i, title := range want {
		if tracks[i].Title != title {
			t.Fatalf("track %d: expected title %q, got %q", i, title, tracks[i].Title)
		}
	}
	if tracks[2].Target != filepath.Join(dir, "A.mp3") {
		t.Fatalf("expected playlist entry resolved against its dir, got %q", tracks[2].Target)
	}
}

func TestBuildDeckRejectsUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := buildDeck([]string{path}); err == nil {
		t.Fatal("expected unsupported format error")
	}
}

func TestBuildDeckAcceptsFFmpegContainers(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"set.m4a", "intro.AAC"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	tracks, err := buildDeck([]string{dir, filepath.Join(dir, "set.m4a")})
	if err != nil {
		t.Fatalf("buildDeck() unexpected error: %v", err)
	}
	if len(tracks) != 3 || tracks[0].Title != "intro" || tracks[1].Title != "set" || tracks[2].Title != "set" {
		t.Fatalf("unexpected tracks %+v", tracks)
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
