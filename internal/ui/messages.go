package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/djstage/internal/player"
	"github.com/olivier-w/djstage/internal/stage"
)

type tickMsg time.Time

type frameMsg stage.Frame

type trackLoadedMsg struct {
	index  int
	handle player.Handle
	err    error
}

type playbackEndedMsg struct {
	handle player.Handle
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitDone(h player.Handle) tea.Cmd {
	return func() tea.Msg {
		<-h.Done()
		return playbackEndedMsg{handle: h}
	}
}
