package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/djstage/internal/stage"
)

// Frames carries driver output into the Bubbletea loop. It holds at most one
// frame: a newer frame replaces one the view has not picked up yet, so a
// slow terminal drops frames instead of stalling the driver.
type Frames struct {
	ch chan stage.Frame
}

// NewFrames creates an empty mailbox.
func NewFrames() *Frames {
	return &Frames{ch: make(chan stage.Frame, 1)}
}

// Publish never blocks. It is meant to be the driver's publish callback.
func (f *Frames) Publish(fr stage.Frame) {
	for {
		select {
		case f.ch <- fr:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func (f *Frames) wait() tea.Cmd {
	ch := f.ch
	return func() tea.Msg {
		return frameMsg(<-ch)
	}
}
