package ui

import tea "github.com/charmbracelet/bubbletea"

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

func helpText(hasQueue, canSeek bool) string {
	s := "space play/pause  s simulate  +/- volume  v viz"
	if canSeek {
		s += "  ←/→ seek"
	}
	if hasQueue {
		s += "  n/p track  z shuffle"
	}
	s += "  q quit"
	return s
}
