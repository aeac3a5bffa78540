package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/patterns/internal/scene"
)

func isQuit(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return true
	}
	return false
}

// muteIndex maps the keys 1-5 onto track indices.
func muteIndex(msg tea.KeyMsg) (int, bool) {
	s := msg.String()
	if len(s) != 1 || s[0] < '1' || s[0] > '9' {
		return 0, false
	}
	return int(s[0] - '1'), true
}

func helpText(state scene.State, failed bool) string {
	var s string
	switch state {
	case scene.Init:
		s = "s start"
		if failed {
			s = "r retry"
		}
	case scene.BezierSetup:
		s = "tab handle  ←/→/↑/↓ move  pgup/pgdn depth  drag mouse  enter confirm"
	case scene.Prepare:
		s = "space pause  1-5 mute"
		if failed {
			s = "r retry  " + s
		}
	case scene.Patterns:
		s = "space pause  1-5 mute"
	case scene.Finish:
		s = "o overview  1-5 mute"
	case scene.Overview:
		s = "←/→/↑/↓ orbit"
	}
	return s + "  q quit"
}
