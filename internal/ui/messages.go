package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/patterns/internal/scene"
	"github.com/olivier-w/patterns/internal/track"
)

type frameMsg time.Time

type stemLoadedMsg struct {
	index  int
	source track.Source
}

type stemFailedMsg struct {
	index int
	err   error
}

type batchBuiltMsg struct {
	job   scene.BuildJob
	batch *track.GeometryBatch
	err   error
}

type trackEndedMsg struct {
	index int
}

func frameCmd(fps int) tea.Cmd {
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}
