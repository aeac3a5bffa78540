package main

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/olivier-w/patterns/internal/analysis"
	"github.com/olivier-w/patterns/internal/config"
	"github.com/olivier-w/patterns/internal/curve"
	"github.com/olivier-w/patterns/internal/loader"
	"github.com/olivier-w/patterns/internal/media"
	"github.com/olivier-w/patterns/internal/player"
	"github.com/olivier-w/patterns/internal/scene"
	"github.com/olivier-w/patterns/internal/track"
	"github.com/olivier-w/patterns/internal/ui"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "patterns")
		if err != nil {
			fatal(err)
		}
		defer f.Close()
	} else {
		log.SetOutput(io.Discard)
	}

	source := cfg.StemsDir
	if len(os.Args) > 1 {
		source = os.Args[1]
	}
	stems, err := media.DiscoverStems(source, cfg.Stems)
	if err != nil {
		fatal(err)
	}

	points := curve.DefaultPoints()
	if cfg.Seed != 0 {
		points = curve.RandomPoints(rand.New(rand.NewSource(cfg.Seed)))
	}

	tracks := make([]*track.Track, len(stems))
	for i, path := range stems {
		tracks[i] = track.New(i, len(stems), track.Options{
			Name:      player.ReadMetadata(path).Name(),
			Threshold: cfg.Threshold,
			Density:   cfg.Density,
			Bins:      cfg.Bins,
			Volume:    &cfg.Volume,
		})
	}
	log.Printf("starting with %d stems from %s", len(stems), source)

	ctrl := scene.New(scene.Options{
		Curve:  curve.NewModel(points),
		Tracks: tracks,
		Buffer: analysis.New(cfg.GridSize, cfg.GridSize),
		Clock:  player.NewClock(),
		FPS:    cfg.FPS,
	})

	model := ui.New(ui.Options{
		Controller: ctrl,
		Stems:      stems,
		Load: loader.Options{
			Timeout:  cfg.LoadTimeout,
			Attempts: cfg.LoadRetries,
			Backoff:  cfg.LoadBackoff,
		},
		FPS: cfg.FPS,
	})

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := program.Run(); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
