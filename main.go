package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/djstage/internal/analysis"
	"github.com/olivier-w/djstage/internal/audio"
	"github.com/olivier-w/djstage/internal/queue"
	"github.com/olivier-w/djstage/internal/stage"
	"github.com/olivier-w/djstage/internal/ui"
)

type options struct {
	sim     bool
	fps     int
	volume  float64
	seed    int64
	logPath string
	targets []string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("djstage", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&o.sim, "sim", false, "force the simulated signal")
	fs.IntVar(&o.fps, "fps", 60, "frame rate")
	fs.Float64Var(&o.volume, "volume", 0.8, "initial volume (0..1)")
	fs.Int64Var(&o.seed, "seed", 0, "simulation seed (0 = time based)")
	fs.StringVar(&o.logPath, "log", "", "write debug log to `file`")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.fps <= 0 || o.fps > 240 {
		return o, fmt.Errorf("fps must be between 1 and 240, got %d", o.fps)
	}
	if o.volume < 0 || o.volume > 1 {
		return o, fmt.Errorf("volume must be between 0 and 1, got %g", o.volume)
	}
	if o.seed == 0 {
		o.seed = time.Now().UnixNano()
	}
	o.targets = fs.Args()
	return o, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		fmt.Println(usage)
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := log.New(io.Discard, "", 0)
	if opts.logPath != "" {
		f, err := tea.LogToFile(opts.logPath, "djstage")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = log.Default()
	}

	tracks, err := buildDeck(opts.targets)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	actx := audio.NewContext(audio.Options{Logger: logger})
	session := analysis.NewSession(actx, analysis.Options{
		Rand:   rand.New(rand.NewSource(opts.seed)),
		Logger: logger,
	})
	session.SetSimulationMode(opts.sim)

	frames := ui.NewFrames()
	driver := stage.NewDriver(stage.NewTimerScheduler(opts.fps), session, frames.Publish, stage.Options{
		Rand:   rand.New(rand.NewSource(opts.seed + 1)),
		Logger: logger,
	})
	driver.Start()

	cfg := ui.Config{
		Session:         session,
		Driver:          driver,
		Frames:          frames,
		Queue:           queue.New(tracks),
		Open:            ui.NewOpener(actx, logger),
		FPS:             opts.fps,
		Volume:          opts.volume,
		ForceSimulation: opts.sim,
		Rand:            rand.New(rand.NewSource(opts.seed + 2)),
		Logger:          logger,
	}

	program := tea.NewProgram(newStartupModel(cfg), tea.WithAltScreen())
	_, err = program.Run()

	// The stage tears down on quit; this covers quitting from the overlay.
	driver.Stop()
	if cerr := session.Close(); cerr != nil {
		logger.Printf("main: closing session: %v", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `usage: djstage [flags] <file|dir|playlist|url>...

  -sim          force the simulated signal
  -fps n        frame rate (default 60)
  -volume v     initial volume, 0..1 (default 0.8)
  -seed n       simulation seed (default time based)
  -log file     write debug log to file

Without arguments the stage runs on the simulated signal.`
