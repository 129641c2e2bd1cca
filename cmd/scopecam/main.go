// Command scopecam mirrors an oscilloscope's screen onto a v4l2loopback
// device. Frames are read from the configured scope source, doubled in size
// and written back to back.
package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/MajenkoProjects/InstrumentVideo/acquire"
	"github.com/MajenkoProjects/InstrumentVideo/internal/app"
	"github.com/MajenkoProjects/InstrumentVideo/sink"
	"github.com/MajenkoProjects/InstrumentVideo/stats"
)

func main() {
	prog := filepath.Base(os.Args[0])
	device, err := app.ParseDeviceFlag(prog, os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(app.ExitCodeFor(err))
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if device != "" {
		cfg.Scope.Device = device
	}

	console := app.StartConsole(cfg, "Scope")
	format := sink.Format{Width: 2 * cfg.Scope.SourceWidth, Height: 2 * cfg.Scope.SourceHeight}
	out, err := app.OpenSink(cfg.Scope.Device, format)
	if err != nil {
		console.Close()
		log.Fatalf("Sink: %v", err)
	}

	tracker := stats.NewTracker()
	src := acquire.NewFileSource(cfg.Scope.Source, cfg.Scope.SourceWidth, cfg.Scope.SourceHeight)
	sup := acquire.NewSupervisor(src, acquire.SupervisorOptions{
		OnOpen: func() {
			log.Printf("Scope: source %s open", cfg.Scope.Source)
			tracker.SetConnected(true)
		},
		OnFailure: func(int) { tracker.IncrementAcquireFailures() },
		OnReopen: func() {
			tracker.IncrementReopens()
			tracker.SetConnected(false)
		},
	})

	ctx, stop := app.SignalContext()
	defer stop()
	go app.DisplayStats(ctx, time.Duration(cfg.Stats.DisplayIntervalSeconds)*time.Second, tracker, console)

	loop := acquire.NewLoop(sup, out, format.Width, format.Height, tracker)
	log.Printf("Scope bridge is running on %s from %s. Press Ctrl+C to stop.", cfg.Scope.Device, cfg.Scope.Source)
	runErr := loop.Run(ctx)

	log.Println("Terminating, please wait...")
	if err := out.Close(); err != nil {
		log.Printf("Sink: close: %v", err)
	}
	for _, line := range tracker.SnapshotLines() {
		log.Print(line)
	}
	console.Close()
	if runErr != nil {
		log.Fatalf("Scope: %v", runErr)
	}
}
