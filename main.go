// Command dmmcam turns a multimeter's measurement stream into a live video
// panel on a v4l2loopback device, so any camera application can show it.
package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/MajenkoProjects/InstrumentVideo/config"
	"github.com/MajenkoProjects/InstrumentVideo/internal/app"
	"github.com/MajenkoProjects/InstrumentVideo/internal/ratelimit"
	"github.com/MajenkoProjects/InstrumentVideo/relay"
	"github.com/MajenkoProjects/InstrumentVideo/render"
	"github.com/MajenkoProjects/InstrumentVideo/sink"
	"github.com/MajenkoProjects/InstrumentVideo/stats"
	"github.com/MajenkoProjects/InstrumentVideo/telemetry"
)

// Purpose: Program entrypoint; wires configuration, telemetry, renderer and sink.
// Key aspects: The frame loop runs on the main goroutine; the stats and health
// observers only read tracker atomics and the relay gets a copy of each Reading.
// Upstream: OS process start.
// Downstream: dmmLoop.Run.
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
		cfg.DMM.Device = device
	}

	console := app.StartConsole(cfg, "DMM")
	format := sink.Format{Width: cfg.DMM.Width, Height: cfg.DMM.Height}
	out, err := app.OpenSink(cfg.DMM.Device, format)
	if err != nil {
		console.Close()
		log.Fatalf("Sink: %v", err)
	}

	tracker := stats.NewTracker()
	var rel *relay.Client
	if cfg.Relay.Enabled {
		rel, err = relay.Connect(cfg.Relay)
		if err != nil {
			log.Printf("Relay: disabled: %v", err)
		}
	}

	sup := telemetry.NewSupervisor(spawnerFor(cfg.Telemetry), telemetry.SupervisorOptions{
		Cooldown:  cfg.Telemetry.RespawnCooldown(),
		RetryBase: time.Duration(cfg.Telemetry.SpawnRetryBaseSeconds) * time.Second,
		RetryMax:  time.Duration(cfg.Telemetry.SpawnRetryMaxSeconds) * time.Second,
		OnRespawn: tracker.IncrementRespawns,
		OnConnect: tracker.SetConnected,
	})
	dropLog := ratelimit.NewCounter(time.Minute)
	asm := telemetry.NewLineAssembler(sup, telemetry.AssemblerOptions{
		MaxLine:  cfg.Telemetry.MaxLineBytes,
		PollWait: cfg.Telemetry.PollWait(),
		OnReading: func(r telemetry.Reading) {
			tracker.RecordReading(r.Label, r.Value, r.Unit, r.At)
			rel.Publish(r)
		},
		OnDropped: func(err error) {
			tracker.IncrementDroppedLines()
			if total, ok := dropLog.Inc(); ok {
				log.Printf("Telemetry: %v; line discarded (%d total)", err, total)
			}
		},
	})

	ctx, stop := app.SignalContext()
	defer stop()

	go app.DisplayStats(ctx, time.Duration(cfg.Stats.DisplayIntervalSeconds)*time.Second, tracker, console)
	startTelemetryHealthMonitor(ctx, telemetryHealthInterval, tracker, console.Surface)

	loop := newDMMLoop(asm, render.NewPanel(cfg.DMM.Width, cfg.DMM.Height), out, tracker)
	log.Printf("DMM bridge is running on %s with telemetry from %s. Press Ctrl+C to stop.", cfg.DMM.Device, spawnerFor(cfg.Telemetry))
	loop.Run(ctx)

	log.Println("Terminating, please wait...")
	if err := sup.Close(); err != nil {
		log.Printf("Telemetry: close: %v", err)
	}
	if err := out.Close(); err != nil {
		log.Printf("Sink: close: %v", err)
	}
	rel.Stop()
	for _, line := range tracker.SnapshotLines() {
		log.Print(line)
	}
	console.Close()
}

// spawnerFor selects the telemetry producer from config.
func spawnerFor(cfg config.TelemetryConfig) telemetry.Spawner {
	if cfg.Transport == "telnet" {
		return telemetry.TelnetSpawner{Host: cfg.Host, Port: cfg.Port, DialTimeout: 5 * time.Second}
	}
	return telemetry.CommandSpawner{Command: cfg.Command}
}
