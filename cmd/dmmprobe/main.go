// Command dmmprobe runs the telemetry producer under the same supervisor and
// line assembler as dmmcam and prints every parsed Reading with the text the
// panel would show. It is a standalone debugging utility; it opens no capture
// device and starts no other services.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MajenkoProjects/InstrumentVideo/config"
	"github.com/MajenkoProjects/InstrumentVideo/render"
	"github.com/MajenkoProjects/InstrumentVideo/telemetry"
)

type probeConfig struct {
	command  string
	host     string
	port     int
	maxLine  int
	pollWait time.Duration
	cooldown time.Duration
	duration time.Duration
	count    int
}

func main() {
	command := flag.String("command", "", "Producer command (default: the configured sigrok-cli invocation)")
	host := flag.String("host", "", "Read telemetry from a TCP/telnet host instead of a command")
	port := flag.Int("port", 0, "Telnet port (optional when host includes port)")
	maxLine := flag.Int("max_line_length", 100, "Max telemetry line length")
	pollMicros := flag.Int("poll_wait_us", 1000, "Per-byte poll wait in microseconds")
	cooldownMicros := flag.Int("respawn_cooldown_us", 1000, "Pause before respawning an ended producer, in microseconds")
	duration := flag.Duration("duration", 0, "Stop after this long (0 runs until interrupted)")
	count := flag.Int("count", 0, "Stop after this many readings (0 for no limit)")
	flag.Parse()

	cfg := probeConfig{
		command:  strings.TrimSpace(*command),
		host:     strings.TrimSpace(*host),
		port:     *port,
		maxLine:  *maxLine,
		pollWait: time.Duration(*pollMicros) * time.Microsecond,
		cooldown: time.Duration(*cooldownMicros) * time.Microsecond,
		duration: *duration,
		count:    *count,
	}
	if cfg.command == "" && cfg.host == "" {
		cfg.command = config.DefaultTelemetryCommand
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.duration)
		defer cancel()
	}

	n, err := runProbe(ctx, cfg, os.Stdout)
	if err != nil {
		log.Fatalf("dmmprobe: %v", err)
	}
	log.Printf("dmmprobe: %d readings", n)
}

func spawnerFor(cfg probeConfig) telemetry.Spawner {
	if cfg.host != "" {
		return telemetry.TelnetSpawner{Host: cfg.host, Port: cfg.port, DialTimeout: 5 * time.Second}
	}
	return telemetry.CommandSpawner{Command: cfg.command}
}

func runProbe(ctx context.Context, cfg probeConfig, out io.Writer) (int, error) {
	spawner := spawnerFor(cfg)
	fmt.Fprintf(out, "probing %s\n", spawner)
	sup := telemetry.NewSupervisor(spawner, telemetry.SupervisorOptions{
		Cooldown:  cfg.cooldown,
		RetryBase: time.Second,
		RetryMax:  30 * time.Second,
		OnRespawn: func() { fmt.Fprintf(out, "-- producer respawned\n") },
	})
	defer sup.Close()

	var prev telemetry.Reading
	seen := 0
	asm := telemetry.NewLineAssembler(sup, telemetry.AssemblerOptions{
		MaxLine:  cfg.maxLine,
		PollWait: cfg.pollWait,
		OnReading: func(r telemetry.Reading) {
			fmt.Fprintln(out, describeReading(r, prev))
			prev = r
			seen++
		},
		OnDropped: func(err error) { fmt.Fprintf(out, "-- %v\n", err) },
	})
	for ctx.Err() == nil {
		asm.Tick()
		if cfg.count > 0 && seen >= cfg.count {
			break
		}
	}
	return seen, nil
}

// describeReading renders one probe line: the parsed fields, the panel text
// and the gap since the previous reading.
func describeReading(r, prev telemetry.Reading) string {
	display := render.FormatValue(r.Value)
	gap := "-"
	if !prev.IsZero() {
		gap = r.At.Sub(prev.At).Round(time.Millisecond).String()
		if r.At.Sub(prev.At) >= telemetry.OfflineThreshold {
			gap += " (panel went offline)"
		}
	}
	return fmt.Sprintf("%s label=%q value=%q unit=%q panel=%q gap=%s",
		r.At.UTC().Format("15:04:05.000"), r.Label, r.Value, r.Unit, display, gap)
}
