// Package app holds the startup and shutdown plumbing shared by the dmmcam
// and scopecam binaries: flag parsing, config discovery, console wiring,
// sink opening and the periodic stats display.
package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MajenkoProjects/InstrumentVideo/config"
	"github.com/MajenkoProjects/InstrumentVideo/logging"
	"github.com/MajenkoProjects/InstrumentVideo/sink"
	"github.com/MajenkoProjects/InstrumentVideo/stats"
	"github.com/MajenkoProjects/InstrumentVideo/ui"
)

const (
	EnvConfigPath     = "INSTRUMENTVIDEO_CONFIG"
	DefaultConfigPath = "data/config.yaml"

	// ExitUsage is the status for invalid command lines.
	ExitUsage = 2
)

// ParseDeviceFlag parses the single optional "-d device" flag. Invalid usage
// prints "Usage: <prog> [-d device]" to stderr and returns an error.
func ParseDeviceFlag(prog string, args []string, stderr io.Writer) (string, error) {
	fs := flag.NewFlagSet(prog, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	device := fs.String("d", "", "capture sink device")
	if err := fs.Parse(args); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "%s: %v\n", prog, err)
		}
		fmt.Fprintf(stderr, "Usage: %s [-d device]\n", prog)
		return "", err
	}
	return strings.TrimSpace(*device), nil
}

// ExitCodeFor maps a ParseDeviceFlag error to a process exit status.
func ExitCodeFor(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return ExitUsage
}

// Purpose: Load configuration from env/default locations.
// Key aspects: Tries the env override first, then the default path; when no
// file exists the built-in defaults are used.
// Upstream: dmmcam and scopecam startup.
// Downstream: config.Load.
func LoadConfig() (*config.Config, error) {
	candidates := make([]string, 0, 2)
	if envPath := strings.TrimSpace(os.Getenv(EnvConfigPath)); envPath != "" {
		candidates = append(candidates, envPath)
	}
	candidates = append(candidates, DefaultConfigPath)
	for _, path := range candidates {
		cfg, err := config.Load(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		return cfg, nil
	}
	return config.Default(), nil
}

// Console is the process output surface: the log fanout plus the optional
// dashboard.
type Console struct {
	Fanout  *logging.Fanout
	Surface ui.Surface
}

// Purpose: Route the standard logger and pick the console surface.
// Key aspects: File logging failures are logged, never fatal. The dashboard
// is started only in tview mode on a TTY; it then owns the log output.
// Upstream: dmmcam and scopecam startup.
// Downstream: logging.Setup, ui.NewDashboard.
func StartConsole(cfg *config.Config, title string) *Console {
	fanout, err := logging.Setup(cfg.Logging, os.Stdout)
	log.SetFlags(0)
	log.SetOutput(fanout)
	if err != nil {
		log.Printf("Logging: file sink disabled: %v", err)
	}
	c := &Console{Fanout: fanout}

	mode := strings.ToLower(strings.TrimSpace(cfg.UI.Mode))
	switch mode {
	case "", ui.ModeHeadless:
		log.Printf("UI disabled (mode=headless)")
	case ui.ModeTview:
		if !ui.Wanted(mode, ui.IsStdoutTTY()) {
			log.Printf("UI disabled (tview requires an interactive console)")
			break
		}
		d := ui.NewDashboard(title)
		d.WaitReady()
		fanout.SetConsole(d.SystemWriter(), true)
		d.SetStats([]string{"Initializing..."})
		c.Surface = d
	default:
		log.Printf("UI mode %q not recognized; defaulting to headless", mode)
	}

	if c.Surface == nil {
		cfg.Print()
	}
	log.Printf("Loaded configuration from %s", cfg.LoadedFrom)
	return c
}

// Close stops the dashboard and flushes the log files.
func (c *Console) Close() {
	if c == nil {
		return
	}
	if c.Surface != nil {
		c.Surface.Stop()
		c.Fanout.SetConsole(os.Stdout, true)
	}
	_ = c.Fanout.Close()
}

// OpenSink opens the capture device and logs what it negotiated. A rejected
// format is a warning; the device keeps its previous format.
func OpenSink(path string, format sink.Format) (*sink.Writer, error) {
	w, err := sink.Open(path, format)
	if err != nil {
		return nil, err
	}
	caps := w.Capability()
	log.Printf("Sink: opened %s (driver=%s card=%q bus=%s)", path, caps.Driver, caps.Card, caps.Bus)
	if ferr := w.FormatError(); ferr != nil {
		log.Printf("Sink: warning: %v; frames will be written as %s anyway", ferr, format)
	}
	log.Printf("Buffer size: %s bytes (%s)", humanize.Comma(int64(format.SizeImage())), format)
	return w, nil
}

// SignalContext returns a context cancelled by SIGINT, SIGTERM or SIGQUIT.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
}

// Purpose: Periodically emit stats to the dashboard or the log.
// Key aspects: Runs until ctx is done; with a dashboard the lines also go to
// the log file only, so files keep the history without flooding the panes.
// Upstream: dmmcam and scopecam after startup.
// Downstream: stats.Tracker.SnapshotLines, ui.Surface.
func DisplayStats(ctx context.Context, interval time.Duration, tracker *stats.Tracker, console *Console) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			emitStats(tracker, console, time.Now().UTC())
		}
	}
}

func emitStats(tracker *stats.Tracker, console *Console, now time.Time) {
	lines := tracker.SnapshotLines()
	if console != nil && console.Surface != nil {
		console.Surface.SetStats(lines)
		if reading := tracker.LastReading(); reading != "" {
			console.Surface.SetReading(reading)
		}
		for _, line := range lines {
			console.Fanout.WriteFileOnly(line, now)
		}
		return
	}
	for _, line := range lines {
		log.Print(line)
	}
}
