package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const paneMaxLines = 8

type paneType int

const (
	paneEvent paneType = iota
	paneSystem
)

type paneLine struct {
	pane paneType
	line string
}

// Dashboard renders the latest reading, the stats lines, telemetry health
// events and the system log in a tview layout.
type Dashboard struct {
	app         *tview.Application
	readingView *tview.TextView
	statsView   *tview.TextView
	eventView   *tview.TextView
	systemView  *tview.TextView
	eventLines  []string
	systemLines []string
	paneMu      sync.Mutex
	lines       chan paneLine
	done        chan struct{}
	closed      atomic.Bool
	ready       chan struct{}
}

// NewDashboard builds the layout and starts the tview application.
func NewDashboard(title string) *Dashboard {
	makePane := func(title string) *tview.TextView {
		tv := tview.NewTextView().
			SetDynamicColors(true).
			SetWrap(false)
		if title != "" {
			tv.SetTitle(title).SetTitleAlign(tview.AlignLeft)
		}
		return tv
	}

	reading := makePane(title)
	reading.SetTextColor(tcell.ColorGreen)
	stats := makePane("")
	stats.SetTextColor(tcell.ColorYellow)
	events := makePane("Telemetry")
	system := makePane("System")
	system.SetTextColor(tcell.ColorYellow)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(reading, 2, 0, false).
		AddItem(stats, 5, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(events, paneMaxLines, 0, false).
		AddItem(tview.NewBox(), 1, 0, false).
		AddItem(system, 0, 1, false)

	app := tview.NewApplication().SetRoot(layout, true).EnableMouse(false)
	ready := make(chan struct{})
	var once sync.Once
	app.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		once.Do(func() { close(ready) })
		return false
	})
	d := &Dashboard{
		app:         app,
		readingView: reading,
		statsView:   stats,
		eventView:   events,
		systemView:  system,
		lines:       make(chan paneLine, 256),
		done:        make(chan struct{}),
		ready:       ready,
	}

	go d.runLineLoop()
	go func() {
		if err := app.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "dashboard error: %v\n", err)
		}
	}()
	return d
}

func (d *Dashboard) Stop() {
	if d == nil || d.app == nil || !d.closed.CompareAndSwap(false, true) {
		return
	}
	close(d.done)
	d.app.Stop()
}

func (d *Dashboard) WaitReady() {
	if d == nil || d.ready == nil {
		return
	}
	<-d.ready
}

func (d *Dashboard) SetStats(lines []string) {
	if d == nil || d.closed.Load() {
		return
	}
	text := strings.Join(lines, "\n")
	d.app.QueueUpdateDraw(func() {
		d.statsView.SetText(text)
	})
}

func (d *Dashboard) SetReading(line string) {
	if d == nil || d.closed.Load() {
		return
	}
	d.app.QueueUpdateDraw(func() {
		d.readingView.SetText(line)
	})
}

func (d *Dashboard) AppendEvent(line string) {
	d.enqueue(paneEvent, line)
}

func (d *Dashboard) AppendSystem(line string) {
	d.enqueue(paneSystem, line)
}

func (d *Dashboard) enqueue(p paneType, line string) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.lines <- paneLine{pane: p, line: line}:
	default:
		// UI lagging; drop rather than stall a loop
	}
}

// SystemWriter returns a writer for the log fanout console sink.
func (d *Dashboard) SystemWriter() io.Writer {
	if d == nil {
		return nil
	}
	return &paneWriter{d: d}
}

type paneWriter struct {
	d *Dashboard
}

func (w *paneWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		w.d.AppendSystem(line)
	}
	return len(p), nil
}

func (d *Dashboard) runLineLoop() {
	for {
		select {
		case <-d.done:
			return
		case ev := <-d.lines:
			d.appendLine(ev.pane, ev.line)
		}
	}
}

func (d *Dashboard) appendLine(p paneType, line string) {
	if p == paneEvent {
		line = time.Now().Format("15:04:05 ") + line
	}
	d.paneMu.Lock()
	buf := &d.systemLines
	view := d.systemView
	if p == paneEvent {
		buf = &d.eventLines
		view = d.eventView
	}
	*buf = appendBounded(*buf, line, paneMaxLines*4)
	text := strings.Join(*buf, "\n")
	d.paneMu.Unlock()

	d.app.QueueUpdateDraw(func() {
		view.SetText(text)
		view.ScrollToEnd()
	})
}

func appendBounded(buf []string, line string, max int) []string {
	buf = append(buf, line)
	if len(buf) > max {
		buf = buf[len(buf)-max:]
	}
	return buf
}
