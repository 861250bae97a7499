// Package dashboard implements C7, a read-only terminal UI that polls internal/watchdog.AppState
// on a fixed tick and renders it to an alternate screen in raw mode.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
)

const (
	tickInterval     = 200 * time.Millisecond
	maxAlertRows     = 15
	maxMessageLength = 50
	healthyBlockAge  = 15 * time.Second
)

const (
	enterAltScreen = "\x1b[?1049h"
	leaveAltScreen = "\x1b[?1049l"
	hideCursor     = "\x1b[?25l"
	showCursor     = "\x1b[?25h"
	clearScreen    = "\x1b[2J\x1b[H"
)

// Dashboard polls an AppState and renders it to out, a cooperative loop owning stdin in raw mode.
type Dashboard struct {
	log   zerolog.Logger
	state *watchdog.AppState
	out   io.Writer
	in    *os.File
}

// New builds a Dashboard reading AppState snapshots and writing to stdout, reading keys from
// stdin.
func New(log zerolog.Logger, state *watchdog.AppState) *Dashboard {
	return &Dashboard{
		log:   log.With().Str("component", "dashboard").Logger(),
		state: state,
		out:   os.Stdout,
		in:    os.Stdin,
	}
}

// Run enters the alternate screen and raw mode, renders on every tick until ctx is canceled or
// 'q' is pressed, and restores the terminal on every exit path — success, error, or panic.
func (d *Dashboard) Run(ctx context.Context, chains []string) (err error) {
	fd := int(d.in.Fd())
	oldState, rawErr := term.MakeRaw(fd)
	if rawErr != nil {
		return fmt.Errorf("entering raw mode: %w", rawErr)
	}

	fmt.Fprint(d.out, enterAltScreen+hideCursor)
	defer func() {
		fmt.Fprint(d.out, showCursor+leaveAltScreen)
		if restoreErr := term.Restore(fd, oldState); restoreErr != nil {
			d.log.Error().Err(restoreErr).Msg("failed to restore terminal state")
		}
	}()

	filters := buildFilters(chains)
	filterIdx := 0

	keys := make(chan byte, 8)
	go d.readKeys(keys)

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	start := time.Now()
	for {
		d.render(start, filters[filterIdx])

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case k := <-keys:
			switch k {
			case 'q', 'Q':
				return nil
			case '\t':
				filterIdx = (filterIdx + 1) % len(filters)
			}
		}
	}
}

// buildFilters returns the dashboard's filter cycle: "ALL" followed by the given chain names in
// sorted order.
func buildFilters(chains []string) []string {
	sorted := append([]string(nil), chains...)
	sort.Strings(sorted)
	return append([]string{"ALL"}, sorted...)
}

// readKeys copies single raw bytes from stdin onto keys until the read fails (terminal closed).
func (d *Dashboard) readKeys(keys chan<- byte) {
	buf := make([]byte, 1)
	for {
		n, err := d.in.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			select {
			case keys <- buf[0]:
			default:
			}
		}
	}
}

func (d *Dashboard) render(start time.Time, filter string) {
	var b strings.Builder
	b.WriteString(clearScreen)

	d.renderHeader(&b, start, filter)
	b.WriteString("\r\n\r\n")
	d.renderSummary(&b)
	b.WriteString("\r\n")
	d.renderAlerts(&b, filter)

	fmt.Fprint(d.out, b.String())
}

func (d *Dashboard) renderHeader(b *strings.Builder, start time.Time, filter string) {
	bold := color.New(color.Bold, color.FgCyan)
	heights := d.state.ChainHeights()
	names := make([]string, 0, len(heights))
	for name := range heights {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:#%d", name, heights[name]))
	}

	bold.Fprintf(b, " EVM WATCHDOG ")
	fmt.Fprintf(b, " | blocks: %s | uptime: %s | filter: %s",
		strings.Join(parts, " "), time.Since(start).Round(time.Second), filter)
}

func (d *Dashboard) renderSummary(b *strings.Builder) {
	counts := d.state.SeverityCounts()
	fmt.Fprintf(b, " Risk Distribution   Critical:%d  High:%d  Medium:%d  Low:%d\r\n",
		counts[watchdog.Critical], counts[watchdog.High], counts[watchdog.Medium], counts[watchdog.Low])

	age := d.state.LastBlockAge()
	healthColor := color.New(color.FgGreen)
	if age >= healthyBlockAge {
		healthColor = color.New(color.FgRed)
	}
	b.WriteString(" System Health      Last block: ")
	healthColor.Fprintf(b, "%s ago", age.Round(time.Second))
	b.WriteString("\r\n")
}

func (d *Dashboard) renderAlerts(b *strings.Builder, filter string) {
	b.WriteString(" Recent Alerts\r\n")
	history := d.state.AlertHistory()

	rows := make([]watchdog.AlertRecord, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		if r.Severity == watchdog.Low {
			continue
		}
		if filter != "ALL" && r.Chain != filter {
			continue
		}
		rows = append(rows, r)
		if len(rows) == maxAlertRows {
			break
		}
	}

	for _, r := range rows {
		sevColor := severityColor(r.Severity)
		msg := truncateMessage(r.Message, r.Count)
		sevColor.Fprintf(b, " %-10s", r.Severity.String())
		fmt.Fprintf(b, " %-8s %s\r\n", r.LastSeen.Format("15:04:05"), msg)
	}
}

func severityColor(s watchdog.Severity) *color.Color {
	switch s {
	case watchdog.Critical:
		return color.New(color.FgRed, color.Bold)
	case watchdog.High:
		return color.New(color.FgHiRed)
	case watchdog.Medium:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgBlue)
	}
}

func truncateMessage(msg string, count int) string {
	if len(msg) > maxMessageLength {
		msg = msg[:maxMessageLength-3] + "..."
	}
	if count > 1 {
		msg = fmt.Sprintf("%s (x%d)", msg, count)
	}
	return msg
}
