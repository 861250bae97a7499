package dashboard

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chainwatch-labs/evm-watchdog/internal/watchdog"
)

func newTestDashboard(t *testing.T) (*Dashboard, *watchdog.AppState, *bytes.Buffer) {
	t.Helper()
	state := watchdog.NewAppState()
	buf := &bytes.Buffer{}
	d := &Dashboard{log: zerolog.Nop(), state: state, out: buf}
	return d, state, buf
}

func TestRenderExcludesLowSeverityAndCapsAtFifteen(t *testing.T) {
	t.Parallel()

	d, state, buf := newTestDashboard(t)
	state.AddAlert(watchdog.Low, "ethereum", "ignored low severity alert")
	for i := 0; i < 20; i++ {
		state.AddAlert(watchdog.High, "ethereum", uniqueMessage(i))
	}

	d.render(time.Now(), "ALL")
	out := buf.String()

	require.NotContains(t, out, "ignored low severity alert")
	require.Equal(t, maxAlertRows, strings.Count(out, "High      "))
}

func TestRenderFiltersByChain(t *testing.T) {
	t.Parallel()

	d, state, buf := newTestDashboard(t)
	state.AddAlert(watchdog.High, "ethereum", "eth alert")
	state.AddAlert(watchdog.High, "polygon", "poly alert")

	d.render(time.Now(), "ethereum")
	out := buf.String()

	require.Contains(t, out, "eth alert")
	require.NotContains(t, out, "poly alert")
}

func TestTruncateMessageAppendsRepeatCount(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("x", 80)
	got := truncateMessage(long, 3)
	require.LessOrEqual(t, len(got)-len(" (x3)"), maxMessageLength)
	require.Contains(t, got, "(x3)")

	short := truncateMessage("short", 1)
	require.Equal(t, "short", short)
}

func TestRenderHealthShowsLastBlockAge(t *testing.T) {
	t.Parallel()

	d, state, buf := newTestDashboard(t)
	state.UpdateBlock("ethereum", 1)

	d.render(time.Now(), "ALL")
	require.Contains(t, buf.String(), "Last block:")
}

func TestFilterCyclesAllThenSortedChains(t *testing.T) {
	t.Parallel()

	d, state, buf := newTestDashboard(t)
	state.AddAlert(watchdog.High, "A", "alert on A")
	state.AddAlert(watchdog.High, "B", "alert on B")

	filters := buildFilters([]string{"B", "A"})
	require.Equal(t, []string{"ALL", "A", "B"}, filters)

	filterIdx := 0
	d.render(time.Now(), filters[filterIdx])
	require.Contains(t, buf.String(), "alert on A")
	require.Contains(t, buf.String(), "alert on B")

	filterIdx = (filterIdx + 1) % len(filters) // first Tab: ALL -> A
	buf.Reset()
	d.render(time.Now(), filters[filterIdx])
	require.Contains(t, buf.String(), "alert on A")
	require.NotContains(t, buf.String(), "alert on B")

	filterIdx = (filterIdx + 1) % len(filters) // second Tab: A -> B
	buf.Reset()
	d.render(time.Now(), filters[filterIdx])
	require.Contains(t, buf.String(), "alert on B")
	require.NotContains(t, buf.String(), "alert on A")
}

func uniqueMessage(i int) string {
	return "alert number " + string(rune('A'+i%26)) + string(rune('0'+i/26))
}
