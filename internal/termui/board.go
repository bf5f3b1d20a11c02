package termui

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"

	"lgprobe/internal/probe"
)

var theme = progressbar.Theme{
	Saucer:        "[green]=[reset]",
	SaucerHead:    "[green]>[reset]",
	SaucerPadding: " ",
	BarStart:      "[",
	BarEnd:        "]",
}

// Board shows one aggregate bar for a set of concurrent probes. The bar
// description lists each probe's instantaneous speed.
type Board struct {
	bar *progressbar.ProgressBar
	out io.Writer
}

// Stdout returns an ANSI-capable stdout writer.
func Stdout() io.Writer { return ansi.NewAnsiStdout() }

// NewBoard creates a board over total bytes writing to w.
func NewBoard(w io.Writer, total int64) *Board {
	bar := progressbar.NewOptions64(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionUseIECUnits(true),
		progressbar.OptionFullWidth(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetDescription("starting"),
		progressbar.OptionSetTheme(theme),
	)
	return &Board{bar: bar, out: w}
}

// Update redraws the bar from the given states.
func (b *Board) Update(states []probe.State) {
	var received int64
	for _, st := range states {
		received += st.BytesReceived
	}
	b.bar.Describe(Describe(states))
	_ = b.bar.Set64(received)
}

// Finish completes the bar and moves to a fresh line.
func (b *Board) Finish() {
	_ = b.bar.Exit()
	fmt.Fprintln(b.out)
}

// Describe summarises running probes as "id speed" pairs sorted by ID.
func Describe(states []probe.State) string {
	sorted := sortedStates(states)
	parts := make([]string, 0, len(sorted))
	for _, st := range sorted {
		switch st.Phase {
		case probe.PhaseRunning:
			parts = append(parts, fmt.Sprintf("%s %s", st.ID, FormatSpeed(st.InstantaneousSpeed)))
		default:
			parts = append(parts, fmt.Sprintf("%s %s", st.ID, st.Phase))
		}
	}
	return strings.Join(parts, " | ")
}

// Summary writes one line per probe with its final outcome.
func Summary(w io.Writer, states []probe.State) {
	for _, st := range sortedStates(states) {
		line := fmt.Sprintf("%-12s %-9s %s / %s in %.2fs, avg %s",
			st.ID, st.Phase, FormatBytes(st.BytesReceived), FormatBytes(st.TotalBytes),
			st.Elapsed().Seconds(), FormatSpeed(st.AverageSpeed))
		if st.Err != nil {
			line += fmt.Sprintf(" (%s: %v)", st.Err.Kind, st.Err)
		}
		fmt.Fprintln(w, line)
	}
}

func sortedStates(states []probe.State) []probe.State {
	out := append([]probe.State(nil), states...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
