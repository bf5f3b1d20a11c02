package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lgprobe/internal/catalog"
	"lgprobe/internal/httpapi"
	"lgprobe/internal/probe"
	"lgprobe/internal/termui"
	"lgprobe/pkg/types"
)

type runOptions struct {
	url         string
	file        string
	maxDuration time.Duration
	interval    time.Duration
	noProgress  bool
	jsonOut     bool
}

func newRunCmd(o *rootOptions) *cobra.Command {
	ro := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [payload-id...]",
		Short: "Download catalog payloads concurrently and report throughput",
		Long:  "Starts one probe per payload id (all catalog payloads when none are given) and reports their speed. Ctrl+C cancels every probe.",
		Example: "  lgprobe run --url https://lg.example.net 100mb 1gb\n" +
			"  lgprobe run --file payloads.yaml --max-duration 15s",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cat, err := o.loadCatalog(ctx, ro.file, ro.url)
			if err != nil {
				return err
			}
			descs, err := selectPayloads(cat, args)
			if err != nil {
				return err
			}
			return runProbes(ctx, o, ro, descs, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&ro.url, "url", "", "Looking-glass base URL publishing "+catalog.FilesPath)
	cmd.Flags().StringVar(&ro.file, "file", "", "Payload catalog file (.yaml, .json or .toml)")
	cmd.Flags().DurationVar(&ro.maxDuration, "max-duration", 0, "Cancel probes still running after this long (0 disables)")
	cmd.Flags().DurationVar(&ro.interval, "interval", 200*time.Millisecond, "Progress refresh interval")
	cmd.Flags().BoolVar(&ro.noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVar(&ro.jsonOut, "json", false, "Print final states as JSON instead of a summary")
	return cmd
}

// selectPayloads resolves ids against the catalog; no ids selects everything.
func selectPayloads(cat *catalog.Catalog, ids []string) ([]probe.PayloadDescriptor, error) {
	if len(ids) == 0 {
		all := cat.All()
		if len(all) == 0 {
			return nil, fmt.Errorf("catalog is empty")
		}
		return all, nil
	}
	out := make([]probe.PayloadDescriptor, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		d, ok := cat.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("unknown payload %q", id)
		}
		if seen[d.ID] {
			continue
		}
		seen[d.ID] = true
		out = append(out, d)
	}
	return out, nil
}

func runProbes(parent context.Context, o *rootOptions, ro *runOptions, descs []probe.PayloadDescriptor, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := o.newRegistry(nil)
	if err != nil {
		return err
	}
	defer reg.Close()

	var (
		ids   []string
		total int64
	)
	for _, d := range descs {
		if _, err := reg.Start(d); err != nil {
			o.log.Error().Err(err).Str("probe", d.ID).Msg("probe not started")
			continue
		}
		ids = append(ids, d.ID)
		total += d.TotalBytes
	}
	if len(ids) == 0 {
		return fmt.Errorf("no probe could be started")
	}

	cancelAll := func() {
		for _, id := range ids {
			reg.Cancel(id)
		}
	}
	if ro.maxDuration > 0 {
		t := time.AfterFunc(ro.maxDuration, func() {
			o.log.Info().Dur("max_duration", ro.maxDuration).Msg("time limit reached, cancelling probes")
			cancelAll()
		})
		defer t.Stop()
	}
	go func() {
		<-ctx.Done()
		cancelAll()
	}()

	final := waitAll(reg, ids)

	var board *termui.Board
	if !ro.noProgress && !ro.jsonOut {
		board = termui.NewBoard(termui.Stdout(), total)
	}
	interval := ro.interval
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var states []probe.State
wait:
	for {
		select {
		case states = <-final:
			break wait
		case <-ticker.C:
			if board != nil {
				board.Update(current(reg, ids))
			}
		}
	}
	if board != nil {
		board.Update(states)
		board.Finish()
	}

	if ro.jsonOut {
		out := types.ProbesResponse{Probes: make([]types.ProbeStatus, 0, len(states))}
		for _, st := range states {
			out.Probes = append(out.Probes, httpapi.StatusFromState(st))
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		termui.Summary(stdout, states)
	}

	failed := 0
	for _, st := range states {
		if st.Phase == probe.PhaseFailed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d probes failed", failed, len(states))
	}
	return nil
}

// waitAll delivers the final state of every probe once all have finished.
func waitAll(reg *probe.Registry, ids []string) <-chan []probe.State {
	out := make(chan []probe.State, 1)
	states := make([]probe.State, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			st, _, _ := reg.Wait(context.Background(), id)
			states[i] = st
		}(i, id)
	}
	go func() {
		wg.Wait()
		out <- states
	}()
	return out
}

func current(reg *probe.Registry, ids []string) []probe.State {
	out := make([]probe.State, 0, len(ids))
	for _, id := range ids {
		if st, ok := reg.Get(id); ok {
			out = append(out, st)
		}
	}
	return out
}
