package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"lgprobe/internal/catalog"
	"lgprobe/internal/httpapi"
	"lgprobe/internal/payload"
)

func newServeCmd(o *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve speed test payloads and the probe API",
		Example: "  lgprobe serve --addr :8080\n  lgprobe serve -c /etc/lgprobe.yaml",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				o.cfg.Addr = addr
			}
			return runServe(cmd.Context(), o)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8080 (defaults LGPROBE_ADDR or :8080)")
	return cmd
}

func runServe(parent context.Context, o *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	files, err := payload.NewServer(o.cfg.Payloads)
	if err != nil {
		return fmt.Errorf("payloads: %w", err)
	}
	reg, err := o.newRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer reg.Close()
	go reg.Run(ctx)

	svc := newProbeService(reg)
	switch {
	case o.cfg.CatalogFile != "":
		c, err := catalog.LoadFile(o.cfg.CatalogFile)
		if err != nil {
			return err
		}
		svc.setCatalog(c)
	case o.cfg.CatalogURL != "":
		client := &http.Client{Timeout: 30 * time.Second}
		go svc.fetchCatalog(ctx, client, o.cfg.CatalogURL, o.log)
	default:
		c, err := selfCatalog(files, o.cfg.Addr)
		if err != nil {
			return fmt.Errorf("local catalog: %w", err)
		}
		svc.setCatalog(c)
	}

	httpapi.SetLogger(o.log.With().Str("component", "http").Logger())
	httpapi.SetCORSOptions(o.cfg.CORSEnabled, o.cfg.CORSOrigins, nil, nil)
	srv := &http.Server{
		Addr:              o.cfg.Addr,
		Handler:           httpapi.NewMux(svc, files),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		o.log.Info().Str("addr", o.cfg.Addr).Int("payloads", len(files.Payloads())).Msg("lgprobe listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		o.log.Warn().Err(err).Msg("graceful shutdown error")
	}
	o.log.Info().Msg("lgprobe stopped")
	return nil
}
