package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"lgprobe/internal/catalog"
	"lgprobe/internal/common/fsutil"
	"lgprobe/internal/config"
	"lgprobe/internal/probe"
)

// LogLevel is the --log-level flag value.
type LogLevel enumflag.Flag

const (
	LogInfo LogLevel = iota
	LogDebug
	LogWarn
	LogError
)

var LogLevelIds = map[LogLevel][]string{
	LogInfo:  {"info"},
	LogDebug: {"debug"},
	LogWarn:  {"warn", "warning"},
	LogError: {"error"},
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LogDebug:
		return zerolog.DebugLevel
	case LogWarn:
		return zerolog.WarnLevel
	case LogError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

const defaultConfigPath = "~/.config/lgprobe/config.yaml"

type rootOptions struct {
	configPath string
	logLevel   LogLevel
	cfg        config.Config
	log        zerolog.Logger
	stderr     io.Writer
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{stderr: os.Stderr}
	root := &cobra.Command{
		Use:           "lgprobe",
		Short:         "Concurrent bandwidth probes against looking-glass speed test payloads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", "", "Config file (.yaml, .json or .toml); defaults to "+defaultConfigPath+" when present")
	root.PersistentFlags().Var(enumflag.New(&o.logLevel, "log-level", LogLevelIds, enumflag.EnumCaseInsensitive), "log-level", "Log level: debug|info|warn|error (defaults LGPROBE_LOG_LEVEL or info)")

	root.AddCommand(newServeCmd(o), newRunCmd(o), newCatalogCmd(o))
	return root
}

// setup loads configuration and builds the logger. An explicit --log-level
// wins over the config file and the environment.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(o.configPath)
	if err != nil {
		return err
	}
	o.cfg = cfg.ApplyEnv(os.Getenv).Defaults()

	level := o.logLevel.zerolog()
	if f := cmd.Flags().Lookup("log-level"); f == nil || !f.Changed {
		parsed, err := zerolog.ParseLevel(strings.ToLower(o.cfg.LogLevel))
		if err != nil {
			return fmt.Errorf("log level %q: %w", o.cfg.LogLevel, err)
		}
		level = parsed
	}
	o.log = zerolog.New(zerolog.ConsoleWriter{Out: o.stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
	return nil
}

func loadConfig(path string) (config.Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	resolved, err := fsutil.ResolvePath(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve config path: %w", err)
	}
	if !fsutil.PathExists(resolved) {
		if explicit {
			return config.Config{}, fmt.Errorf("config file not found: %s", resolved)
		}
		return config.Config{}, nil
	}
	cfg, err := config.Load(resolved)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config %s: %w", resolved, err)
	}
	return cfg, nil
}

// newRegistry builds a probe registry from the loaded configuration. reg may
// be nil to skip metrics.
func (o *rootOptions) newRegistry(reg prometheus.Registerer) (*probe.Registry, error) {
	d, err := o.cfg.ParseDurations()
	if err != nil {
		return nil, err
	}
	tcfg := probe.DefaultTransportConfig()
	tcfg.UserAgent = o.cfg.UserAgent
	if d.DialTimeout > 0 {
		tcfg.DialTimeout = d.DialTimeout
	}
	logger := o.log.With().Str("component", "probe").Logger()
	return probe.New(probe.Config{
		Transport:    probe.NewHTTPTransport(tcfg),
		GracePeriod:  d.GracePeriod,
		ReapInterval: d.ReapInterval,
		ChunkSize:    o.cfg.ChunkSize,
		Logger:       &logger,
		Metrics:      probe.NewMetrics(reg),
	}), nil
}

// loadCatalog resolves the payload catalog: a file wins over a URL. Flag
// values override the configuration.
func (o *rootOptions) loadCatalog(ctx context.Context, fileFlag, urlFlag string) (*catalog.Catalog, error) {
	file, base := o.cfg.CatalogFile, o.cfg.CatalogURL
	if fileFlag != "" || urlFlag != "" {
		file, base = fileFlag, urlFlag
	}
	switch {
	case file != "":
		return catalog.LoadFile(file)
	case base != "":
		client := &http.Client{Timeout: 30 * time.Second}
		return catalog.Fetch(ctx, client, base)
	default:
		return nil, fmt.Errorf("no catalog source: set --url, --file, catalog_url or catalog_file")
	}
}
