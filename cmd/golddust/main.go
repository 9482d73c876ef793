package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"golddust/internal/addrutil"
	"golddust/internal/api"
	"golddust/internal/config"
	"golddust/internal/controller"
	"golddust/internal/health"
	"golddust/internal/logging"
	"golddust/internal/metrics"
	"golddust/internal/model"
	"golddust/internal/router"
	"golddust/internal/store"
	"golddust/internal/stunutil"
)

const usage = `golddust - relay-first, exit-fallback routing decisions

Usage:
  golddust status [--config <path>] [--json]
  golddust route <host:port> [--config <path>] [--json] [--remote <addr>]
  golddust serve [--config <path>] [--listen <addr>]
  golddust export [--config <path>] (--out <file.yaml> | --redis <addr>)
  golddust samples append [--config <path>] [--path <csv>] --backend <id> --latency <ms> [--failed]
  golddust samples summary [--config <path>] [--path <csv>] [--window 5m]
  golddust nat [--config <path>] [--stun <list>] [--timeout 5s]

The config path defaults to $GOLDDUST_CONFIG (a .env file is honoured), then
./gold-dust-vpn.toml when present. Without a config the built-in sample
backends are used.

Exit status: 0 ok, 1 error, 2 usage, 3 no backend available.
`

const (
	envConfig         = "GOLDDUST_CONFIG"
	defaultConfigFile = "gold-dust-vpn.toml"
	exitNoBackend     = 3
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cmd := os.Args[1]
	switch cmd {
	case "-h", "--help", "help":
		fmt.Print(usage)
	case "status":
		handleStatus(os.Args[2:])
	case "route":
		handleRoute(os.Args[2:])
	case "serve":
		handleServe(os.Args[2:])
	case "export":
		handleExport(os.Args[2:])
	case "samples":
		handleSamples(os.Args[2:])
	case "nat":
		handleNAT(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func handleStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML or TOML config")
	asJSON := fs.Bool("json", false, "print JSON")
	_ = fs.Parse(args)

	cfg, logger := mustLoad(*configPath)
	src := mustSource(cfg, logger)
	defer health.Close(src)

	set, err := src.Snapshots(context.Background())
	if err != nil {
		fatal(err)
	}
	d, derr := router.Decide(set)

	if *asJSON {
		printJSON(api.StatusResponse{
			Source:   src.Name(),
			Backends: api.BackendsFromSet(set),
			Decision: api.NewDecisionResponse("", "", d, derr),
		})
		return
	}
	writeStatus(os.Stdout, set, d, derr)
}

func handleRoute(args []string) {
	fs := flag.NewFlagSet("route", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML or TOML config")
	asJSON := fs.Bool("json", false, "print JSON")
	remote := fs.String("remote", "", "ask a running `golddust serve` at this address")
	target := parseWithPositional(fs, args)
	if target == "" {
		fatalUsage("route requires a <host:port> target")
	}

	normalized, err := addrutil.NormalizeTarget(target)
	if err != nil {
		fatalUsage(err.Error())
	}

	var d router.Decision
	var derr error
	if *remote != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		d, _, derr = api.NewClient(*remote).Decide(ctx, normalized)
		if derr != nil && !errors.Is(derr, router.ErrNoBackendsAvailable) {
			fatal(derr)
		}
	} else {
		cfg, logger := mustLoad(*configPath)
		src := mustSource(cfg, logger)
		defer health.Close(src)

		set, err := src.Snapshots(context.Background())
		if err != nil {
			fatal(err)
		}
		d, derr = router.Decide(set)
		logger.Debug("routing decision", "target", normalized, "backend_id", d.BackendID, "error", derr)
	}

	if *asJSON {
		printJSON(api.NewDecisionResponse("", normalized, d, derr))
	} else {
		writeRoute(os.Stdout, normalized, d, derr)
	}
	if derr != nil {
		os.Exit(exitNoBackend)
	}
}

func handleServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML or TOML config")
	listen := fs.String("listen", "", "listen address (overrides server.listen)")
	_ = fs.Parse(args)

	path := resolveConfigPath(*configPath)
	cfg, logger := mustLoad(path)
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	src := mustSource(cfg, logger)

	srv := controller.NewServer(cfg.Server.Listen, src, logger)
	defer srv.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if path != "" {
		go func() {
			err := srv.WatchConfig(ctx, path, func(p string) (health.Source, error) {
				next, err := loadConfig(p)
				if err != nil {
					return nil, err
				}
				return health.FromConfig(next, logger)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("config watch stopped", "error", err)
			}
		}()
	}

	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fatal(err)
	}
	logger.Info("decision API stopped")
}

func handleExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML or TOML config")
	out := fs.String("out", "", "snapshot YAML file to write")
	redisAddr := fs.String("redis", "", "publish snapshots to this Redis address")
	prefix := fs.String("redis-prefix", "", "Redis key prefix (overrides health.redis_prefix)")
	_ = fs.Parse(args)

	if *out == "" && *redisAddr == "" {
		fatalUsage("export requires --out or --redis")
	}

	cfg, logger := mustLoad(*configPath)
	src := mustSource(cfg, logger)
	defer health.Close(src)

	ctx := context.Background()
	set, err := src.Snapshots(ctx)
	if err != nil {
		fatal(err)
	}

	if *out != "" {
		if err := store.SaveSnapshotFile(*out, store.FromSet(set)); err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stdout, "exported %d backends to %s\n", set.Len(), *out)
	}
	if *redisAddr != "" {
		p := cfg.Health.RedisPrefix
		if *prefix != "" {
			p = *prefix
		}
		pub := health.NewRedis(*redisAddr, p)
		defer pub.Close()
		for _, s := range set.Sorted() {
			if err := pub.Publish(ctx, s); err != nil {
				fatal(err)
			}
		}
		fmt.Fprintf(os.Stdout, "published %d backends to redis %s (%s)\n", set.Len(), *redisAddr, pub.IndexKey())
	}
}

func handleSamples(args []string) {
	if len(args) == 0 {
		fatalUsage("samples subcommand required")
	}
	switch args[0] {
	case "append":
		samplesAppend(args[1:])
	case "summary":
		samplesSummary(args[1:])
	default:
		fatalUsage(fmt.Sprintf("unknown samples subcommand %q", args[0]))
	}
}

func samplesAppend(args []string) {
	fs := flag.NewFlagSet("samples append", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML or TOML config")
	path := fs.String("path", "", "sample CSV path (overrides health.csv_path)")
	backend := fs.String("backend", "", "backend id")
	latency := fs.Float64("latency", 0, "observed latency in ms")
	failed := fs.Bool("failed", false, "the observation was a failure")
	_ = fs.Parse(args)

	cfg, _ := mustLoad(*configPath)
	csvPath := selectSamplesPath(cfg, *path)
	if *backend == "" {
		fatalUsage("--backend is required")
	}
	if *latency < 0 {
		fatal(fmt.Errorf("latency must be non-negative (got %v)", *latency))
	}

	sample := model.Sample{
		Timestamp: time.Now().UTC(),
		BackendID: *backend,
		LatencyMs: *latency,
		Failed:    *failed,
	}
	if err := metrics.AppendCSV(csvPath, []model.Sample{sample}); err != nil {
		fatal(err)
	}
}

func samplesSummary(args []string) {
	fs := flag.NewFlagSet("samples summary", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML or TOML config")
	path := fs.String("path", "", "sample CSV path (overrides health.csv_path)")
	window := fs.Duration("window", 0, "time window (defaults to health.window)")
	_ = fs.Parse(args)

	cfg, _ := mustLoad(*configPath)
	csvPath := selectSamplesPath(cfg, *path)
	w := cfg.Health.Window.Std()
	if *window > 0 {
		w = *window
	}

	items, err := metrics.ReadCSV(csvPath)
	if err != nil {
		fatal(err)
	}
	summaries := metrics.Summarize(items, time.Now().UTC().Add(-w))
	if len(summaries) == 0 {
		fmt.Fprintln(os.Stdout, "no samples in window")
		return
	}

	fmt.Fprintf(os.Stdout, "%-16s  %-7s  %-10s  %-10s  %-10s  %-10s  %-8s\n",
		"BACKEND", "SAMPLES", "AVG_MS", "P95_MS", "MIN_MS", "MAX_MS", "FAILURE")
	for _, id := range metrics.SortedIDs(summaries) {
		s := summaries[id]
		fmt.Fprintf(os.Stdout, "%-16s  %-7d  %-10.2f  %-10.2f  %-10.2f  %-10.2f  %-8.3f\n",
			id, s.Count, s.AvgLatencyMs, s.P95LatencyMs, s.MinLatencyMs, s.MaxLatencyMs, s.FailureRate)
	}
}

func handleNAT(args []string) {
	fs := flag.NewFlagSet("nat", flag.ExitOnError)
	configPath := fs.String("config", "", "path to YAML or TOML config")
	stunList := fs.String("stun", "", "comma-separated STUN servers (overrides stun_servers)")
	timeout := fs.Duration("timeout", 5*time.Second, "per-server timeout")
	_ = fs.Parse(args)

	cfg, logger := mustLoad(*configPath)
	servers := cfg.STUNServers
	if *stunList != "" {
		servers = splitList(*stunList)
	}

	ctx, cancel := signalContext()
	defer cancel()

	m, err := stunutil.Discover(ctx, servers, *timeout)
	for _, r := range m.Results {
		if r.Err != nil {
			logger.Warn("STUN server failed", "server", r.Server, "error", r.Err)
		}
	}
	if err != nil {
		fatal(err)
	}
	fmt.Fprintf(os.Stdout, "public_addr=%s nat=%s\n", m.PublicAddr, m.NATType)
}

func writeStatus(w io.Writer, set router.SnapshotSet, d router.Decision, derr error) {
	fmt.Fprintf(w, "%-6s  %-16s  %-8s  %-10s  %-8s\n", "KIND", "ID", "ENABLED", "LATENCY_MS", "FAILURE")
	for _, s := range displayOrder(set) {
		enabled := "no"
		if s.Enabled {
			enabled = "yes"
		}
		fmt.Fprintf(w, "%-6s  %-16s  %-8s  %-10.2f  %-8.3f\n", s.Kind, s.ID, enabled, s.LatencyMs, s.FailureRate)
	}
	if derr != nil {
		fmt.Fprintf(w, "preferred route: none (%v)\n", derr)
		return
	}
	fmt.Fprintf(w, "preferred route: %s via %s (%s)\n", d.BackendID, d.Kind, d.Reason)
}

// displayOrder lists enabled backends in preference order, then disabled ones.
func displayOrder(set router.SnapshotSet) []router.Snapshot {
	out := router.Candidates(set)
	for _, s := range set.Sorted() {
		if !s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func writeRoute(w io.Writer, target string, d router.Decision, derr error) {
	if derr != nil {
		fmt.Fprintf(w, "no backend available for %s: %v\n", target, derr)
		return
	}
	fmt.Fprintf(w, "golddust would route %s via %s %s (%s)\n",
		target, strings.ToUpper(d.Kind.String()), d.BackendID, d.Reason)
}

// parseWithPositional accepts the positional argument before or after the flags.
func parseWithPositional(fs *flag.FlagSet, args []string) string {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		_ = fs.Parse(args[1:])
		return args[0]
	}
	_ = fs.Parse(args)
	return fs.Arg(0)
}

func resolveConfigPath(path string) string {
	return lookupConfigPath(path, os.Getenv(envConfig), ".")
}

// lookupConfigPath prefers the flag, then the env value, then gold-dust-vpn.toml in dir.
func lookupConfigPath(flagPath, envPath, dir string) string {
	if flagPath != "" {
		return flagPath
	}
	if envPath != "" {
		return envPath
	}
	candidate := filepath.Join(dir, defaultConfigFile)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate
	}
	return ""
}

func loadConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
	}
	config.ApplyDefaults(&cfg)
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func mustLoad(path string) (config.Config, *slog.Logger) {
	cfg, err := loadConfig(resolveConfigPath(path))
	if err != nil {
		fatal(err)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)
	return cfg, logger
}

func mustSource(cfg config.Config, logger *slog.Logger) health.Source {
	src, err := health.FromConfig(cfg, logger)
	if err != nil {
		fatal(err)
	}
	return src
}

func selectSamplesPath(cfg config.Config, override string) string {
	if override != "" {
		return override
	}
	if cfg.Health.CSVPath != "" {
		return cfg.Health.CSVPath
	}
	fatalUsage("sample CSV path required (--path or health.csv_path)")
	return ""
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fatal(err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func fatalUsage(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	fmt.Fprint(os.Stderr, usage)
	os.Exit(2)
}

func fatal(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
