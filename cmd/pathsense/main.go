// Command pathsense runs grid simulations, goal recognition and deceptive
// path planning batches from the command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Garsondee/pathsense/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by every subcommand.
type app struct {
	logLevel    string
	logFormat   string
	metricsAddr string

	logger  *slog.Logger
	metrics *http.Server
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "pathsense",
		Short: "Grid path planning, goal recognition and deception experiments",
		Long: `pathsense drives step-wise agents across MovingAI-style grid maps and runs
the evaluation batches for probabilistic goal recognition and deceptive path
planning.

Examples:
  pathsense run --config sim.yaml
  pathsense run --map maps/arena.map --start 1,1 --goal 40,40 --agent ds3 --decoy 40,1
  pathsense recognize --problems problems.csv --maps maps --out results.csv
  pathsense deceive --problems problems.csv --maps maps
  pathsense heatmap --map maps/arena.map --start 1,1 --goal 40,40 --decoy 40,1
  pathsense scenario --scen arena.map.scen --maps maps --agent astar`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.shutdown(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&a.logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")

	root.AddCommand(
		newRunCmd(a),
		newRecognizeCmd(a),
		newDeceiveCmd(a),
		newScenarioCmd(a),
		newProblemsCmd(a),
		newHeatmapCmd(a),
	)
	return root
}

// setup builds the logger and starts the metrics endpoint if asked to.
func (a *app) setup(w io.Writer) error {
	logger, err := newLogger(w, a.logLevel, a.logFormat)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	if a.metricsAddr == "" {
		return nil
	}
	srv, addr, err := serveMetrics(a.metricsAddr, logger)
	if err != nil {
		return err
	}
	a.metrics = srv
	logger.Info("metrics endpoint listening", "addr", addr)
	return nil
}

func (a *app) shutdown(ctx context.Context) error {
	if a.metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	return a.metrics.Shutdown(ctx)
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// serveMetrics exposes the default Prometheus registry on /metrics. It
// returns the bound address so ":0" can be used in tests.
func serveMetrics(addr string, logger *slog.Logger) (*http.Server, string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, "", fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
	return srv, ln.Addr().String(), nil
}

// parsePoint reads "col,row".
func parsePoint(s string) (config.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return config.Point{}, fmt.Errorf("point %q: want col,row", s)
	}
	col, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return config.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	row, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return config.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	return config.Point{col, row}, nil
}

func parsePoints(ss []string) ([]config.Point, error) {
	out := make([]config.Point, 0, len(ss))
	for _, s := range ss {
		p, err := parsePoint(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// openOutput returns stdout for "" or "-", otherwise a created file.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path) // #nosec G304 -- path supplied by the operator
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
