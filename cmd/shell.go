package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/agentic-research/tangodb/internal/config"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/dbapi"
	"github.com/agentic-research/tangodb/internal/persist"
	"github.com/agentic-research/tangodb/internal/watch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	watchDocs   bool
	metricsAddr string
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Read commands from stdin, one per line, against one live database",
	Long: `Each input line is a command name followed by its arguments, separated
by blanks. Results are printed one value per line followed by an empty line.
"help" lists the commands; "quit" or end of input stops the shell.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("watch") {
			cfg.Watch = watchDocs
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.MetricsAddr = metricsAddr
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		src, err := loadSource(ctx, cfg, logger)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		db := dbapi.New(src, dbapi.WithLogger(logger), dbapi.WithMetrics(dbapi.NewMetrics(reg)))

		flusher, err := startSnapshots(cfg, db, src, logger)
		if err != nil {
			return err
		}
		if flusher != nil {
			defer func() {
				if err := flusher.Close(); err != nil {
					logger.Error("final snapshot failed", "err", err)
				}
			}()
		}

		if cfg.MetricsAddr != "" {
			srv := serveMetrics(cfg.MetricsAddr, reg, logger)
			defer func() {
				shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
				defer done()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		if cfg.Watch && cfg.DBPath != "" {
			w := watch.New(cfg.DBPath, db, func(ctx context.Context) (*datasource.Source, error) {
				return reloadSource(ctx, cfg, logger)
			}, watch.WithLogger(logger), watch.OnSwap(func(s *datasource.Source) {
				if flusher != nil {
					s.SetSaver(flusher)
				}
			}))
			go func() {
				if err := w.Run(ctx); err != nil {
					logger.Error("watcher stopped", "err", err)
				}
			}()
		}

		return runShell(cmd.InOrStdin(), cmd.OutOrStdout(), db)
	},
}

// runShell executes one command per input line until EOF or "quit".
func runShell(in io.Reader, out io.Writer, db *dbapi.Database) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		switch fields[0] {
		case "quit", "exit":
			return nil
		case "help":
			printResult(out, dbapi.CommandNames())
			_, _ = fmt.Fprintln(out)
			continue
		}
		res, err := dbapi.Dispatch(db, fields[0], fields[1:])
		if err != nil {
			_, _ = fmt.Fprintf(out, "error: %v\n\n", err)
			continue
		}
		printResult(out, res)
		_, _ = fmt.Fprintln(out)
	}
	return scanner.Err()
}

// startSnapshots attaches a snapshot flusher to src when cfg asks for one.
func startSnapshots(cfg config.Config, db *dbapi.Database, src *datasource.Source, logger *slog.Logger) (*persist.Flusher, error) {
	if cfg.Snapshot == nil {
		return nil, nil
	}
	interval, err := cfg.SnapshotInterval()
	if err != nil {
		return nil, err
	}
	f := persist.NewFlusher(db, cfg.Snapshot.Path, logger)
	src.SetSaver(f)
	f.Start(interval)
	logger.Info("snapshots enabled", "path", cfg.Snapshot.Path, "interval", interval)
	return f, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func init() {
	shellCmd.Flags().BoolVar(&watchDocs, "watch", false, "Reload when the documents change")
	shellCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	rootCmd.AddCommand(shellCmd)
}
