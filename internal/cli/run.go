package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pingcap/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/volley/internal/config"
	"github.com/wesleyorama2/volley/internal/credentials"
	"github.com/wesleyorama2/volley/internal/engine"
	"github.com/wesleyorama2/volley/internal/engine/metrics"
	"github.com/wesleyorama2/volley/internal/engine/orchestrator"
	"github.com/wesleyorama2/volley/internal/engine/stats"
	vhttp "github.com/wesleyorama2/volley/internal/http"
	"github.com/wesleyorama2/volley/internal/logging"
	"github.com/wesleyorama2/volley/internal/output"
	"github.com/wesleyorama2/volley/internal/payload"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the worker pool",
		Long: `Start the worker pool and keep it running until interrupted.

In interactive mode any missing delay, worker count or description is asked
for on stdin, and pressing Enter stops the run.`,
		Example: `  # Run from a config file
  volley run -c volley.yaml

  # Override values from the command line
  volley run -c volley.yaml --workers 10 --delay 250

  # Ask for the run values and stop with Enter
  volley run -c volley.yaml -i`,
		Args: cobra.NoArgs,
		RunE: runCommand,
	}

	addConfigFlags(cmd)
	cmd.Flags().BoolP("interactive", "i", false, "Prompt for missing values and stop on Enter")
	cmd.Flags().BoolP("quiet", "q", false, "Only print the final summary")
	cmd.Flags().Bool("no-color", false, "Disable colored output")
	cmd.Flags().Duration("duration", 0, "Stop automatically after this long (0 runs until interrupted)")

	return cmd
}

func runCommand(cmd *cobra.Command, args []string) error {
	interactive, _ := cmd.Flags().GetBool("interactive")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")
	duration, _ := cmd.Flags().GetDuration("duration")

	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	prompts := newPrompter(cmd.InOrStdin(), out)
	if interactive {
		f := cmd.Flags()
		err := fillInteractive(prompts, cfg,
			f.Changed("delay") || cfg.Run.Delay != 0,
			f.Changed("workers") || cfg.Run.Workers != 0,
			f.Changed("text") || cfg.Run.Description != "",
		)
		if err != nil {
			return err
		}
	}

	config.ApplyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	console := output.NewConsole(output.ConsoleConfig{
		Writer:  out,
		Quiet:   quiet,
		NoColor: noColor,
	})

	// Echoed log lines share the console's lock with the stats lines.
	var echo io.Writer = console.Writer()
	if quiet {
		echo = nil
	}
	logger, err := logging.New(logging.Config{
		File:       cfg.Logging.File,
		Level:      cfg.Logging.Level,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	}, echo)
	if err != nil {
		return errors.Annotate(err, "open log")
	}
	defer logger.Close()

	logger.Echo("Program started")

	tokens, err := credentials.LoadFile(cfg.Credentials.File)
	if err != nil {
		logger.Error("Loading credentials failed", zap.Error(err))
		return err
	}
	pool, err := credentials.NewPool(tokens, cfg.Credentials.FailureThreshold)
	if err != nil {
		logger.Error("Loading credentials failed", zap.Error(err))
		return err
	}
	logger.Echo(fmt.Sprintf("Loaded %d credentials", pool.Len()))

	builder, err := payload.NewBuilder(payloadOptions(cfg))
	if err != nil {
		logger.Error("Building payload templates failed", zap.Error(err))
		return err
	}

	client := newClient(cfg)

	metricsEngine := metrics.NewEngine()
	if cfg.Metrics.Addr != "" {
		shutdown, err := serveMetrics(cfg.Metrics.Addr, metricsEngine, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	delay := time.Duration(cfg.Run.Delay)
	logger.Echo(fmt.Sprintf("Delay set to %s, using %d workers", delay, cfg.Run.Workers))

	orch, err := orchestrator.New(orchestrator.Config{
		Workers:        cfg.Run.Workers,
		Delay:          delay,
		MaxRate:        cfg.Run.MaxRate,
		MaxBurst:       cfg.Run.MaxBurst,
		StatsInterval:  time.Duration(cfg.Stats.Interval),
		BackoffFloor:   time.Duration(cfg.Backoff.Floor),
		BackoffCeiling: time.Duration(cfg.Backoff.Ceiling),
		DrainTimeout:   time.Duration(cfg.Run.DrainTimeout),
		Endpoints: engine.Endpoints{
			CreateServiceID: cfg.Target.CreateServiceID,
			DeleteServiceID: cfg.Target.DeleteServiceID,
			TemplateName:    cfg.Target.TemplateName,
		},
	}, orchestrator.Deps{
		Transport: client,
		Pool:      pool,
		Payloads:  builder,
		Logger:    logger,
		Metrics:   metricsEngine,
	},
		orchestrator.WithTransportCloser(client.Close),
		orchestrator.WithReporterOptions(stats.WithSink(console.PrintStats)),
	)
	if err != nil {
		return err
	}

	console.PrintHeader(output.RunInfo{
		Name:        cfg.Name,
		BaseURL:     cfg.Target.BaseURL,
		Workers:     cfg.Run.Workers,
		Delay:       delay,
		Credentials: pool.Len(),
		Description: cfg.Run.Description,
	})

	ctx, stop := stopContext(cmd.Context(), duration)
	defer stop()
	if interactive {
		logger.Echo("Press Enter to stop")
		go waitForEnter(prompts.in, stop)
	}

	summary, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	console.PrintSummary(cfg.Name, summary)
	logger.Echo("Program finished",
		zap.Int64("total", summary.Total),
		zap.Duration("elapsed", summary.Elapsed),
		zap.Int64("undrained", summary.Undrained),
	)
	return nil
}

func newClient(cfg *config.Config) *vhttp.Client {
	t := cfg.Target
	return vhttp.NewClient(
		vhttp.WithBaseURL(t.BaseURL),
		vhttp.WithTimeout(time.Duration(t.Timeout)),
		vhttp.WithHeader("User-Agent", t.UserAgent),
		vhttp.WithHeader(t.ContractHeader, t.ContractVersion),
		vhttp.WithHeaders(t.Headers),
	)
}

// stopContext is cancelled on SIGINT, SIGTERM, after limit when it is
// positive, or when the returned func is called.
func stopContext(parent context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancelSignals := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(ctx)
	var cancelTimer context.CancelFunc = func() {}
	if limit > 0 {
		ctx, cancelTimer = context.WithTimeout(ctx, limit)
	}
	return ctx, func() {
		cancelTimer()
		cancel()
		cancelSignals()
	}
}

// serveMetrics exposes the Prometheus registry on addr until the returned
// shutdown func is called.
func serveMetrics(addr string, m *metrics.Engine, logger *logging.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Annotatef(err, "listen on %s", addr)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	logger.Echo(fmt.Sprintf("Serving metrics on http://%s/metrics", ln.Addr()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
