// Command qcatlas manages the quantum algorithm catalog: entities, their
// associations and implementation attachments.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"qcatlas/internal/blob"
	"qcatlas/internal/config"
	"qcatlas/internal/core"
	"qcatlas/pkg/domain"
)

// Exit codes.
const (
	exitOK         = 0
	exitGeneric    = 1
	exitNotFound   = 3
	exitConstraint = 4
	exitInvalid    = 5
)

var exitFunc = os.Exit

func main() {
	exitFunc(run(os.Args[1:], os.Stdout, os.Stderr))
}

type app struct {
	envFile string
	trace   bool

	stdout io.Writer
	stderr io.Writer

	svc      *core.Service
	store    domain.PersistentStore
	registry *prometheus.Registry
	tracer   *sdktrace.TracerProvider
	logger   *zap.Logger
}

func run(args []string, stdout, stderr io.Writer) int {
	return execute(&app{stdout: stdout, stderr: stderr}, args)
}

func execute(a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	err := root.Execute()
	a.shutdown()
	if err != nil {
		_, _ = fmt.Fprintf(a.stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return exitOK
}

func exitCode(err error) int {
	var rv domain.RuleViolationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return exitNotFound
	case errors.Is(err, domain.ErrConstraintViolation), errors.As(err, &rv):
		return exitConstraint
	case errors.Is(err, domain.ErrInvalidValue):
		return exitInvalid
	default:
		return exitGeneric
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "qcatlas",
		Short:         "Quantum algorithm catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "associations" {
				return nil
			}
			return a.init(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "path to a .env file (default ./.env when present)")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "write JSON trace spans to stderr")

	root.AddCommand(
		newCreateCmd(a),
		newGetCmd(a),
		newListCmd(a),
		newDeleteCmd(a),
		newLinkCmd(a, true),
		newLinkCmd(a, false),
		newLinkedCmd(a),
		newAssociationsCmd(a),
		newAttachCmd(a),
		newURLCmd(a),
		newCheckFilesCmd(a),
	)
	return root
}

// init wires configuration, storage, blob store and observability into a service.
// A service injected beforehand is kept as is.
func (a *app) init(ctx context.Context) error {
	if a.svc != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(a.envFile)
	if err != nil {
		return err
	}
	logger, err := newZapLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	a.logger = logger

	store, err := core.OpenPersistentStore(ctx, cfg.Storage, core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	a.store = store
	blobs, err := blob.Open(ctx, cfg.Blob)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	opts := []core.Option{
		core.WithLogger(core.NewZapLogger(logger)),
		core.WithBlobStore(blobs),
	}
	if a.trace {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(a.stderr)))
	} else {
		tp, err := newTracerProvider(cfg.TraceExporter, a.stderr)
		if err != nil {
			return err
		}
		a.tracer = tp
		opts = append(opts, core.WithTracer(core.NewOTelTracer(tp.Tracer("qcatlas"))))
	}
	if cfg.MetricsEnabled {
		a.registry = prometheus.NewRegistry()
		recorder, err := core.NewPrometheusMetricsRecorder(a.registry)
		if err != nil {
			return err
		}
		opts = append(opts, core.WithMetricsRecorder(recorder))
	}
	a.svc = core.NewService(store, opts...)
	return nil
}

func newZapLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	if lvl == zapcore.DebugLevel {
		zcfg = zap.NewDevelopmentConfig()
	}
	return zcfg.Build()
}

// shutdown flushes spans, metrics and logs and closes the store.
func (a *app) shutdown() {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil && a.logger != nil {
			a.logger.Error("shutdown tracer", zap.Error(err))
		}
	}
	if a.registry != nil {
		if families, err := a.registry.Gather(); err == nil {
			for _, mf := range families {
				_, _ = expfmt.MetricFamilyToText(a.stderr, mf)
			}
		}
	}
	if a.store != nil {
		if err := core.CloseStore(a.store); err != nil && a.logger != nil {
			a.logger.Error("close store", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
