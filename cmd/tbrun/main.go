// Command tbrun loads a model, forwards JSON inputs through the tagged-value
// bridge and prints the decoded output.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/tensor-bridge/bridge"
	"github.com/wippyai/tensor-bridge/engine"
	"github.com/wippyai/tensor-bridge/runtime"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	logLevel string
}

type engineFlags struct {
	engine     string
	model      string
	memoryPage uint32
	wasi       bool
}

func newRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "tbrun",
		Short:         "Run models across the tagged-value bridge",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(g.logLevel)
			if err != nil {
				return err
			}
			engine.SetLogger(logger.Named("engine"))
			bridge.SetLogger(logger.Named("bridge"))
			cmd.SetContext(withLogger(cmd.Context(), logger))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(newForwardCmd(), newEncodeCmd(), newReplCmd())
	return root
}

func addEngineFlags(cmd *cobra.Command, f *engineFlags) {
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "path to the model file")
	cmd.Flags().StringVar(&f.engine, "engine", "wasm", "engine to run the model on (wasm, echo)")
	cmd.Flags().Uint32Var(&f.memoryPage, "memory-limit-pages", 0, "maximum guest memory in 64KiB pages (0 for the default)")
	cmd.Flags().BoolVar(&f.wasi, "wasi", false, "provide WASI preview1 imports to the model")
	_ = cmd.MarkFlagRequired("model")
}

// newRuntime builds a runtime for the engine flags. The caller closes it.
func newRuntime(ctx context.Context, f engineFlags) (*runtime.Runtime, error) {
	opts := []runtime.Option{runtime.WithLogger(loggerFrom(ctx).Named("runtime"))}
	switch f.engine {
	case "wasm":
		opts = append(opts, runtime.WithEngineConfig(engine.Config{
			MemoryLimitPages: f.memoryPage,
			WASI:             f.wasi,
		}))
	case "echo":
		opts = append(opts, runtime.WithEngine(engine.NewEchoEngine()))
	default:
		return nil, fmt.Errorf("unknown engine %q (want wasm or echo)", f.engine)
	}
	return runtime.New(ctx, opts...)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFrom(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}
