package runtime

import (
	"go.uber.org/zap"

	"github.com/wippyai/tensor-bridge/engine"
	"github.com/wippyai/tensor-bridge/transcoder"
)

// Option configures a Runtime.
type Option func(*options)

type options struct {
	engine    engine.Engine
	engineCfg *engine.Config
	logger    *zap.Logger
	encOpts   []transcoder.EncoderOption
	decOpts   []transcoder.DecoderOption
}

// WithEngine runs models on e instead of the default wazero engine. The
// runtime does not close an engine it did not create.
func WithEngine(e engine.Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithEngineConfig configures the default wazero engine.
func WithEngineConfig(cfg engine.Config) Option {
	return func(o *options) { o.engineCfg = &cfg }
}

// WithLogger sets the logger for load, forward and destroy events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEncoderOptions configures how host inputs are encoded.
func WithEncoderOptions(opts ...transcoder.EncoderOption) Option {
	return func(o *options) { o.encOpts = append(o.encOpts, opts...) }
}

// WithDecoderOptions configures how outputs are decoded.
func WithDecoderOptions(opts ...transcoder.DecoderOption) Option {
	return func(o *options) { o.decOpts = append(o.decOpts, opts...) }
}
