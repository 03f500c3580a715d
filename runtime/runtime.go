package runtime

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/tensor-bridge/engine"
	"github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/transcoder"
)

type Runtime struct {
	engine     engine.Engine
	logger     *zap.Logger
	encoder    *transcoder.Encoder
	decoder    *transcoder.Decoder
	modules    map[uuid.UUID]*Module
	mu         sync.Mutex
	ownsEngine bool
	closed     bool
}

func New(ctx context.Context, opts ...Option) (*Runtime, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	r := &Runtime{
		engine:  o.engine,
		logger:  o.logger,
		encoder: transcoder.NewEncoder(o.encOpts...),
		decoder: transcoder.NewDecoder(o.decOpts...),
		modules: make(map[uuid.UUID]*Module),
	}
	if r.engine == nil {
		eng, err := engine.NewWazeroEngineWithConfig(ctx, o.engineCfg)
		if err != nil {
			return nil, errors.Load("create engine", err)
		}
		r.engine = eng
		r.ownsEngine = true
	}
	return r, nil
}

// Load reads the model at path and returns a Loaded module. Missing files,
// malformed models and unsupported formats fail with LoadError.
func (r *Runtime) Load(ctx context.Context, path string) (*Module, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, errors.Load("runtime is closed", nil)
	}

	exec, err := r.engine.Load(ctx, path)
	if err != nil {
		r.logger.Debug("load failed", zap.String("path", path), zap.Error(err))
		if stderrors.Is(err, errors.ErrLoad) {
			return nil, err
		}
		return nil, errors.Load("load "+path, err)
	}

	m := &Module{
		id:      uuid.New(),
		path:    path,
		runtime: r,
		exec:    exec,
		state:   Loaded,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = exec.Close(ctx)
		return nil, errors.Load("runtime is closed", nil)
	}
	r.modules[m.id] = m
	r.mu.Unlock()

	r.logger.Info("module loaded", zap.Stringer("module", m.id), zap.String("path", path))
	return m, nil
}

// Modules returns the modules that have not been destroyed.
func (r *Runtime) Modules() []*Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Module, 0, len(r.modules))
	for _, m := range r.modules {
		out = append(out, m)
	}
	return out
}

func (r *Runtime) forget(m *Module) {
	r.mu.Lock()
	delete(r.modules, m.id)
	r.mu.Unlock()
}

// Close destroys every live module and releases the engine when the
// runtime created it.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	for _, m := range r.Modules() {
		m.Destroy(ctx)
	}
	if r.ownsEngine {
		return r.engine.Close(ctx)
	}
	return nil
}
