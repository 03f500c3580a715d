package runtime

import (
	"context"
	stderrors "errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"go.uber.org/zap"

	"github.com/wippyai/tensor-bridge/engine"
	"github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/value"
)

// State of a module handle.
type State uint8

const (
	Unloaded State = iota
	Loaded
	Destroyed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loaded:
		return "loaded"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Module is a handle to one loaded model. Forward is callable only while
// the module is Loaded. Destroy waits for in-flight forwards.
type Module struct {
	runtime *Runtime
	exec    engine.Executor
	path    string
	mu      sync.RWMutex
	id      uuid.UUID
	state   State
}

func (m *Module) ID() uuid.UUID { return m.id }
func (m *Module) Path() string { return m.path }

func (m *Module) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Forward encodes inputs positionally, runs the model and decodes its
// output.
func (m *Module) Forward(ctx context.Context, inputs ...any) (any, error) {
	if err := m.callable(); err != nil {
		return nil, err
	}
	vals, err := m.runtime.encoder.EncodeInputs(inputs)
	if err != nil {
		return nil, err
	}
	return m.forwardDecoded(ctx, vals)
}

// ForwardNamed passes named inputs to the model in mapping order.
func (m *Module) ForwardNamed(ctx context.Context, named *orderedmap.OrderedMap[string, any]) (any, error) {
	if err := m.callable(); err != nil {
		return nil, err
	}
	vals, err := m.runtime.encoder.EncodeNamed(named)
	if err != nil {
		return nil, err
	}
	return m.forwardDecoded(ctx, vals)
}

func (m *Module) forwardDecoded(ctx context.Context, vals []value.Value) (any, error) {
	out, err := m.ForwardValues(ctx, vals)
	if err != nil {
		return nil, err
	}
	return m.runtime.decoder.Decode(out)
}

// ForwardValues runs the model on already tagged inputs.
func (m *Module) ForwardValues(ctx context.Context, inputs []value.Value) (value.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.callableLocked(); err != nil {
		return value.Value{}, err
	}

	start := time.Now()
	out, err := m.execute(ctx, inputs)
	if err != nil {
		m.runtime.logger.Debug("forward failed",
			zap.Stringer("module", m.id),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return value.Value{}, err
	}
	m.runtime.logger.Debug("forward",
		zap.Stringer("module", m.id),
		zap.Int("inputs", len(inputs)),
		zap.Stringer("tag", out.Tag()),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

var passThrough = []error{
	errors.ErrExecution,
	errors.ErrUnknownTag,
	errors.ErrVersionMismatch,
	errors.ErrUseAfterDestroy,
}

// execute calls the engine. Unknown tags, version mismatches, lifecycle
// errors and execution errors pass through; every other failure, panics
// included, becomes an execution error wrapping the cause.
func (m *Module) execute(ctx context.Context, inputs []value.Value) (out value.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = value.Value{}, errors.Execution(fmt.Sprintf("engine panicked: %v", r), nil)
		}
	}()

	out, err = m.exec.Forward(ctx, inputs)
	if err == nil {
		return out, nil
	}
	var te *errors.Error
	if stderrors.As(err, &te) && slices.ContainsFunc(passThrough, te.Is) {
		return value.Value{}, err
	}
	return value.Value{}, errors.Execution("forward failed", err)
}

// Destroy releases the model. It is idempotent and never fails; engine
// close failures are logged.
func (m *Module) Destroy(ctx context.Context) {
	m.mu.Lock()
	if m.state != Loaded {
		m.state = Destroyed
		m.mu.Unlock()
		return
	}
	m.state = Destroyed
	exec := m.exec
	m.exec = nil
	m.mu.Unlock()

	if err := exec.Close(ctx); err != nil {
		m.runtime.logger.Warn("module close failed", zap.Stringer("module", m.id), zap.Error(err))
	}
	m.runtime.forget(m)
	m.runtime.logger.Info("module destroyed", zap.Stringer("module", m.id))
}

func (m *Module) callable() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callableLocked()
}

func (m *Module) callableLocked() error {
	switch m.state {
	case Loaded:
		return nil
	case Destroyed:
		return errors.UseAfterDestroy("forward")
	}
	return errors.New(errors.PhaseLifecycle, errors.KindInvalidInput).
		Detail("forward called on a module that is not loaded").
		Build()
}
