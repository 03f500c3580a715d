package engine

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/value"
	"github.com/wippyai/tensor-bridge/wire"
)

// ForwardFunc is an in-process model.
type ForwardFunc func(ctx context.Context, inputs []value.Value) (value.Value, error)

// FuncEngine serves every model path with the same Go function. Load only
// checks that the file is readable.
type FuncEngine struct {
	fn     ForwardFunc
	mu     sync.Mutex
	closed bool
}

func NewFuncEngine(fn ForwardFunc) *FuncEngine {
	return &FuncEngine{fn: fn}
}

// NewEchoEngine returns the pass-through engine: a single input comes back
// as is, several come back as a Tuple. Values cross the same binary frame
// boundary a compiled model sees.
func NewEchoEngine() *FuncEngine {
	return NewFuncEngine(Echo)
}

// Echo is the pass-through model.
func Echo(_ context.Context, inputs []value.Value) (value.Value, error) {
	frame, err := wire.Marshal(value.Tuple(inputs...))
	if err != nil {
		return value.Value{}, err
	}
	out, err := wire.Unmarshal(frame)
	if err != nil {
		return value.Value{}, err
	}
	if items := out.Items(); len(items) == 1 {
		return items[0], nil
	}
	return out, nil
}

func (e *FuncEngine) Load(_ context.Context, path string) (Executor, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, errors.Load("engine is closed", nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Load("read model "+path, err)
	}
	info, err := f.Stat()
	_ = f.Close()
	if err != nil {
		return nil, errors.Load("stat model "+path, err)
	}
	if info.IsDir() {
		return nil, errors.Load(path+" is a directory", nil)
	}

	Logger().Debug("function model loaded", zap.String("path", path))
	return &funcExecutor{fn: e.fn, path: path}, nil
}

func (e *FuncEngine) Close(context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type funcExecutor struct {
	fn     ForwardFunc
	path   string
	mu     sync.RWMutex
	closed bool
}

// Forward calls the function. Calls may run concurrently; Close waits for
// them. A panic inside the function becomes an execution error.
func (x *funcExecutor) Forward(ctx context.Context, inputs []value.Value) (v value.Value, err error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if x.closed {
		return value.Value{}, errors.UseAfterDestroy("forward")
	}

	defer func() {
		if r := recover(); r != nil {
			v, err = value.Value{}, errors.Execution(fmt.Sprintf("model %s panicked: %v", x.path, r), nil)
		}
	}()
	return x.fn(ctx, inputs)
}

func (x *funcExecutor) Close(context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	return nil
}
