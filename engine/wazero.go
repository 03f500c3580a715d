package engine

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/value"
	"github.com/wippyai/tensor-bridge/wire"
)

var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

// WazeroEngine implements Engine using wazero runtime. A model is a core
// WASM module exporting linear memory, an allocator and
// forward(ptr i32, len i32) -> i64 whose result packs ptr<<32 | len of the
// output frame.
type WazeroEngine struct {
	runtime  wazero.Runtime
	cfg      Config
	mu       sync.Mutex
	closed   bool
	wasiDone bool
}

// NewWazeroEngine creates a new wazero-based engine
func NewWazeroEngine(ctx context.Context) (*WazeroEngine, error) {
	return NewWazeroEngineWithConfig(ctx, nil)
}

// NewWazeroEngineWithConfig creates a new engine with custom configuration
func NewWazeroEngineWithConfig(ctx context.Context, cfg *Config) (*WazeroEngine, error) {
	runtimeCfg := wazero.NewRuntimeConfig()

	var c Config
	if cfg != nil {
		c = *cfg
		if c.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(c.MemoryLimitPages)
		}
		if c.CloseOnContextDone {
			runtimeCfg = runtimeCfg.WithCloseOnContextDone(true)
		}
	}

	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)
	return &WazeroEngine{runtime: runtime, cfg: c}, nil
}

// Load reads a model file and instantiates it.
func (e *WazeroEngine) Load(ctx context.Context, path string) (Executor, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read model "+path, err)
	}
	return e.LoadBytes(ctx, wasm)
}

// LoadBytes instantiates a model from its binary.
func (e *WazeroEngine) LoadBytes(ctx context.Context, wasm []byte) (Executor, error) {
	if !bytes.HasPrefix(wasm, wasmMagic) {
		return nil, errors.Load("not a WASM module", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errors.Load("engine is closed", nil)
	}

	compiled, err := e.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile failed", err)
	}
	if err := e.checkExports(compiled); err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	if e.cfg.WASI {
		if err := e.initWASI(ctx); err != nil {
			_ = compiled.Close(ctx)
			return nil, errors.Load("WASI host unavailable", err)
		}
	}

	name := "model-" + uuid.NewString()
	instance, err := e.runtime.InstantiateModule(ctx, compiled, e.moduleConfig(name))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.Load("instantiate failed", err)
	}

	exec := &wasmExecutor{
		name:     name,
		compiled: compiled,
		module:   instance,
		memory:   instance.ExportedMemory(e.cfg.memoryExport()),
		forward:  instance.ExportedFunction(e.cfg.forwardExport()),
		alloc:    newAllocator(instance, &e.cfg),
	}
	Logger().Debug("model loaded",
		zap.String("module", name),
		zap.Int("bytes", len(wasm)),
		zap.Bool("dealloc", exec.alloc.freeFn != nil))
	return exec, nil
}

// checkExports verifies the frame protocol exports before instantiation.
func (e *WazeroEngine) checkExports(compiled wazero.CompiledModule) error {
	if _, ok := compiled.ExportedMemories()[e.cfg.memoryExport()]; !ok {
		return errors.Load(fmt.Sprintf("missing memory export %q", e.cfg.memoryExport()), nil)
	}

	funcs := compiled.ExportedFunctions()
	fwd, ok := funcs[e.cfg.forwardExport()]
	if !ok {
		return errors.Load(fmt.Sprintf("missing function export %q", e.cfg.forwardExport()), nil)
	}
	i32, i64 := api.ValueTypeI32, api.ValueTypeI64
	if !slices.Equal(fwd.ParamTypes(), []api.ValueType{i32, i32}) || !slices.Equal(fwd.ResultTypes(), []api.ValueType{i64}) {
		return errors.Load(fmt.Sprintf("%s must have type (i32, i32) -> i64", e.cfg.forwardExport()), nil)
	}

	for _, name := range e.cfg.allocExports() {
		if _, ok := funcs[name]; ok {
			return nil
		}
	}
	return errors.Load(fmt.Sprintf("missing allocator export, tried %v", e.cfg.allocExports()), nil)
}

func (e *WazeroEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.runtime.Close(ctx)
}

// wasmExecutor is one instantiated model. Forward calls are serialized.
type wasmExecutor struct {
	compiled wazero.CompiledModule
	module   api.Module
	memory   api.Memory
	forward  api.Function
	alloc    *allocator
	name     string
	mu       sync.Mutex
	closed   bool
}

func (x *wasmExecutor) Forward(ctx context.Context, inputs []value.Value) (value.Value, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return value.Value{}, errors.UseAfterDestroy("forward")
	}

	start := time.Now()
	frame, err := wire.Marshal(value.Tuple(inputs...))
	if err != nil {
		return value.Value{}, err
	}

	ptr, err := x.alloc.Alloc(ctx, uint32(len(frame)))
	if err != nil {
		return value.Value{}, errors.Execution("guest allocation failed", err)
	}
	defer x.alloc.Free(ctx, ptr, uint32(len(frame)))
	if !x.memory.Write(ptr, frame) {
		return value.Value{}, errors.Execution(fmt.Sprintf("input frame out of guest memory: offset=%d, length=%d", ptr, len(frame)), nil)
	}

	res, err := x.forward.Call(ctx, uint64(ptr), uint64(len(frame)))
	if err != nil {
		return value.Value{}, errors.Execution("forward trapped", err)
	}
	outPtr, outLen := uint32(res[0]>>32), uint32(res[0])
	out, ok := x.memory.Read(outPtr, outLen)
	if !ok {
		return value.Value{}, errors.Execution(fmt.Sprintf("output frame out of guest memory: offset=%d, length=%d", outPtr, outLen), nil)
	}

	// Unmarshal copies, so the result stays valid after the guest reuses
	// its memory.
	v, err := wire.Unmarshal(out)
	if outPtr != ptr {
		x.alloc.Free(ctx, outPtr, outLen)
	}
	if err != nil {
		return value.Value{}, outputError(err)
	}

	Logger().Debug("forward",
		zap.String("module", x.name),
		zap.Int("input_bytes", len(frame)),
		zap.Uint32("output_bytes", outLen),
		zap.Stringer("tag", v.Tag()),
		zap.Duration("duration", time.Since(start)))
	return v, nil
}

// outputError classifies a failure to decode the output frame. Unknown
// tags and version mismatches are reported as they are; an engine error
// frame and any other malformed output become an execution error.
func outputError(err error) error {
	var remote *wire.RemoteError
	if stderrors.As(err, &remote) {
		return errors.Execution(remote.Message, err)
	}
	if stderrors.Is(err, errors.ErrUnknownTag) || stderrors.Is(err, errors.ErrVersionMismatch) {
		return err
	}
	return errors.Execution("malformed output frame", err)
}

func (x *wasmExecutor) Close(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.closed {
		return nil
	}
	x.closed = true
	return stderrors.Join(x.module.Close(ctx), x.compiled.Close(ctx))
}

// allocator calls the guest allocator exports.
type allocator struct {
	allocFn       api.Function
	freeFn        api.Function
	stackBuf      []uint64
	isSimpleAlloc bool
}

func newAllocator(mod api.Module, cfg *Config) *allocator {
	a := &allocator{stackBuf: make([]uint64, 4)}
	for _, name := range cfg.allocExports() {
		if fn := mod.ExportedFunction(name); fn != nil {
			a.allocFn = fn
			a.isSimpleAlloc = len(fn.Definition().ParamTypes()) < 4
			break
		}
	}
	for _, name := range cfg.deallocExports() {
		if fn := mod.ExportedFunction(name); fn != nil {
			a.freeFn = fn
			break
		}
	}
	return a
}

// Alloc reserves size bytes of guest memory. Callers hold the executor lock.
func (a *allocator) Alloc(ctx context.Context, size uint32) (uint32, error) {
	if a.allocFn == nil {
		return 0, fmt.Errorf("no allocator available")
	}
	if a.isSimpleAlloc {
		a.stackBuf[0] = uint64(size)
		if err := a.allocFn.CallWithStack(ctx, a.stackBuf[:1]); err != nil {
			return 0, err
		}
		return uint32(a.stackBuf[0]), nil
	}
	a.stackBuf[0] = 0
	a.stackBuf[1] = 0
	a.stackBuf[2] = 1
	a.stackBuf[3] = uint64(size)
	if err := a.allocFn.CallWithStack(ctx, a.stackBuf[:4]); err != nil {
		return 0, err
	}
	return uint32(a.stackBuf[0]), nil
}

// Free returns a block to the guest when it exports a deallocator.
func (a *allocator) Free(ctx context.Context, ptr, size uint32) {
	if a.freeFn == nil || ptr == 0 {
		return
	}
	// free(ptr), dealloc(ptr, len) and cabi_free(ptr, size, align) share
	// a prefix of this stack.
	n := len(a.freeFn.Definition().ParamTypes())
	if n > len(a.stackBuf) {
		return
	}
	a.stackBuf[0] = uint64(ptr)
	a.stackBuf[1] = uint64(size)
	a.stackBuf[2] = 1
	if err := a.freeFn.CallWithStack(ctx, a.stackBuf[:n]); err != nil {
		Logger().Warn("guest deallocation failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}
