package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/tensor-bridge/errors"
	"github.com/wippyai/tensor-bridge/internal/coerce"
	"github.com/wippyai/tensor-bridge/resource"
	"github.com/wippyai/tensor-bridge/runtime"
	"github.com/wippyai/tensor-bridge/value"
	"github.com/wippyai/tensor-bridge/wire"
)

var (
	errUnknownModule = stderrors.New("unknown module id")
	errNoInputs      = stderrors.New("no inputs")
)

// Plugin dispatches method calls to modules loaded by a runtime.
type Plugin struct {
	runtime     *runtime.Runtime
	modules     *resource.Table[*runtime.Module]
	unsubscribe func()
}

// New creates a plugin loading models through rt. The plugin does not
// close rt.
func New(rt *runtime.Runtime) *Plugin {
	p := &Plugin{
		runtime: rt,
		modules: resource.NewTable[*runtime.Module](),
	}
	p.unsubscribe = p.modules.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		m, _ := e.Value.(*runtime.Module)
		if m == nil {
			return
		}
		Logger().Debug("module handle "+e.Type.String(),
			zap.Uint32("handle", uint32(e.Handle)),
			zap.Stringer("module", m.ID()))
	}))
	return p
}

// Handle executes one call. It never panics on malformed arguments.
func (p *Plugin) Handle(ctx context.Context, call MethodCall) Result {
	switch call.Method {
	case MethodLoad:
		return p.load(ctx, call.Arguments)
	case MethodForward:
		return p.forward(ctx, call.Arguments)
	case MethodDestroy:
		p.destroy(ctx, call.Arguments)
		return success(nil)
	}
	Logger().Debug("method not implemented", zap.String("method", call.Method))
	return Result{NotImplemented: true}
}

func (p *Plugin) load(ctx context.Context, args map[string]any) Result {
	path, ok := args[ArgFilePath].(string)
	if !ok {
		return failure(CodeLoadError, "load module error",
			errors.Load(fmt.Sprintf("%s must be a string, got %s", ArgFilePath, coerce.TypeName(args[ArgFilePath])), nil))
	}

	m, err := p.runtime.Load(ctx, path)
	if err != nil {
		Logger().Warn("load failed", zap.String("path", path), zap.Error(err))
		return failure(CodeLoadError, "load module error", err)
	}
	h, err := p.modules.Insert(m)
	if err != nil {
		m.Destroy(ctx)
		return failure(CodeLoadError, "load module error", errors.Load("register module", err))
	}
	return success(int64(h))
}

func (p *Plugin) forward(ctx context.Context, args map[string]any) Result {
	out, err := p.forwardMap(ctx, args)
	if err != nil {
		Logger().Debug("forward failed", zap.Error(err))
		return failure(CodeForwardError, "module forward error", err)
	}
	return success(out)
}

func (p *Plugin) forwardMap(ctx context.Context, args map[string]any) (map[string]any, error) {
	m, err := p.module(args)
	if err != nil {
		return nil, err
	}
	inputs, err := decodeInputs(args[ArgInputs])
	if err != nil {
		return nil, err
	}
	out, err := m.ForwardValues(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return wire.ToMap(out)
}

func (p *Plugin) destroy(ctx context.Context, args map[string]any) {
	h, ok := handle(args[ArgModuleID])
	if !ok {
		return
	}
	if m, ok := p.modules.Remove(h); ok {
		m.Destroy(ctx)
	}
}

// Detach destroys every loaded module. The plugin keeps accepting calls.
func (p *Plugin) Detach(ctx context.Context) {
	p.modules.Each(func(h resource.Handle, m *runtime.Module) bool {
		Logger().Debug("detaching module",
			zap.Uint32("handle", uint32(h)),
			zap.String("path", m.Path()))
		return true
	})
	modules := p.modules.Drain()
	for _, m := range modules {
		m.Destroy(ctx)
	}
	if len(modules) > 0 {
		Logger().Info("detached", zap.Int("modules", len(modules)))
	}
}

// Close detaches and stops accepting loads.
func (p *Plugin) Close(ctx context.Context) {
	for _, m := range p.modules.Close() {
		m.Destroy(ctx)
	}
	p.unsubscribe()
}

// Len returns the number of loaded modules.
func (p *Plugin) Len() int {
	return p.modules.Len()
}

func (p *Plugin) module(args map[string]any) (*runtime.Module, error) {
	h, ok := handle(args[ArgModuleID])
	if !ok {
		return nil, fmt.Errorf("%w: %v", errUnknownModule, args[ArgModuleID])
	}
	m, ok := p.modules.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %d", errUnknownModule, h)
	}
	return m, nil
}

func handle(v any) (resource.Handle, bool) {
	n, err := coerce.Int64(v)
	if err != nil || n <= 0 || n > math.MaxUint32 {
		return 0, false
	}
	return resource.Handle(n), true
}

// decodeInputs accepts []any or any other slice of maps.
func decodeInputs(raw any) ([]value.Value, error) {
	var items []any
	switch x := raw.(type) {
	case nil:
		return nil, errNoInputs
	case []any:
		items = x
	case []map[string]any:
		items = make([]any, len(x))
		for i, m := range x {
			items[i] = m
		}
	default:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice {
			return nil, fmt.Errorf("%s must be a list, got %s", ArgInputs, coerce.TypeName(raw))
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}
	if len(items) == 0 {
		return nil, errNoInputs
	}

	out := make([]value.Value, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("input %d must be a map, got %s", i, coerce.TypeName(item))
		}
		v, err := wire.FromMap(m)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}
