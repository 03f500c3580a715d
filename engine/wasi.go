package engine

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Reactor-style models export _initialize instead of _start.
const reactorInit = "_initialize"

// initWASI instantiates the WASI preview1 host module once per runtime.
// Callers hold e.mu.
func (e *WazeroEngine) initWASI(ctx context.Context) error {
	if e.wasiDone {
		return nil
	}
	if e.runtime.Module(wasi_snapshot_preview1.ModuleName) == nil {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, e.runtime); err != nil {
			return fmt.Errorf("instantiate WASI: %w", err)
		}
	}
	e.wasiDone = true
	return nil
}

// moduleConfig names the instance and, for WASI models, runs the reactor
// initializer instead of a command entry point.
func (e *WazeroEngine) moduleConfig(name string) wazero.ModuleConfig {
	cfg := wazero.NewModuleConfig().WithName(name)
	if e.cfg.WASI {
		cfg = cfg.WithStartFunctions(reactorInit)
	}
	return cfg
}
