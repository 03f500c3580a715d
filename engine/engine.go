package engine

import (
	"context"

	"github.com/wippyai/tensor-bridge/value"
)

// Engine loads models and owns whatever the loaded executors share.
type Engine interface {
	// Load reads and prepares the model at path. Failures are LoadError.
	Load(ctx context.Context, path string) (Executor, error)
	// Close releases the engine and every executor it produced.
	Close(ctx context.Context) error
}

// Executor runs forward passes of one loaded model.
type Executor interface {
	// Forward runs the model on positional inputs and returns its single
	// output value. Outputs own their memory.
	Forward(ctx context.Context, inputs []value.Value) (value.Value, error)
	// Close releases the model. Forward after Close fails with
	// UseAfterDestroyError.
	Close(ctx context.Context) error
}

// Default export names of a model module.
const (
	DefaultMemoryExport  = "memory"
	DefaultAllocExport   = "alloc"
	DefaultForwardExport = "forward"
	DefaultDeallocExport = "dealloc"
)

// Fallback allocator exports, tried in order when AllocExport is unset.
// cabi_realloc takes (old_ptr, old_size, align, new_size).
var (
	allocFallbacks   = []string{DefaultAllocExport, "allocate", "cabi_realloc"}
	deallocFallbacks = []string{DefaultDeallocExport, "deallocate", "free", "cabi_free"}
)

// Config holds configuration for engine creation
type Config struct {
	// MemoryLimitPages sets the maximum memory per model in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// MemoryExport names the exported linear memory. Default "memory".
	MemoryExport string

	// AllocExport names the guest allocator. When empty, alloc, allocate
	// and cabi_realloc are tried in that order.
	AllocExport string

	// ForwardExport names forward(ptr, len) -> i64. Default "forward".
	ForwardExport string

	// DeallocExport names the optional guest deallocator. When empty,
	// dealloc, deallocate, free and cabi_free are tried.
	DeallocExport string

	// WASI provides wasi_snapshot_preview1 to models built by toolchains
	// that import it. Such models run _initialize at load.
	WASI bool

	// CloseOnContextDone aborts a running forward when its context is
	// cancelled. The model is unusable afterwards.
	CloseOnContextDone bool
}

func (c *Config) memoryExport() string {
	if c.MemoryExport != "" {
		return c.MemoryExport
	}
	return DefaultMemoryExport
}

func (c *Config) forwardExport() string {
	if c.ForwardExport != "" {
		return c.ForwardExport
	}
	return DefaultForwardExport
}

func (c *Config) allocExports() []string {
	if c.AllocExport != "" {
		return []string{c.AllocExport}
	}
	return allocFallbacks
}

func (c *Config) deallocExports() []string {
	if c.DeallocExport != "" {
		return []string{c.DeallocExport}
	}
	return deallocFallbacks
}
