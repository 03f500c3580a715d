// Package engine runs inference models behind the tagged-value boundary.
//
// An Engine loads a model file into an Executor. An Executor takes the
// positional inputs of one forward call as tagged values and returns one
// tagged value. What happens between is the wrapped engine's business.
//
// # Engines
//
//	WazeroEngine  - models compiled to core WebAssembly, run by wazero
//	FuncEngine    - an in-process Go function serving every model path
//
// NewEchoEngine is the pass-through FuncEngine used to exercise the
// boundary without a model.
//
// # WebAssembly model protocol
//
// A model module exports:
//
//	memory                    linear memory
//	alloc(size i32) -> i32    allocator (allocate and cabi_realloc also work)
//	forward(ptr, len) -> i64  runs the model, returns ptr<<32 | len
//	dealloc(ptr, len)         optional
//
// For each forward call the engine allocates guest memory, writes a wire
// value frame holding a Tuple of the inputs, calls forward and reads the
// frame at the returned location. The guest answers with a value frame or
// an error frame. Output frames are copied out of guest memory before they
// are decoded.
//
// # Errors
//
// Unreadable files, bad magic, compile failures and missing exports are
// LoadError. Traps, error frames and malformed output are ExecutionError.
// An unknown type tag in the output is reported as is. Forward after Close
// is UseAfterDestroyError.
//
// # Thread Safety
//
// Engines are safe for concurrent use. Forward calls on one WASM executor
// are serialized with a mutex; FuncEngine executors run calls concurrently.
package engine
