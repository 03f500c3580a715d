// Package testmodel assembles tiny core WASM models that speak the frame
// protocol. They stand in for compiled inference models in tests.
//
// Every model exports memory (2 pages), a bump allocator alloc(i32) -> i32
// starting at offset 1024, and forward(ptr, len) -> i64 returning ptr<<32|len.
package testmodel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/tensor-bridge/wire"
)

// Section ids.
const (
	secType   = 1
	secImport = 2
	secFunc   = 3
	secMemory = 5
	secGlobal = 6
	secExport = 7
	secCode   = 10
	secData   = 11
)

// Export names used by the models.
const (
	ExportMemory  = "memory"
	ExportAlloc   = "alloc"
	ExportForward = "forward"
)

var (
	// global.get 0; global.get 0; local.get 0; i32.add; global.set 0
	allocBody = []byte{0x23, 0x00, 0x23, 0x00, 0x20, 0x00, 0x6a, 0x24, 0x00}

	// (i64.extend_i32_u ptr << 32) | i64.extend_i32_u len
	echoBody = []byte{0x20, 0x00, 0xad, 0x42, 0x20, 0x86, 0x20, 0x01, 0xad, 0x84}

	// unreachable
	trapBody = []byte{0x00}
)

// Echo returns the input frame unchanged. The engine sends a Tuple of the
// positional inputs, so the output is that Tuple.
func Echo() []byte {
	return assemble(model{forward: echoBody})
}

// WASIEcho is Echo importing wasi_snapshot_preview1.random_get, as
// toolchain-built models do. It only instantiates when WASI is provided.
func WASIEcho() []byte {
	return assemble(model{forward: echoBody, wasi: true})
}

// Trap traps on every forward call.
func Trap() []byte {
	return assemble(model{forward: trapBody})
}

// Constant answers every forward call with frame, placed at offset 0.
func Constant(frame []byte) []byte {
	var body buffer
	body.put(0x42) // i64.const len, ptr is 0
	body.s64(int64(len(frame)))
	return assemble(model{forward: body.b, data: frame})
}

// ErrorFrame answers every forward call with an error frame carrying msg.
func ErrorFrame(msg string) []byte {
	return Constant(wire.MarshalError(msg))
}

// Without is the echo model lacking the named export.
func Without(export string) []byte {
	return assemble(model{forward: echoBody, skip: export})
}

// Write stores wasm under the test's temporary directory and returns the
// path.
func Write(tb testing.TB, name string, wasm []byte) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), name)
	if err := os.WriteFile(path, wasm, 0o600); err != nil {
		tb.Fatal(err)
	}
	return path
}

type model struct {
	forward []byte
	data    []byte
	skip    string
	wasi    bool
}

func assemble(m model) []byte {
	var out buffer
	out.raw(0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00)

	var types buffer
	types.u32(3)
	types.raw(0x60, 1, 0x7f, 1, 0x7f)       // (i32) -> i32
	types.raw(0x60, 2, 0x7f, 0x7f, 1, 0x7e) // (i32, i32) -> i64
	types.raw(0x60, 2, 0x7f, 0x7f, 1, 0x7f) // (i32, i32) -> i32
	out.section(secType, types)

	// Imported functions take the first indices.
	var base uint32
	if m.wasi {
		var imports buffer
		imports.u32(1)
		imports.str("wasi_snapshot_preview1")
		imports.str("random_get")
		imports.put(0x00)
		imports.u32(2)
		out.section(secImport, imports)
		base = 1
	}

	var funcs buffer
	funcs.u32(2)
	funcs.u32(0)
	funcs.u32(1)
	out.section(secFunc, funcs)

	var mem buffer
	mem.u32(1)
	mem.raw(0x00, 2) // min 2 pages, no max
	out.section(secMemory, mem)

	var globals buffer
	globals.u32(1)
	globals.raw(0x7f, 0x01, 0x41) // mut i32 = i32.const
	globals.s64(1024)
	globals.put(0x0b)
	out.section(secGlobal, globals)

	type export struct {
		name string
		kind byte
		idx  uint32
	}
	var exports []export
	for _, e := range []export{
		{ExportMemory, 0x02, 0},
		{ExportAlloc, 0x00, base},
		{ExportForward, 0x00, base + 1},
	} {
		if e.name != m.skip {
			exports = append(exports, e)
		}
	}
	var exp buffer
	exp.u32(uint32(len(exports)))
	for _, e := range exports {
		exp.str(e.name)
		exp.put(e.kind)
		exp.u32(e.idx)
	}
	out.section(secExport, exp)

	var code buffer
	code.u32(2)
	for _, body := range [][]byte{allocBody, m.forward} {
		var fn buffer
		fn.u32(0) // no locals
		fn.raw(body...)
		fn.put(0x0b)
		code.u32(uint32(len(fn.b)))
		code.raw(fn.b...)
	}
	out.section(secCode, code)

	if m.data != nil {
		var seg buffer
		seg.u32(1)
		seg.raw(0x00, 0x41, 0x00, 0x0b) // active, memory 0, offset i32.const 0
		seg.u32(uint32(len(m.data)))
		seg.raw(m.data...)
		out.section(secData, seg)
	}
	return out.b
}

type buffer struct {
	b []byte
}

func (b *buffer) put(v byte)    { b.b = append(b.b, v) }
func (b *buffer) raw(v ...byte) { b.b = append(b.b, v...) }

func (b *buffer) str(s string) {
	b.u32(uint32(len(s)))
	b.b = append(b.b, s...)
}

func (b *buffer) section(id byte, content buffer) {
	b.put(id)
	b.u32(uint32(len(content.b)))
	b.raw(content.b...)
}

// u32 writes unsigned LEB128.
func (b *buffer) u32(v uint32) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b.put(c)
		if v == 0 {
			return
		}
	}
}

// s64 writes signed LEB128.
func (b *buffer) s64(v int64) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			b.put(c)
			return
		}
		b.put(c | 0x80)
	}
}
