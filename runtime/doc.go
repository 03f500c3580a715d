// Package runtime is the high-level API for running models across the
// tagged-value boundary.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Load(ctx, "model.wasm")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer mod.Destroy(ctx)
//
//	image, _ := value.FromSlice(pixels, 1, 3, 224, 224)
//	out, err := mod.Forward(ctx, image, []any{0.5, 0.25})
//
// # Module lifecycle
//
//	Unloaded -> Loaded -> Destroyed
//
// Load returns a Loaded module. Forward, ForwardNamed and ForwardValues
// work only in that state; after Destroy they fail with
// UseAfterDestroyError. Destroy is idempotent, never fails and waits for
// forwards already running on the same module.
//
// # Inputs and outputs
//
// Host inputs are encoded with transcoder.Encoder and the output decoded
// with transcoder.Decoder; WithEncoderOptions and WithDecoderOptions tune
// both. Named inputs reach the model positionally in mapping order.
//
// # Engines
//
// The default engine runs WebAssembly models with wazero and is configured
// by WithEngineConfig. WithEngine plugs in any engine.Engine, such as
// engine.NewEchoEngine for pass-through tests.
//
// # Errors
//
// Load failures are LoadError. Engine failures, including panics inside
// the engine, are ExecutionError. An output carrying an unknown type tag
// fails with UnknownTypeTagError rather than decoding to nil.
package runtime
