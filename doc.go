// Package tensorbridge moves values between Go and machine learning models
// through a closed set of tagged values.
//
// Host values (scalars, strings, slices, maps, tensors) are encoded into
// tagged values, handed to a model engine and the engine's output is
// decoded back. The tag set is closed: anything outside it is rejected on
// the way in and reported on the way out, never silently dropped.
//
// # Architecture Overview
//
//	tensorbridge/
//	├── value/       Tagged values, tensors, dtypes and memory formats
//	├── transcoder/  Host value encoder and decoder
//	├── wire/        Binary frame codec and method-channel map form
//	├── engine/      Model engines (wazero, in-process functions)
//	├── runtime/     Runtime and Module handles with lifecycle checks
//	├── bridge/      Method-channel dispatcher for load, forward and destroy
//	├── resource/    Handle tables for module ids
//	├── errors/      Structured error types
//	└── cmd/tbrun/   Command-line runner and REPL
//
// # Quick Start
//
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
//	out, err := mod.Forward(ctx, []any{1, 2, 3}, map[string]any{"k": 0.5})
//
// Integer lists encode as LongList, float lists as DoubleList, bool lists
// as BoolList and tensor lists as TensorList. Mixed or nested lists become
// List. Dictionaries must have all string keys or all integer keys.
//
// # Error Handling
//
// All errors are *errors.Error values and match sentinels with errors.Is:
//
//	if errors.Is(err, errors.ErrUseAfterDestroy) {
//	    // the module was destroyed
//	}
package tensorbridge
