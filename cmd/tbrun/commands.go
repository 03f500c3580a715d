package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wippyai/tensor-bridge/runtime"
	"github.com/wippyai/tensor-bridge/transcoder"
	"github.com/wippyai/tensor-bridge/value"
	"github.com/wippyai/tensor-bridge/wire"
)

func newForwardCmd() *cobra.Command {
	var (
		f      engineFlags
		input  string
		tagged bool
	)
	cmd := &cobra.Command{
		Use:   "forward",
		Short: "Forward JSON inputs through a model and print the output",
		Example: `  tbrun forward -m model.wasm --input '[[1.0, 2.0], {"k": 3}]'
  tbrun forward -m model.wasm --tagged --input '[{"tag":"Long","payload":7}]'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runForward(cmd.Context(), cmd.OutOrStdout(), f, input, tagged)
		},
	}
	addEngineFlags(cmd, &f)
	cmd.Flags().StringVarP(&input, "input", "i", "[]", "JSON array of positional inputs")
	cmd.Flags().BoolVar(&tagged, "tagged", false, "inputs and output use the tagged JSON form")
	return cmd
}

func newEncodeCmd() *cobra.Command {
	var (
		input  string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Show the tagged form of JSON inputs without running a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEncode(cmd.OutOrStdout(), input, strict)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "[]", "JSON array of positional inputs")
	cmd.Flags().BoolVar(&strict, "strict-empty", false, "reject empty collections instead of encoding them as List")
	return cmd
}

func runForward(ctx context.Context, out io.Writer, f engineFlags, input string, tagged bool) error {
	rt, err := newRuntime(ctx, f)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	mod, err := rt.Load(ctx, f.model)
	if err != nil {
		return err
	}
	defer mod.Destroy(ctx)

	result, err := forwardLine(ctx, mod, input, tagged)
	if err != nil {
		return err
	}
	return writeJSON(out, result)
}

// forwardLine runs one JSON input line and returns a JSON-ready result.
func forwardLine(ctx context.Context, mod *runtime.Module, input string, tagged bool) (any, error) {
	if tagged {
		vals, err := parseTagged(input)
		if err != nil {
			return nil, err
		}
		return mod.ForwardValues(ctx, vals)
	}

	inputs, err := parseInputs(input)
	if err != nil {
		return nil, err
	}
	result, err := mod.Forward(ctx, inputs...)
	if err != nil {
		return nil, err
	}
	return printable(result)
}

func runEncode(out io.Writer, input string, strict bool) error {
	inputs, err := parseInputs(input)
	if err != nil {
		return err
	}
	var opts []transcoder.EncoderOption
	if strict {
		opts = append(opts, transcoder.StrictEmpty())
	}
	vals, err := transcoder.NewEncoder(opts...).EncodeInputs(inputs)
	if err != nil {
		return err
	}
	return writeJSON(out, vals)
}

// parseInputs reads a JSON array. Numbers stay json.Number so integers and
// doubles keep their identity through encoding.
func parseInputs(input string) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(input)))
	dec.UseNumber()
	var inputs []any
	if err := dec.Decode(&inputs); err != nil {
		return nil, fmt.Errorf("input must be a JSON array: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("input must be a single JSON array")
	}
	return inputs, nil
}

func parseTagged(input string) ([]value.Value, error) {
	var vals []value.Value
	if err := json.Unmarshal([]byte(input), &vals); err != nil {
		return nil, fmt.Errorf("tagged input: %w", err)
	}
	return vals, nil
}

// printable replaces tensors with a JSON friendly map, recursively.
func printable(v any) (any, error) {
	switch x := v.(type) {
	case *value.Tensor:
		return printableTensor(x)
	case []*value.Tensor:
		out := make([]any, len(x))
		for i, t := range x {
			p, err := printableTensor(t)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	case transcoder.Tuple:
		return printable([]any(x))
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			p, err := printable(item)
			if err != nil {
				return nil, err
			}
			out[i] = p
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			p, err := printable(item)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	case map[int64]any:
		out := make(map[int64]any, len(x))
		for k, item := range x {
			p, err := printable(item)
			if err != nil {
				return nil, err
			}
			out[k] = p
		}
		return out, nil
	}
	return v, nil
}

func printableTensor(t *value.Tensor) (any, error) {
	m, err := wire.ToMap(value.FromTensor(t))
	if err != nil {
		return nil, err
	}
	tm := m[wire.KeyData].(map[string]any)
	tm[wire.KeyDType] = t.DType().String()
	tm[wire.KeyMemoryFormat] = t.MemoryFormat().String()
	if t.DType() == value.Float16 {
		if tm[wire.KeyData], err = t.Float32s(); err != nil {
			return nil, err
		}
	}
	return tm, nil
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
