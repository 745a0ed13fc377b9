package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shanshanpt/vmcore/pkg/vm"
)

func newInvokeCmd() *cobra.Command {
	var inputs []string

	cmd := &cobra.Command{
		Use:   "invoke <module.function>",
		Short: "Invokes an exported function against the built-in demo modules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := demoContext()
			if err != nil {
				return err
			}
			defer ctx.Release()

			fn, err := ctx.ResolveFunction(args[0])
			if err != nil {
				return err
			}

			in := vm.NewVariantList(len(inputs))
			for _, raw := range inputs {
				v, err := parseInput(raw)
				if err != nil {
					return err
				}
				in.Append(v)
			}

			out := vm.NewVariantList(0)
			if err := vm.Invoke(ctx, fn, in, out); err != nil {
				return err
			}

			for i := 0; i < out.Size(); i++ {
				v := out.Get(i)
				if v.IsRef {
					fmt.Fprintf(cmd.OutOrStdout(), "ref:%v\n", v.Ref.Payload())
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), v.I32)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&inputs, "in", nil, "input value, e.g. i32:7 or ref:payload; repeatable")
	return cmd
}

func parseInput(raw string) (vm.Value, error) {
	kind, rest, _ := strings.Cut(raw, ":")
	switch kind {
	case "i32":
		n, err := strconv.ParseInt(rest, 10, 32)
		if err != nil {
			return vm.Value{}, fmt.Errorf("invalid i32 input %q: %w", raw, err)
		}
		return vm.I32Value(int32(n)), nil
	case "ref":
		// The CLI's references are display-only: no destructor runs when
		// the process exits, since nothing observes it.
		return vm.RefValue(vm.NewRef(1, rest, nil)), nil
	default:
		return vm.Value{}, fmt.Errorf("unsupported --in value %q (expected i32:<n> or ref:<payload>)", raw)
	}
}
