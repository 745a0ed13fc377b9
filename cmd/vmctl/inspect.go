package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shanshanpt/vmcore/pkg/vm"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <module>",
		Short: "Prints a built-in demo module's signature and exports",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var target vm.Module
			for _, m := range demoModules() {
				if m.Name() == args[0] {
					target = m
					break
				}
			}
			if target == nil {
				return fmt.Errorf("unknown module %q", args[0])
			}

			sig := target.Signature()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "module %s: %d imports, %d exports\n", target.Name(), sig.ImportFunctionCount, sig.ExportFunctionCount)
			for i := int32(0); i < sig.ExportFunctionCount; i++ {
				_, name, fsig, err := target.GetFunction(vm.LinkageExport, i)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  export %s (%d args, %d results)\n", name, fsig.ArgumentCount, fsig.ResultCount)
			}
			for i := int32(0); i < sig.ImportFunctionCount; i++ {
				_, name, _, err := target.GetFunction(vm.LinkageImport, i)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "  import %s\n", name)
			}
			return nil
		},
	}
}
