// Command vmctl drives the embeddable VM core against a small set of
// built-in native modules, useful for poking at the runtime without
// wiring up a compiled dispatch module.
package main

import (
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/shanshanpt/vmcore/internal/diagnostic"
	"github.com/shanshanpt/vmcore/internal/logger"
	"github.com/shanshanpt/vmcore/pkg/vm"
	"github.com/shanshanpt/vmcore/pkg/vmmodules"
)

var (
	verbose bool
	noColor bool
)

func main() {
	root := &cobra.Command{
		Use:   "vmctl",
		Short: "Drives the embeddable VM core against its built-in demo modules",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(verbose, noColor)
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVarP(&noColor, "no-color", "n", false, "disable colored output")

	root.AddCommand(newInvokeCmd())
	root.AddCommand(newInspectCmd())

	if err := root.Execute(); err != nil {
		log.Error("vmctl failed", "error", err)
		os.Exit(1)
	}
}

func demoModules() []vm.Module {
	counter := vmmodules.NewCounterModule()
	addTwice := vmmodules.NewAddTwiceModule()
	passthrough := vmmodules.NewPassthroughModule()
	recurse := vmmodules.NewRecurseModule()
	variadic := vmmodules.NewVariadicModule()
	variadicCaller := vmmodules.NewVariadicCallerModule()
	return []vm.Module{counter, addTwice, passthrough, recurse, variadic, variadicCaller}
}

func demoContext() (*vm.Context, error) {
	return vm.NewContext(vm.DefaultAllocator, diagnostic.LogSink{}, demoModules()...)
}
