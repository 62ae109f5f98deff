// Command suzume is the runtime's entry point: it takes a classpath and a
// fully-qualified main class name, resolves and initializes the class, and
// runs its `main([Ljava/lang/String;)V` to completion.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/suzume-jvm/suzume/pkg/heap"
	"github.com/suzume-jvm/suzume/pkg/interp"
	"github.com/suzume-jvm/suzume/pkg/methodarea"
	"github.com/suzume-jvm/suzume/pkg/natives"
)

var classpath []string

var rootCmd = &cobra.Command{
	Use:   "suzume <MainClass> [args...]",
	Short: "suzume runs a JVM-class-file program against a managed, single-threaded interpreter",
	Long: `suzume loads classes on demand from a classpath, links and initializes
them, allocates objects and arrays on a managed heap, and executes bytecode
until the named main class's main method returns.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMain,
}

func init() {
	rootCmd.Flags().StringArrayVarP(&classpath, "classpath", "c", nil,
		"classpath directory to search for .class files, in order (repeatable)")
}

func runMain(cmd *cobra.Command, args []string) error {
	cp := classpath
	if len(cp) == 0 {
		cp = []string{"."}
	}
	mainClass, programArgs := args[0], args[1:]

	ma := methodarea.New(cp)
	h := heap.New()
	nt := natives.NewTable()
	thread := interp.New(ma, h, nt, cmd.OutOrStdout())

	classId, err := ma.ResolveClass(mainClass)
	if err != nil {
		return fmt.Errorf("loading %s: %w", mainClass, err)
	}
	if err := thread.RunMain(classId, programArgs); err != nil {
		return fmt.Errorf("running %s: %w", mainClass, err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
