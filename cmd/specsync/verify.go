package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"specsync/internal/config"
	"specsync/internal/verify"
)

var (
	verifyRoot    string
	verifyVerbose bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify-exports",
	Short: "Check that the barrel file exports every model file",
	Long: `Walk the generated package's models directory (layout from
package.toml) and report model files the barrel file does not export.
Types from unexported files that exported files reference are listed
separately, since those gaps break downstream compilation first.

Examples:
  specsync verify-exports --config-dir config/
  specsync verify-exports --config-dir config/ --root ../googleai_dart -v`,
	Run: runVerifyExports,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyRoot, "root", ".", "Generated package root directory")
	verifyCmd.Flags().BoolVarP(&verifyVerbose, "verbose", "v", false, "Show file and export counts")

	rootCmd.AddCommand(verifyCmd)
}

func runVerifyExports(cmd *cobra.Command, args []string) {
	logger := newLogger("human")

	pkg, err := config.LoadPackage(configDirFlag)
	if err != nil {
		exitOnError(err)
	}

	report, err := verify.Check(verifyRoot, pkg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitConfig)
	}

	fmt.Println("Checking barrel file completeness...")
	if verifyVerbose {
		fmt.Printf("Found %d model files, %d exports in %s\n",
			report.ModelFiles, report.Exports, pkg.BarrelFile)
	}

	if report.Complete() {
		fmt.Println("All model files are exported.")
		return
	}

	fmt.Println("\nUNEXPORTED FILES:")
	for _, file := range report.Unexported {
		fmt.Printf("  - %s\n", file)
	}

	if len(report.TransitiveUses) > 0 {
		fmt.Println("\nUSED BY EXPORTED FILES (export these first):")
		files := make([]string, 0, len(report.TransitiveUses))
		for name := range report.TransitiveUses {
			files = append(files, name)
		}
		sort.Strings(files)
		for _, name := range files {
			fmt.Printf("  - %s:\n", name)
			for _, usage := range report.TransitiveUses[name] {
				fmt.Printf("      %s (used by %s)\n", usage.Type, usage.UsedBy)
			}
		}
	}

	fmt.Printf("\nFound %d unexported file(s).\n", len(report.Unexported))
	fmt.Printf("\nTo fix, add exports to %s:\n\n", pkg.BarrelFile)
	for _, line := range report.SuggestedExports {
		fmt.Println(line)
	}

	os.Exit(1)
}
