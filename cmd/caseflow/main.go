// Package main provides the caseflow CLI, the operator entry point for
// driving the portal automation: log in once, walk the case listing,
// and process the candidate queue manually or unattended.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "caseflow",
		Short:   "caseflow - portal case automation",
		Version: version,
		Long: `caseflow drives a case-management web portal through a real browser
session and applies status updates to queued cases, either one case per
keypress (manual mode) or as an unattended loop (automatic mode).

Every attempted update is recorded in the local audit trail, whether it
succeeded or not.`,
	}

	rootCmd.PersistentFlags().String("config", "", "path to config file (default ~/.caseflow/config.yaml)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(auditCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
