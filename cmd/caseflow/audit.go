package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entrhq/caseflow/pkg/audit"
	"github.com/entrhq/caseflow/pkg/config"
)

func auditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit <case-id>",
		Short: "Show the update attempts recorded for a case",
		Args:  cobra.ExactArgs(1),
		RunE:  runAudit,
	}
}

func runAudit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := audit.OpenSQLite(cfg.Audit.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListByCase(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("no update attempts recorded for case %s\n", args[0])
		return nil
	}

	for _, rec := range records {
		marker := green.Sprint("ok")
		if rec.Status == audit.StatusFailed {
			marker = red.Sprint("failed")
		}
		fmt.Printf("%s  %s  [%s]  %s\n", rec.CreatedAt.Format("2006-01-02 15:04:05"), marker, rec.Mode, rec.Content)
		if rec.ErrorMessage != "" {
			fmt.Printf("    %s\n", rec.ErrorMessage)
		}
	}
	return nil
}
