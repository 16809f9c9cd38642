package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/caseflow/pkg/audit"
	"github.com/entrhq/caseflow/pkg/config"
	"github.com/entrhq/caseflow/pkg/logging"
	"github.com/entrhq/caseflow/pkg/portal"
	"github.com/entrhq/caseflow/pkg/queue"
	"github.com/entrhq/caseflow/pkg/retry"
	"github.com/entrhq/caseflow/pkg/rewrite"
	"github.com/entrhq/caseflow/pkg/scheduler"
	"github.com/entrhq/caseflow/pkg/session"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Log in and process the candidate queue",
		Long: `Log in to the portal, optionally navigate the case listing to a page,
and process candidate cases.

In manual mode each case is processed on an Enter keypress; 'q' stops
the run. In automatic mode the loop runs unattended until the queue is
exhausted or Ctrl-C requests a stop; the in-flight case always runs to
completion first.

Candidates come from the configured Postgres queue, or from a local
YAML file given with --cases:

  - case_id: C-1001
    address_id: addr-9
    address_text: "Hauptstr. 12"
    content: "repair scheduled"`,
		RunE: runRun,
	}

	cmd.Flags().String("mode", "manual", "processing mode: manual or automatic")
	cmd.Flags().Int("page", 0, "listing page to navigate to before processing (0 skips)")
	cmd.Flags().Int("total-pages", 1, "listing page count, bounds the --page value")
	cmd.Flags().String("cases", "", "YAML file of candidate cases (overrides the Postgres queue)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	mode, _ := cmd.Flags().GetString("mode")
	page, _ := cmd.Flags().GetInt("page")
	totalPages, _ := cmd.Flags().GetInt("total-pages")
	casesPath, _ := cmd.Flags().GetString("cases")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	username, password, err := cfg.Credentials()
	if err != nil {
		return err
	}

	log, _ := logging.NewLogger("cli")
	defer log.Close()

	store, err := audit.OpenSQLite(cfg.Audit.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	source, stats, cleanup, err := buildSource(cmd.Context(), cfg, casesPath)
	if err != nil {
		return err
	}
	defer cleanup()

	browser, err := portal.NewBrowser(portal.BrowserOptions{
		BaseURL:  cfg.Portal.BaseURL,
		Headless: *cfg.Portal.Headless,
		Timeout:  cfg.Portal.TimeoutMs,
	})
	if err != nil {
		return err
	}

	registry := session.NewRegistry()
	defer registry.Clear()

	policy := retry.Policy{
		Attempts: cfg.Retry.Attempts,
		Delay:    time.Duration(cfg.Retry.DelayMs) * time.Millisecond,
	}
	nav := session.NewNavigator(registry, audit.NewRecorder(store, log), policy, log)

	ctx := cmd.Context()
	fmt.Println("logging in...")
	sess, err := nav.Login(ctx, browser, browser, portal.Credentials{
		Username: username,
		Password: password,
	})
	if err != nil {
		browser.Close()
		return err
	}
	green.Printf("logged in (session %s)\n", sess.ID)

	if page > 0 {
		if err := nav.SelectPage(ctx, page, totalPages); err != nil {
			return err
		}
		fmt.Printf("listing on page %d\n", page)
	}

	var rewriter rewrite.Rewriter
	if cfg.Rewrite.Enabled {
		opts := []rewrite.Option{}
		if cfg.Rewrite.Model != "" {
			opts = append(opts, rewrite.WithModel(cfg.Rewrite.Model))
		}
		rewriter, err = rewrite.NewOpenAIRewriter("", opts...)
		if err != nil {
			return err
		}
	}

	sched := scheduler.New(source, session.NewCaseProcessor(nav, cfg.AutoConfirm), stats, rewriter, log)

	switch scheduler.Mode(mode) {
	case scheduler.ModeManual:
		return runManual(ctx, sched)
	case scheduler.ModeAutomatic:
		return runAutomatic(sched)
	default:
		return fmt.Errorf("unknown mode %q (want manual or automatic)", mode)
	}
}

// buildSource picks the candidate source: a local YAML file when given,
// otherwise the configured Postgres queue.
func buildSource(ctx context.Context, cfg *config.Config, casesPath string) (queue.Source, queue.StatsSource, func(), error) {
	if casesPath != "" {
		data, err := os.ReadFile(casesPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("read cases file: %w", err)
		}
		var candidates []queue.Candidate
		if err := yaml.Unmarshal(data, &candidates); err != nil {
			return nil, nil, nil, fmt.Errorf("parse cases file: %w", err)
		}
		return queue.NewSliceSource(candidates), nil, func() {}, nil
	}

	if cfg.Queue.DSN == "" {
		return nil, nil, nil, fmt.Errorf("no candidate source: set queue.dsn in the config or pass --cases")
	}

	pg, err := queue.OpenPG(ctx, cfg.Queue.DSN)
	if err != nil {
		return nil, nil, nil, err
	}
	return pg, pg, pg.Close, nil
}

// runManual advances one case per Enter keypress.
func runManual(ctx context.Context, sched *scheduler.Scheduler) error {
	if err := sched.Start(scheduler.ModeManual); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("press Enter to process the next case, 'q' to stop: ")
		line, err := reader.ReadString('\n')
		if err != nil || strings.TrimSpace(line) == "q" {
			break
		}

		processed, err := sched.ProcessNextCase(ctx)
		if err != nil {
			red.Printf("run aborted: %v\n", err)
			break
		}
		if !processed {
			yellow.Println("queue exhausted")
			break
		}
		snap := sched.GetState()
		fmt.Printf("processed %d case(s)\n", snap.ProcessedCount)
	}

	if err := sched.Stop(); err == nil {
		fmt.Println("run stopped")
	}
	printSummary(sched.GetState())
	return nil
}

// runAutomatic lets the background loop drain the queue, stopping early
// on Ctrl-C.
func runAutomatic(sched *scheduler.Scheduler) error {
	if err := sched.Start(scheduler.ModeAutomatic); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	go func() {
		sched.Wait()
		close(done)
	}()

	select {
	case <-sigCh:
		yellow.Println("\nstop requested, finishing the current case...")
		if err := sched.Stop(); err == nil {
			sched.Wait()
		}
	case <-done:
	}

	printSummary(sched.GetState())
	return nil
}

func printSummary(snap scheduler.Snapshot) {
	fmt.Println()
	fmt.Printf("run:       %s\n", snap.RunID)
	fmt.Printf("status:    %s\n", statusColored(snap.Status))
	fmt.Printf("processed: %d\n", snap.ProcessedCount)
	if snap.StatsAvailable {
		fmt.Printf("pending:   %d\n", snap.Stats.PendingCases)
	}
	if len(snap.Errors) > 0 {
		red.Printf("failures:  %d\n", len(snap.Errors))
		for _, msg := range snap.Errors {
			fmt.Printf("  - %s\n", msg)
		}
	}
}

func statusColored(status scheduler.Status) string {
	switch status {
	case scheduler.StatusError:
		return red.Sprint(string(status))
	case scheduler.StatusStopped:
		return yellow.Sprint(string(status))
	default:
		return green.Sprint(string(status))
	}
}
