package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/desktop-automation/batch"
	"github.com/hairizuan-noorazman/desktop-automation/database"
	"github.com/hairizuan-noorazman/desktop-automation/internal/uuidutil"
)

var (
	runConfigFile    string
	runStopOnFailure bool
	runAll           bool
)

var runCmd = &cobra.Command{
	Use:   "run [scenario-id...]",
	Short: "Execute a batch of scenarios",
	Long:  `Executes the given scenarios in order through the agent loop. With --all, runs every stored scenario in creation order.`,
	RunE:  runBatch,
}

func init() {
	runCmd.Flags().StringVarP(&runConfigFile, "config", "c", "", "config file path")
	runCmd.Flags().BoolVar(&runStopOnFailure, "stop-on-failure", false, "halt the batch after the first failed scenario")
	runCmd.Flags().BoolVar(&runAll, "all", false, "run all stored scenarios")
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := LoadConfig(runConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if err := database.Migrate(a.db); err != nil {
		return err
	}

	ids, err := resolveScenarioIDs(ctx, a, args)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("no scenarios to run; pass scenario IDs or --all")
	}

	// First signal requests a cooperative stop, second aborts outright.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		a.log.Info(ctx, "stop requested, finishing current action", nil)
		a.stop.RequestStop()
		<-sigCh
		cancel()
	}()

	result := a.runner.Run(ctx, ids, batch.Options{StopOnFailure: runStopOnFailure})

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if result.FailureCount > 0 {
		os.Exit(1)
	}
	return nil
}

func resolveScenarioIDs(ctx context.Context, a *app, args []string) ([]uuid.UUID, error) {
	if runAll {
		scenarios, err := a.store.List(ctx, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list scenarios: %w", err)
		}
		ids := make([]uuid.UUID, 0, len(scenarios))
		for _, sc := range scenarios {
			ids = append(ids, sc.ID)
		}
		return ids, nil
	}

	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuidutil.Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario ID %q: %w", arg, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
