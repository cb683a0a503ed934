package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsched/shopsched/pkg/infrastructure/loader"
	"github.com/shopsched/shopsched/pkg/scheduler"
)

func newScheduleCommand() *cobra.Command {
	var (
		strategyName string
		budget       time.Duration
		buffer       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Compute a schedule for a dataset",
		Long: `Compute a schedule for the machines and process instances in the
given dataset file. The greedy strategy takes the first feasible slot
on the best-ranked machine; the enhanced strategy weighs utilization
balance, setup similarity and due-date slack across all candidates.`,
		Example: `  # Schedule with the default greedy strategy
  shopsched schedule -f dataset.yaml

  # Enhanced strategy with a 30s budget
  shopsched schedule -f dataset.yaml --strategy enhanced --budget 30s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetPath == "" {
				return fmt.Errorf("a dataset file is required (-f)")
			}

			ds, err := loader.Load(datasetPath)
			if err != nil {
				return err
			}
			instances, machines, err := ds.ToEntities()
			if err != nil {
				return err
			}

			strategy, err := scheduler.StrategyByName(strategyName)
			if err != nil {
				return err
			}

			engine := scheduler.New(scheduler.Options{
				Strategy: strategy,
				Budget:   budget,
				Buffer:   buffer,
				Logger:   newLogger(),
			})

			result, err := engine.Schedule(cmd.Context(), instances, machines)
			if err != nil {
				printResult(result)
				return err
			}
			printResult(result)
			if !result.Success {
				return fmt.Errorf("schedule has %d conflicts", len(result.Conflicts))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&strategyName, "strategy", "greedy", "slot strategy (greedy or enhanced)")
	cmd.Flags().DurationVar(&budget, "budget", 0, "wall-clock budget for the run (0 means unbounded)")
	cmd.Flags().DurationVar(&buffer, "buffer", 0, "buffer inserted when shifting around conflicts")

	return cmd
}

func printResult(result *scheduler.ScheduleResult) {
	if result == nil {
		return
	}
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "encoding result: %v\n", err)
		}
		return
	}

	fmt.Printf("success:     %v\n", result.Success)
	fmt.Printf("scheduled:   %d\n", result.Metrics.ScheduledCount)
	fmt.Printf("failed:      %d\n", result.Metrics.FailedCount)
	fmt.Printf("conflicts:   %d\n", result.Metrics.ConflictCount)
	fmt.Printf("utilization: %s\n", result.Metrics.AverageUtilization)
	fmt.Printf("duration:    %v\n", result.Metrics.SchedulingDuration)

	if len(result.Entries) > 0 {
		fmt.Println("\nentries:")
		for _, e := range result.Entries {
			fmt.Printf("  %-12s %-10s %s -> %s\n",
				e.ProcessInstanceID, e.MachineID,
				e.StartTime.Format(time.RFC3339), e.EndTime.Format(time.RFC3339))
		}
	}
	if len(result.Conflicts) > 0 {
		fmt.Println("\nconflicts:")
		for _, c := range result.Conflicts {
			fmt.Printf("  [%s/%s] %s\n", c.Type, c.Severity, c.Description)
		}
	}
}
