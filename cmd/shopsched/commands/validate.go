package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopsched/shopsched/pkg/infrastructure/loader"
	"github.com/shopsched/shopsched/pkg/scheduler"
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a dataset without scheduling",
		Long: `Decode and validate a dataset file: structural checks, entity
validation and dependency sanity. No placement is attempted.`,
		Example: `  shopsched validate -f dataset.yaml`,
		Args:    cobra.NoArgs,
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

			graph, err := scheduler.NewDependencyGraph(instances)
			if err != nil {
				return err
			}
			if _, err := graph.Tiers(); err != nil {
				return err
			}

			fmt.Printf("dataset ok: %d machines, %d process instances\n", len(machines), len(instances))
			return nil
		},
	}

	return cmd
}
