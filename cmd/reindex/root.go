package main

import (
	"context"

	"neuronote/application/commands/bus"

	"github.com/spf13/cobra"
)

const defaultParallelism = 4

// commandExecutor is satisfied by *bus.CommandBus.
type commandExecutor interface {
	Execute(ctx context.Context, cmd bus.Command) (interface{}, error)
}

// queueDrainer is satisfied by *repair.Processor.
type queueDrainer interface {
	Drain(ctx context.Context) (int, int, error)
}

func NewRootCmd(commands commandExecutor, drainer queueDrainer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "reindex",
		Short:         "Rebuild vector namespaces from stored memories",
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().Int("parallelism", defaultParallelism, "Concurrent embedding calls per user")

	rootCmd.AddCommand(
		NewUserCmd(commands),
		NewAllCmd(commands),
		NewDrainCmd(drainer),
	)
	return rootCmd
}
