package main

import (
	"fmt"

	"neuronote/application/commands"

	"github.com/spf13/cobra"
)

func NewUserCmd(executor commandExecutor) *cobra.Command {
	return &cobra.Command{
		Use:   "user <user-id>",
		Short: "Re-upsert every memory of one user",
		Args:  cobra.ExactArgs(1),
		RunE: makeReindexRunner(executor, func(args []string) commands.ReindexCommand {
			return commands.ReindexCommand{UserID: args[0]}
		}),
	}
}

func NewAllCmd(executor commandExecutor) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Re-upsert the memories of every user",
		Args:  cobra.NoArgs,
		RunE: makeReindexRunner(executor, func([]string) commands.ReindexCommand {
			return commands.ReindexCommand{All: true}
		}),
	}
}

func makeReindexRunner(executor commandExecutor, build func([]string) commands.ReindexCommand) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		parallelism, _ := cmd.Flags().GetInt("parallelism")
		if parallelism < 1 {
			return fmt.Errorf("parallelism must be at least 1")
		}

		reindex := build(args)
		reindex.Parallelism = parallelism

		out, err := executor.Execute(cmd.Context(), reindex)
		if err != nil {
			return fmt.Errorf("reindex: %w", err)
		}
		result, ok := out.(*commands.ReindexResult)
		if !ok {
			return fmt.Errorf("unexpected reindex result %T", out)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Reindexed %d memories across %d users (%d failed)\n",
			result.Indexed, result.Users, result.Failed)
		if result.Failed > 0 {
			return fmt.Errorf("%d memories failed to index", result.Failed)
		}
		return nil
	}
}

func NewDrainCmd(drainer queueDrainer) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run pending index repairs until the queue is empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repaired, failed, err := drainer.Drain(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "Repaired %d, failed %d\n", repaired, failed)
			if err != nil {
				return fmt.Errorf("drain: %w", err)
			}
			if failed > 0 {
				return fmt.Errorf("%d repairs still failing", failed)
			}
			return nil
		},
	}
}
