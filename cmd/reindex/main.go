// Command reindex rebuilds per-user vector namespaces from the relational
// store and drains the index repair queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"neuronote/infrastructure/config"
	"neuronote/infrastructure/di"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reindex: load configuration: %v\n", err)
		os.Exit(1)
	}

	container, cleanup, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reindex: initialize container: %v\n", err)
		os.Exit(1)
	}

	rootCmd := NewRootCmd(container.CommandBus, container.RepairProcessor)
	err = rootCmd.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "reindex: %v\n", err)
		os.Exit(1)
	}
}
