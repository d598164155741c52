package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var queueWorkersFlag int

// marketplace queue:work
var queueWorkCmd = &cobra.Command{
	Use:   "queue:work",
	Short: "Start queue workers without the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := bootApp()
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Println("🚀 Queue worker started. Press Ctrl+C to stop.")
		if err := app.Work(ctx, queueWorkersFlag); err != nil {
			return err
		}
		fmt.Println("\n⚡ Queue worker stopped.")
		return nil
	},
}

func init() {
	queueWorkCmd.Flags().IntVarP(&queueWorkersFlag, "workers", "w", 0, "Number of concurrent workers (default QUEUE_WORKERS)")
}
