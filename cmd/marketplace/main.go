// Command marketplace runs the KU Marketplace backend.
//
//	marketplace serve              # HTTP server + queue workers
//	marketplace migrate            # run pending migrations
//	marketplace migrate:rollback
//	marketplace migrate:status
//	marketplace seed               # admin account from ADMIN_EMAIL / ADMIN_PASSWORD
//	marketplace queue:work         # workers only (QUEUE_DRIVER=redis)
//	marketplace route:list
//	marketplace make:admin <email>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	// Import migrations so their init() funcs run and register themselves.
	_ "github.com/kumarketplace/marketplace/database/migrations"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "marketplace",
	Short:         "KU Marketplace backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Server
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(routeListCmd)

	// Database
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(migrateRollbackCmd)
	rootCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(makeAdminCmd)

	// Workers
	rootCmd.AddCommand(queueWorkCmd)
}
