package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kumarketplace/marketplace/app/routes"
	"github.com/kumarketplace/marketplace/internal/server"
	"github.com/kumarketplace/marketplace/pkg/router"
)

var noWorkersFlag bool

// marketplace serve
var serveCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"run"},
	Short:   "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := bootApp()
		if err != nil {
			return err
		}
		defer app.Close()

		return app.Serve(ctx, !noWorkersFlag)
	},
}

// marketplace route:list
var routeListCmd = &cobra.Command{
	Use:   "route:list",
	Short: "List all registered routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		r := router.New()
		routes.RegisterAPI(r, routes.Deps{})

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "METHOD\tPATH\tNAME")
		fmt.Fprintln(w, "------\t----\t----")
		for _, ri := range r.Routes() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ri.Method, ri.Path, ri.Name)
		}
		return w.Flush()
	},
}

func bootApp() (*server.App, error) {
	settings, err := server.FromConfig()
	if err != nil {
		return nil, err
	}
	return server.New(settings)
}

func init() {
	serveCmd.Flags().BoolVar(&noWorkersFlag, "no-workers", false, "Do not run queue workers in this process (use with queue:work)")
}
