package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kumarketplace/marketplace/app/repositories"
	"github.com/kumarketplace/marketplace/pkg/database"
)

var revokeAdminFlag bool

// marketplace make:admin <email>
var makeAdminCmd = &cobra.Command{
	Use:   "make:admin <email>",
	Short: "Grant (or with --revoke, remove) admin rights for an existing user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, _, err := bootDB()
		if err != nil {
			return err
		}
		defer database.Close(db)

		email := strings.ToLower(strings.TrimSpace(args[0]))
		err = repositories.NewUserRepository(db).SetAdmin(context.Background(), email, !revokeAdminFlag)
		if errors.Is(err, repositories.ErrNotFound) {
			return fmt.Errorf("no user with email %s", email)
		}
		if err != nil {
			return err
		}

		if revokeAdminFlag {
			fmt.Printf("✅  %s is no longer an admin\n", email)
		} else {
			fmt.Printf("✅  %s is now an admin\n", email)
		}
		return nil
	},
}

func init() {
	makeAdminCmd.Flags().BoolVar(&revokeAdminFlag, "revoke", false, "Remove admin rights instead of granting them")
}
