package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cosmasken/paymebro-backend-sub000/payments/pgrepo"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "apply pending database migrations and exit",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := pgrepo.Connect(viper.GetString("database-url"))
	if err != nil {
		return err
	}
	return pgrepo.Migrate(db, viper.GetString("migrations-path"))
}
