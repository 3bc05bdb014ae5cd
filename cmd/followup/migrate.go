package main

import (
	"fmt"

	"github.com/lotfimay/FollowUP-GRP4/internal/config"
	"github.com/lotfimay/FollowUP-GRP4/internal/pkg/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back PostgreSQL schema migrations",
	}

	for _, direction := range []string{postgres.MigrateUp, postgres.MigrateDown} {
		cmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: fmt.Sprintf("Migrate the schema %s", direction),
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				if cfg.Database.Driver != config.DriverPostgres {
					return fmt.Errorf("migrations apply to the postgres driver only; the %s store migrates itself on start", cfg.Database.Driver)
				}
				return postgres.Migrate(cfg.Database.URL, direction)
			},
		})
	}
	return cmd
}
