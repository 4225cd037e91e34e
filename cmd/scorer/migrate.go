package main

import (
	"github.com/spf13/cobra"

	"github.com/totegamma/passport-scorer/internal/infra/providers"
)

func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, logger, cleanup, err := rootOpts.bootstrap(cmd.Context(), "migrate")
			if err != nil {
				return err
			}
			defer cleanup()

			db, err := providers.NewDatabase(conf.Server)
			if err != nil {
				return err
			}
			if err := providers.MigrateDatabase(db); err != nil {
				return err
			}
			logger.Info("schema migrated")
			return nil
		},
	}
}
