package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/totegamma/passport-scorer/internal/infra/providers"
	"github.com/totegamma/passport-scorer/internal/infra/repository"
	"github.com/totegamma/passport-scorer/internal/usecase"
)

func NewScoreCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "score <community> <address>",
		Short: "Run the scoring pipeline once and print the stored score",
		Long: `Run the scoring pipeline inline for one passport.

The passport must already be flagged for calculation: a passport seen for the
first time is only created by the first run, so run the command twice for a new
address.

Example:
  scorer score 1 0x2d4b8b5b2fd3a5f3a4e0e0d6a6e1c6f2b6e0b1a2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			community, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid community %q: %w", args[0], err)
			}

			conf, logger, cleanup, err := rootOpts.bootstrap(ctx, "score")
			if err != nil {
				return err
			}
			defer cleanup()

			db, err := providers.NewDatabase(conf.Server)
			if err != nil {
				return err
			}

			pipeline := providers.NewPipeline(conf, db, providers.PipelineOptions{
				Reader: providers.NewPassportReader(conf.Reader, providers.NewMemcache(conf.Server), logger),
				Logger: logger,
			})
			pipeline.Handlers()[usecase.TaskScorePassportPassport](ctx, uint(community), args[1])

			registry := usecase.NewRegistryUsecase(
				repository.NewPassportRepository(db),
				repository.NewScoreRepository(db),
				repository.NewCommunityRepository(db),
				nil,
			)
			view, err := registry.GetScore(ctx, uint(community), args[1])
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
}
