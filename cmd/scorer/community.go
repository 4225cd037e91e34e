package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/totegamma/passport-scorer/internal/domain"
	"github.com/totegamma/passport-scorer/internal/infra/providers"
	"github.com/totegamma/passport-scorer/internal/infra/repository"
)

func NewCommunityCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "community",
		Short: "Manage communities",
	}
	cmd.AddCommand(newCommunityCreateCommand(rootOpts))
	return cmd
}

type communityCreateOptions struct {
	Name      string
	Rule      string
	Weights   map[string]string
	Threshold float64
}

func newCommunityCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &communityCreateOptions{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a community with its deduplication rule and provider weights",
		Long: `Create a community.

Example:
  scorer community create --name demo --rule FIFO --weight Google=1.5 --weight Twitter=2 --threshold 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := domain.ParseRule(opts.Rule); err != nil {
				return err
			}
			weights, err := parseWeights(opts.Weights)
			if err != nil {
				return err
			}

			community := domain.Community{
				Name:    opts.Name,
				Rule:    opts.Rule,
				Weights: weights,
			}
			if cmd.Flags().Changed("threshold") {
				threshold := opts.Threshold
				community.Threshold = &threshold
			}

			conf, _, cleanup, err := rootOpts.bootstrap(cmd.Context(), "community")
			if err != nil {
				return err
			}
			defer cleanup()

			db, err := providers.NewDatabase(conf.Server)
			if err != nil {
				return err
			}

			created, err := repository.NewCommunityRepository(db).Create(cmd.Context(), community)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(created)
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "community name (required)")
	cmd.Flags().StringVar(&opts.Rule, "rule", "LIFO", "deduplication rule (FIFO|LIFO)")
	cmd.Flags().StringToStringVar(&opts.Weights, "weight", nil, "provider weight as provider=value, repeatable")
	cmd.Flags().Float64Var(&opts.Threshold, "threshold", 0, "passing score threshold")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func parseWeights(raw map[string]string) (map[string]float64, error) {
	weights := make(map[string]float64, len(raw))
	for provider, value := range raw {
		w, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight for %s: %w", provider, err)
		}
		weights[provider] = w
	}
	return weights, nil
}
