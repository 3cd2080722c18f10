package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"learnshell/internal/domain"
	"learnshell/internal/providers/serper"
)

// ScholarResultList is the output of `scholar`.
type ScholarResultList struct {
	Query   string                 `yaml:"query"   json:"query"`
	Results []domain.ScholarResult `yaml:"results" json:"results"`
}

var scholarCmd = &cobra.Command{
	Use:   "scholar <query>",
	Short: "Search academic papers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScholar,
}

func init() {
	rootCmd.AddCommand(scholarCmd)
}

func runScholar(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	result, err := searchScholar(cmd.Context(), env, strings.Join(args, " "))
	if err != nil {
		return err
	}
	return Print(cmd.OutOrStdout(), env.format, result)
}

func searchScholar(ctx context.Context, env cliEnv, query string) (ScholarResultList, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	client := serper.NewClient(serper.Config{
		APIKey:  env.cfg.Serper.APIKey,
		BaseURL: env.cfg.Serper.BaseURL,
		Timeout: env.cfg.Serper.Timeout,
	})
	results, err := client.SearchScholar(ctx, query)
	if err != nil {
		return ScholarResultList{}, err
	}
	return ScholarResultList{Query: query, Results: results}, nil
}
