package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"learnshell/internal/bootstrap"
	"learnshell/internal/domain"
	"learnshell/internal/windows"
)

// AskResult is the output of `ask`.
type AskResult struct {
	Query        string                 `yaml:"query"                  json:"query"`
	Mode         domain.SearchMode      `yaml:"mode"                   json:"mode"`
	Answer       string                 `yaml:"answer"                 json:"answer"`
	Error        string                 `yaml:"error,omitempty"        json:"error,omitempty"`
	Scholar      []domain.ScholarResult `yaml:"scholar,omitempty"      json:"scholar,omitempty"`
	ScholarError string                 `yaml:"scholarError,omitempty" json:"scholarError,omitempty"`
}

// askOptions selects how a question is answered.
type askOptions struct {
	ConfigPath string
	Mode       domain.SearchMode
	NoScholar  bool
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question with the local or global model",
	Long: `Answer a question the way the search bar does: the chosen model answers
first, then related academic papers are looked up.

Examples:
  learnctl ask "what is a fourier transform"
  learnctl ask --mode local "summarize chapter 3"
  learnctl ask --no-scholar --format json "why is the sky blue"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().String("mode", string(domain.SearchModeGlobal), "Answering model: local, global")
	askCmd.Flags().Bool("no-scholar", false, "Skip the academic search")
}

func runAsk(cmd *cobra.Command, args []string) error {
	env, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	mode, _ := cmd.Flags().GetString("mode")
	noScholar, _ := cmd.Flags().GetBool("no-scholar")
	configPath, _ := rootCmd.PersistentFlags().GetString("config")

	result, err := ask(cmd.Context(), env, strings.Join(args, " "), askOptions{
		ConfigPath: configPath,
		Mode:       domain.SearchMode(mode),
		NoScholar:  noScholar,
	})
	if err != nil {
		return err
	}
	if err := Print(cmd.OutOrStdout(), env.format, result); err != nil {
		return err
	}
	if result.Error != "" {
		return fmt.Errorf("answer failed: %s", result.Error)
	}
	return nil
}

// ask runs one search through a fresh workspace and reads the answer back
// from the response window.
func ask(ctx context.Context, env cliEnv, question string, opts askOptions) (AskResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	services, err := bootstrap.Build(bootstrap.Options{
		ConfigPath:     opts.ConfigPath,
		Events:         bootstrap.LogEvents(env.logger),
		Logger:         env.logger,
		DisableScholar: opts.NoScholar,
	})
	if err != nil {
		return AskResult{}, err
	}

	assistant := services.Assistant
	if err := assistant.SubmitQuery(question); err != nil {
		return AskResult{}, err
	}
	id, err := assistant.Search(ctx, opts.Mode)
	if err != nil {
		return AskResult{}, err
	}
	assistant.Wait()

	record, ok := services.Windows.Get(id)
	if !ok {
		return AskResult{}, fmt.Errorf("%w: %q", windows.ErrWindowNotFound, id)
	}
	content, ok := record.Content.(windows.ResponseContent)
	if !ok {
		return AskResult{}, fmt.Errorf("%w: %q is %s", windows.ErrContentMismatch, id, record.Kind)
	}
	return AskResult{
		Query:        content.Query,
		Mode:         content.Mode,
		Answer:       content.Answer,
		Error:        content.Error,
		Scholar:      content.Scholar,
		ScholarError: content.ScholarError,
	}, nil
}
