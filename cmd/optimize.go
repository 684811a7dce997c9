package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spigell/reswave/internal/ai"
	"github.com/spigell/reswave/internal/ai/gemini"
	"github.com/spigell/reswave/internal/filtering"
	"github.com/spigell/reswave/internal/logger"
	"github.com/spigell/reswave/internal/optimizer"
	"github.com/spigell/reswave/internal/reswave"
	"github.com/spigell/reswave/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errNoVersions = errors.New("no uploaded resumes found")

var optimizeCmd = &cobra.Command{
	Use:   "optimize [resource-id]",
	Short: "Optimize a resume, retrying failed attempts with exponential backoff",
	Long: `Optimize a resume.

With the http provider the argument is a version id on the reswave API. Without an
argument the uploaded versions are offered for interactive selection, and --all
optimizes every version that passes the batch filters.

With the gemini provider the argument is a path to a local .docx, .md or .txt resume.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		optimize(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().BoolP("all", "a", false, "optimize every uploaded version that passes the batch filters")
	optimizeCmd.Flags().BoolP("force", "f", false, "do not skip versions listed in the history file")
	optimizeCmd.Flags().StringP("save", "s", "", "directory to save optimized content to")
	optimizeCmd.Flags().StringP("provider", "p", "", "attempt backend: http or gemini")
	optimizeCmd.Flags().String("job-title", "", "target position for the gemini provider")

	viper.BindPFlag("provider", optimizeCmd.Flags().Lookup("provider"))
	viper.BindPFlag("optimize.job-title", optimizeCmd.Flags().Lookup("job-title"))
}

func optimize(cmd *cobra.Command, args []string) {
	ctx, stop, e := setup()
	defer stop()

	all, _ := cmd.Flags().GetBool("all")
	force, _ := cmd.Flags().GetBool("force")
	saveDir, _ := cmd.Flags().GetString("save")

	e.logger.Info("starting the reswave optimizer",
		zap.String("version", version),
		zap.String(logger.FieldProvider, e.config.Provider),
		zap.Int("max_retries", e.config.Optimize.MaxRetries),
	)

	if all && len(args) > 0 {
		e.logger.Fatal("--all does not take a resource id")
	}

	var outcomes []outcome
	switch e.config.Provider {
	case providerGemini:
		if all || len(args) == 0 {
			e.logger.Fatal("gemini provider needs a path to a local resume")
		}
		outcomes = []outcome{optimizeLocal(ctx, e, args[0])}
	default:
		api := e.apiClient()
		client, err := optimizer.New(api, e.config.Optimize.Config, logger.WithProvider(e.logger, providerHTTP))
		if err != nil {
			e.logger.Fatal("creating an optimizer", zap.Error(err))
		}

		switch {
		case all:
			outcomes, err = optimizeBatch(ctx, e, api, client, force)
		case len(args) == 1:
			outcomes = []outcome{submit(ctx, client, args[0], "")}
		default:
			var selected *reswave.FileVersion
			selected, err = selectVersion(ctx, api)
			if err == nil {
				outcomes = []outcome{submit(ctx, client, selected.ID, selected.Filename)}
			}
		}

		if err != nil {
			e.logger.Fatal("preparing optimization", zap.Error(err))
		}
	}

	if saveDir != "" {
		saveOutcomes(e.logger, saveDir, outcomes)
	}

	if err := renderOutcomes(os.Stdout, e.output, outcomes); err != nil {
		e.logger.Fatal("rendering output", zap.Error(err))
	}

	failed := 0
	for _, o := range outcomes {
		if o.failed() {
			failed++
		}
	}

	e.logger.Info("optimization finished", zap.Int("total", len(outcomes)), zap.Int("failed", failed))
	if failed > 0 {
		stop()
		os.Exit(1)
	}
}

func submit(ctx context.Context, client *optimizer.Client, resourceID, label string) outcome {
	res, err := client.Submit(ctx, resourceID)
	return newOutcome(resourceID, label, res, err)
}

func optimizeLocal(ctx context.Context, e *env, path string) outcome {
	if _, err := os.Stat(path); err != nil {
		e.logger.Fatal("checking resume file", zap.String("path", path), zap.Error(err))
	}

	rewriter, err := newRewriter(ctx, e)
	if err != nil {
		e.logger.Fatal("creating gemini rewriter", zap.Error(err))
	}

	client, err := optimizer.New(rewriter, e.config.Optimize.Config, logger.WithProvider(e.logger, providerGemini))
	if err != nil {
		e.logger.Fatal("creating an optimizer", zap.Error(err))
	}

	return submit(ctx, client, path, filepath.Base(path))
}

func newRewriter(ctx context.Context, e *env) (*ai.Rewriter, error) {
	cfg := e.config.AI.Gemini

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
		Env:   geminiKeyEnv,
	})
	if err != nil {
		return nil, err
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, cfg.Model)
	if err != nil {
		return nil, err
	}

	e.logger.Info("using gemini", zap.String("model", generator.Model()), zap.String("job_title", e.config.Optimize.JobTitle))

	return ai.NewRewriter(generator, e.config.Optimize.JobTitle, cfg.MaxLogLength, e.logger), nil
}

func selectVersion(ctx context.Context, api *reswave.Client) (*reswave.FileVersion, error) {
	files, err := api.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	versions := files.Versions()
	if versions.Len() == 0 {
		return nil, errNoVersions
	}

	prompt := promptui.Select{
		Label: "Select a resume to optimize",
		Items: versions.Labels(),
		Size:  10,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("selecting a resume: %w", err)
	}

	return versions.Items[idx], nil
}

// optimizeBatch submits one independent invocation per selected version. Every
// invocation keeps its own retry budget.
func optimizeBatch(ctx context.Context, e *env, api *reswave.Client, client *optimizer.Client, force bool) ([]outcome, error) {
	files, err := api.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing files: %w", err)
	}

	targets, err := batchTargets(ctx, e.logger, e.config.Optimize, force, files)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, errNoVersions
	}

	e.logger.Info("optimizing selected files",
		zap.Int("count", len(targets)),
		zap.Int("concurrency", e.config.Optimize.Concurrency),
	)

	outcomes := make([]outcome, len(targets))
	var g errgroup.Group
	g.SetLimit(e.config.Optimize.Concurrency)
	for i, target := range targets {
		g.Go(func() error {
			outcomes[i] = submit(ctx, client, target.ID, target.Filename)
			return nil
		})
	}
	_ = g.Wait()

	if path := strings.TrimSpace(e.config.Optimize.HistoryFile); path != "" {
		if err := recordHistory(path, targets, outcomes); err != nil {
			e.logger.Error("updating history file", zap.String("path", path), zap.Error(err))
		}
	}

	return outcomes, nil
}

// batchTargets runs the selection pipeline over the listing. The result holds
// at most one version per file; history entries are keyed by the same ids.
func batchTargets(ctx context.Context, log *zap.Logger, cfg *OptimizeConfig, force bool, files *reswave.Files) ([]*reswave.FileVersion, error) {
	steps := filtering.Default()
	if force {
		filtering.DisableByName(steps, "history", filtering.ForceFlagSetMsg)
	}

	fcfg := &filtering.Config{
		Extensions:  cfg.Extensions,
		LatestOnly:  cfg.LatestOnly,
		HistoryFile: cfg.HistoryFile,
	}

	selected, err := filtering.Run(ctx, fcfg, filtering.Deps{Logger: log}, steps, files.Versions())
	if err != nil {
		return nil, fmt.Errorf("filtering versions: %w", err)
	}

	for _, status := range filtering.Describe(steps) {
		log.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	return selected.Items, nil
}

func recordHistory(path string, targets []*reswave.FileVersion, outcomes []outcome) error {
	history, err := filtering.LoadHistory(path)
	if err != nil {
		return err
	}

	now := time.Now()
	recorded := 0
	for i, o := range outcomes {
		if o.failed() {
			continue
		}
		history.Record(targets[i], now)
		recorded++
	}

	if recorded == 0 {
		return nil
	}
	return history.ToFile(path)
}

func saveOutcomes(log *zap.Logger, dir string, outcomes []outcome) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Error("creating save directory", zap.String("path", dir), zap.Error(err))
		return
	}

	for i := range outcomes {
		o := &outcomes[i]
		if o.failed() {
			continue
		}

		path := filepath.Join(dir, optimizedName(o.ResourceID))
		if err := os.WriteFile(path, []byte(o.Result.OptimizedContent), 0o644); err != nil {
			log.Error("saving optimized content", zap.String("path", path), zap.Error(err))
			continue
		}
		o.SavedTo = path
	}
}

func optimizedName(resourceID string) string {
	base := filepath.Base(resourceID)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "resume"
	}
	return base + "-optimized.txt"
}
