package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/xiy/faq-search/internal/admin"
	"github.com/xiy/faq-search/internal/app"
	"github.com/xiy/faq-search/internal/config"
	"github.com/xiy/faq-search/internal/faq"
	"github.com/xiy/faq-search/internal/store"
	"github.com/xiy/faq-search/pkg/types"
)

const version = "faq-search v0.1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd(logOut io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "faq-search",
		Short:         "Semantic search over a small FAQ corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/faq-search.yaml", "Path to config file")

	root.AddCommand(
		newSeedCmd(&configPath, logOut),
		newSearchCmd(&configPath, logOut),
		newAdminCmd(&configPath),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)
	return root
}

// components are the pieces of the fx graph the commands use.
type components struct {
	cfg    config.Config
	svc    *faq.Service
	store  *store.SQLiteStore
	logger *log.Logger
}

func withApp(ctx context.Context, configPath string, logOut io.Writer, fn func(context.Context, components) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	c := components{cfg: cfg}
	fxApp := app.New(cfg,
		app.LogOutput(logOut),
		fx.Populate(&c.svc, &c.store, &c.logger),
	)
	if err := fxApp.Start(ctx); err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
		defer cancel()
		if err := fxApp.Stop(stopCtx); err != nil {
			c.logger.Warn("stop application", "error", err)
		}
	}()

	return fn(ctx, c)
}

func seedFAQs(ctx context.Context, c components, file string) error {
	if file == "" {
		file = c.cfg.SeedFile
	}
	faqs := store.SampleFAQs()
	if file != "" {
		loaded, err := store.LoadSeedFile(config.ExpandPath(file))
		if err != nil {
			return err
		}
		faqs = loaded
	}
	_, err := faq.Seed(ctx, c.store, faqs, c.logger)
	return err
}

func newSeedCmd(configPath *string, logOut io.Writer) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Replace the stored corpus with the sample FAQs or a YAML seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *configPath, logOut, func(ctx context.Context, c components) error {
				if err := seedFAQs(ctx, c, file); err != nil {
					return err
				}
				n, err := c.store.Count(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d faqs into %s\n", n, c.cfg.DBPath)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "YAML seed file (defaults to seed_file or the built-in sample)")
	return cmd
}

func newSearchCmd(configPath *string, logOut io.Writer) *cobra.Command {
	var (
		topK   int
		asJSON bool
		reseed bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Rank stored questions by similarity to a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := args[0]
			return withApp(cmd.Context(), *configPath, logOut, func(ctx context.Context, c components) error {
				if reseed {
					if err := seedFAQs(ctx, c, ""); err != nil {
						return err
					}
				}
				k := topK
				if !cmd.Flags().Changed("top-k") {
					k = c.cfg.DefaultTopK
				}

				results, err := c.svc.Search(ctx, query, k)
				if err != nil {
					return err
				}
				return printResults(cmd.OutOrStdout(), query, k, results, asJSON)
			})
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 10, "Number of results (defaults to default_top_k)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&reseed, "reseed", false, "Reseed the corpus before searching")
	return cmd
}

func printResults(w io.Writer, query string, topK int, results []types.RankedResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(types.SearchResponse{Query: query, TopK: topK, Results: results})
	}
	if len(results) == 0 {
		fmt.Fprintln(w, "no results")
		return nil
	}
	for _, r := range results {
		fmt.Fprintf(w, "[%.3f] %s\n    %s\n", r.SimilarityScore, r.Question, r.Answer)
	}
	return nil
}

func newAdminCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "admin",
		Short: "Open the terminal dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *configPath, io.Discard, func(ctx context.Context, c components) error {
				return admin.Run(ctx, c.store)
			})
		},
	}
}
