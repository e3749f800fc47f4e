package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MekdelawitGebre/customer-experience-fintech/application/service"
	"github.com/MekdelawitGebre/customer-experience-fintech/internal/config"
)

func scrapeCmd() *cobra.Command {
	var (
		envFile string
		count   int
	)

	cmd := &cobra.Command{
		Use:   "scrape [bank...]",
		Short: "Fetch store reviews into <data_dir>/raw",
		Long: `Fetch the newest Google Play reviews of each bank's app and write them to
<data_dir>/raw/<bank>_raw.csv. No banks means every bank with a known app.

Environment variables:
  MAX_SCRAPE_PER_BANK          Reviews fetched per bank (default: 500)
  SLEEP_BETWEEN_REQUESTS       Seconds between page fetches (default: 0.5)
  SCRAPE_LANG, SCRAPE_COUNTRY  Store locale (default: en, us)
  APPS_FILE                    YAML file with extra bank app identifiers
  HTTP_CACHE_DIR               Replay store responses from disk`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			scrape, err := a.scrapeService()
			if err != nil {
				return err
			}
			banks := args
			if len(banks) == 0 {
				banks = scrape.Banks()
			}
			for _, bank := range banks {
				path, err := scrape.ScrapeBank(cmd.Context(), bank, count)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	envFileFlag(cmd, &envFile)
	cmd.Flags().IntVar(&count, "count", 0, "Reviews per bank (default: MAX_SCRAPE_PER_BANK)")
	return cmd
}

func cleanCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "clean [bank...]",
		Short: "Normalize raw reviews into <data_dir>/clean",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			banks, err := banksOrAll(a, args)
			if err != nil {
				return err
			}
			clean := a.cleanService()
			for _, bank := range banks {
				path, err := clean.CleanBank(cmd.Context(), bank)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	envFileFlag(cmd, &envFile)
	return cmd
}

func analyzeCmd() *cobra.Command {
	var (
		envFile           string
		topN              int
		disableClassifier bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [bank...]",
		Short: "Label sentiment and themes into <data_dir>/output",
		Long: `Label each cleaned review with a sentiment and its top themes and write
<data_dir>/output/<bank>_themes.csv.

The sentiment classifier is, in order: the chat endpoint when
SENTIMENT_ENDPOINT_BASE_URL and SENTIMENT_ENDPOINT_API_KEY are set, the local
SENTIMENT_MODEL under MODELS_DIR, or none. Themes need THEME_MODEL under
MODELS_DIR; fetch both with tools/download-model.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []config.AppConfigOption
			if topN > 0 {
				opts = append(opts, config.WithThemesTopN(topN))
			}
			if disableClassifier {
				opts = append(opts, config.WithDisableClassifier(true))
			}
			a, err := newApp(envFile, opts...)
			if err != nil {
				return err
			}
			defer a.Close()

			banks, err := banksOrAll(a, args)
			if err != nil {
				return err
			}
			analyze, err := a.analyzeService()
			if err != nil {
				return err
			}
			for _, bank := range banks {
				path, err := analyze.AnalyzeBank(cmd.Context(), bank)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	envFileFlag(cmd, &envFile)
	cmd.Flags().IntVar(&topN, "top-n", 0, "Themes kept per review (default: THEMES_TOP_N)")
	cmd.Flags().BoolVar(&disableClassifier, "no-classifier", false, "Label without a classifier")
	return cmd
}

func insertCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "insert [file...]",
		Short: "Store analysed reviews in the database",
		Long: `Insert analysed CSV files into the database, one transaction per file.
The bank name is the file name up to the first underscore. No files means
every *_themes.csv in <data_dir>/output; a failing file is logged and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(envFile)
			if err != nil {
				return err
			}
			defer a.Close()

			store, err := a.reviewStore(cmd.Context())
			if err != nil {
				return err
			}
			ingest := service.NewIngest(store, a.logger)

			if len(args) == 0 {
				results, err := ingest.IngestDir(cmd.Context(), a.cfg.OutputDir())
				if err != nil {
					return err
				}
				for _, r := range results {
					printIngest(cmd, r.File, r.Bank, r.Inserted, r.Err)
				}
				return nil
			}
			for _, path := range args {
				n, err := ingest.IngestFile(cmd.Context(), path)
				printIngest(cmd, path, "", n, err)
				if err != nil {
					return err
				}
			}
			return nil
		},
	}

	envFileFlag(cmd, &envFile)
	return cmd
}

func runCmd() *cobra.Command {
	var (
		envFile           string
		disableClassifier bool
	)

	cmd := &cobra.Command{
		Use:   "run [bank...]",
		Short: "Scrape, clean, analyze and insert each bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []config.AppConfigOption
			if disableClassifier {
				opts = append(opts, config.WithDisableClassifier(true))
			}
			a, err := newApp(envFile, opts...)
			if err != nil {
				return err
			}
			defer a.Close()

			scrape, err := a.scrapeService()
			if err != nil {
				return err
			}
			analyze, err := a.analyzeService()
			if err != nil {
				return err
			}
			store, err := a.reviewStore(cmd.Context())
			if err != nil {
				return err
			}

			pipeline := service.NewPipeline(scrape, a.cleanService(), analyze, service.NewIngest(store, a.logger), a.logger)
			runs, err := pipeline.Run(cmd.Context(), args)
			for _, r := range runs {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\t%s\n", r.Bank, r.Inserted, r.Duration.Round(time.Millisecond), status)
			}
			return err
		},
	}

	envFileFlag(cmd, &envFile)
	cmd.Flags().BoolVar(&disableClassifier, "no-classifier", false, "Label without a classifier")
	return cmd
}

// banksOrAll returns args, or every bank with a known app.
func banksOrAll(a *app, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	scrape, err := a.scrapeService()
	if err != nil {
		return nil, err
	}
	return scrape.Banks(), nil
}

func printIngest(cmd *cobra.Command, file, bank string, n int, err error) {
	if err != nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\tfailed: %v\n", file, err)
		return
	}
	if bank != "" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", file, bank, n)
		return
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", file, n)
}

