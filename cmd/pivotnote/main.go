// Pivot Note — trend intelligence backend for daily content production.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pivotnote/pulse/api"
	"github.com/pivotnote/pulse/internal/collector"
	"github.com/pivotnote/pulse/internal/config"
	"github.com/pivotnote/pulse/internal/intel"
	"github.com/pivotnote/pulse/internal/llm"
	"github.com/pivotnote/pulse/internal/prompts"
	"github.com/pivotnote/pulse/internal/store"
	"github.com/pivotnote/pulse/internal/trends"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pivotnote",
	Short: "Pivot Note — trend intelligence for daily content production",
	Long: `Pivot Note backend
Collects daily Google and Twitter/X trends for USA and India, validates
and normalizes them, runs LLM intelligence analysis, and assembles
production-ready scripts for the daily show.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(promptCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(assembleCmd)
	rootCmd.AddCommand(deepdiveCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Pivot Note %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Collect Command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect and normalize the day's trends",
	Long: `Collect the day's trends for USA and India.

Without flags, fetches Google trends from SerpAPI and enriches them
with a flash-tier model. With --manual, reads a pasted JSON payload
(e.g. the Twitter collection prompt's output) from a file or stdin.

Examples:
  pivotnote collect
  pivotnote collect --manual twitter.json --platform twitter
  cat paste.txt | pivotnote collect --manual - --platform twitter`,
	RunE: func(cmd *cobra.Command, args []string) error {
		manual, _ := cmd.Flags().GetString("manual")
		platformFlag, _ := cmd.Flags().GetString("platform")

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		if manual != "" {
			return collectManual(ctx, manual, platformFlag)
		}
		return collectSearch(ctx)
	},
}

func init() {
	collectCmd.Flags().String("manual", "", "read a pasted JSON payload from a file ('-' for stdin)")
	collectCmd.Flags().String("platform", "twitter", "platform of the manual payload (google, twitter)")
}

func collectSearch(ctx context.Context) error {
	if cfg.SerpAPI.APIKey == "" {
		return fmt.Errorf("serpapi api key not configured")
	}

	router, err := llm.NewRouterFromConfig(cfg)
	if err != nil {
		return err
	}

	serp := collector.NewSerpAPIClient(cfg.SerpAPI.APIKey,
		collector.WithSerpAPIWindow(cfg.Collection.WindowHours))

	fmt.Printf("Fetching trending searches (%v, last %dh)...\n",
		cfg.Collection.Regions, cfg.Collection.WindowHours)

	byRegion, err := serp.FetchAll(ctx, cfg.Collection.Regions, cfg.Collection.TrendsPerRun)
	if err != nil {
		return err
	}

	opts := llm.DefaultOptions()
	opts.Model = cfg.LLM.FlashModel

	fmt.Println("Enriching with model context...")
	usa, india, err := collector.EnrichSearchTrends(ctx, router, opts,
		byRegion[trends.RegionUSA], byRegion[trends.RegionIndia])
	if err != nil {
		return err
	}

	valid, report := trends.NormalizeBatch(append(usa, india...), trends.PlatformSearch)
	printReport(report)

	return persistBatch(ctx, valid)
}

func collectManual(ctx context.Context, path, platformFlag string) error {
	platform, err := trends.ParsePlatform(platformFlag)
	if err != nil {
		return err
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}

	raws, err := collector.ParseManualPaste(string(data))
	if err != nil {
		return err
	}

	valid, report := trends.NormalizeBatch(raws, platform)
	printReport(report)

	return persistBatch(ctx, valid)
}

func persistBatch(ctx context.Context, valid []trends.Trend) error {
	db, err := store.New(cfg.Supabase.URL, cfg.Supabase.Key)
	if err == store.ErrNotConfigured {
		fmt.Println("Supabase not configured; printing instead of saving.")
		return json.NewEncoder(os.Stdout).Encode(valid)
	}
	if err != nil {
		return err
	}

	day := time.Now().UTC().Format("2006-01-02")
	if err := db.SaveTrends(ctx, day, valid); err != nil {
		return err
	}
	fmt.Printf("Saved %d trends for %s.\n", len(valid), day)
	return nil
}

func printReport(report *trends.ValidationReport) {
	fmt.Printf("Validated %d records: %d valid, %d invalid.\n",
		report.Total, report.Valid, report.Invalid)
	for _, re := range report.Errors {
		fmt.Printf("  record %d (%s): %v\n", re.Index, re.Keyword, re.Errors)
	}
}

// --- Prompt Command ---

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the Twitter/X collection prompt",
	Long: `Print the collection prompt to paste into an X-connected model.
Feed the model's JSON reply back with 'pivotnote collect --manual'.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(prompts.TwitterCollection())
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [date]",
	Short: "Run intelligence analysis on a day's trends",
	Long:  "Build the daily intelligence grid from stored trends. Date defaults to today (YYYY-MM-DD).",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now().UTC().Format("2006-01-02")
		if len(args) == 1 {
			day = args[0]
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		db, err := store.New(cfg.Supabase.URL, cfg.Supabase.Key)
		if err != nil {
			return err
		}

		search, mention, err := db.TrendsByDate(ctx, day)
		if err != nil {
			return err
		}
		batch := make([]trends.Trend, 0, len(search)+len(mention))
		for _, row := range search {
			batch = append(batch, row.Trend())
		}
		for _, row := range mention {
			batch = append(batch, row.Trend())
		}
		if len(batch) == 0 {
			return fmt.Errorf("no trends collected for %s; run 'pivotnote collect' first", day)
		}

		router, err := llm.NewRouterFromConfig(cfg)
		if err != nil {
			return err
		}
		analyzer := intel.NewAnalyzer(router, &llm.Options{
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})

		news := collector.NewNewsSource(cfg.Collection.ContextFeeds)
		headlines, err := news.RecentHeadlines(ctx, cfg.Collection.ContextLimit)
		if err != nil {
			fmt.Printf("Context headlines unavailable: %v\n", err)
		}

		fmt.Printf("Analyzing %d trends for %s...\n", len(batch), day)
		report, _, err := analyzer.GenerateReport(ctx, intel.BuildSummary(day, batch, headlines))
		if err != nil {
			return err
		}

		if err := db.SaveInsights(ctx, day, report); err != nil {
			return err
		}
		if err := db.SaveEntities(ctx, day, trends.ExtractEntities(batch)); err != nil {
			return err
		}

		fmt.Println("\n" + report.ExecutiveSummary)
		for _, region := range []string{trends.RegionIndia, trends.RegionUSA} {
			ri := report.ForRegion(region)
			fmt.Printf("\n%s:\n", region)
			for _, t := range ri.WeatherGrid {
				fmt.Printf("  [%d] %s (%s) — %s\n", t.Slot, t.Theme, t.Category, t.DataSignal)
			}
			for _, a := range ri.Anomalies {
				fmt.Printf("  anomaly: %s (%s)\n", a.Keyword, a.Velocity)
			}
		}
		return nil
	},
}

// --- Assemble Command ---

var assembleCmd = &cobra.Command{
	Use:   "assemble [date]",
	Short: "Assemble a region's 60-second production script",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, _ := cmd.Flags().GetString("region")
		if !trends.ValidRegion(region) {
			return fmt.Errorf("region must be USA or India")
		}

		day := time.Now().UTC().Format("2006-01-02")
		if len(args) == 1 {
			day = args[0]
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		db, err := store.New(cfg.Supabase.URL, cfg.Supabase.Key)
		if err != nil {
			return err
		}

		rows, err := db.InsightsByDate(ctx, day)
		if err != nil {
			return err
		}
		var ri *intel.RegionalIntelligence
		for _, row := range rows {
			if row.Region == region {
				ri = row.Regional()
				break
			}
		}
		if ri == nil {
			return fmt.Errorf("no insights for %s on %s; run 'pivotnote analyze' first", region, day)
		}

		router, err := llm.NewRouterFromConfig(cfg)
		if err != nil {
			return err
		}
		analyzer := intel.NewAnalyzer(router, nil)

		fmt.Printf("Assembling %s script for %s...\n", region, day)
		pkg, err := analyzer.AssembleScript(ctx, region, ri)
		if err != nil {
			return err
		}

		grid, err := json.Marshal(ri.WeatherGrid)
		if err != nil {
			return err
		}
		if err := db.SaveScriptPackage(ctx, day, region, grid, pkg); err != nil {
			return err
		}

		fmt.Printf("\nTitle: %s\n\n%s\n", pkg.YouTubeMetadata.Title, pkg.ScriptAssembly.FullScript())
		return nil
	},
}

func init() {
	assembleCmd.Flags().String("region", "", "region to assemble (USA or India)")
}

// --- Deepdive Command ---

var deepdiveCmd = &cobra.Command{
	Use:   "deepdive [keyword]",
	Short: "Research a trend and write its deep-dive script",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		region, _ := cmd.Flags().GetString("region")
		if !trends.ValidRegion(region) {
			return fmt.Errorf("region must be USA or India")
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
		defer cancel()

		router, err := llm.NewRouterFromConfig(cfg)
		if err != nil {
			return err
		}
		analyzer := intel.NewAnalyzer(router, nil)

		in := prompts.DeepdiveInput{Keyword: args[0], Region: region}

		fmt.Printf("Researching %s (%s)...\n", in.Keyword, in.Region)
		research, raw, err := analyzer.ResearchTrend(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("Lead metric: %s\n", research.LeadMetric)

		pkg, err := analyzer.WriteDeepdiveScript(ctx, raw, in.Keyword, in.Region)
		if err != nil {
			return err
		}

		db, err := store.New(cfg.Supabase.URL, cfg.Supabase.Key)
		switch err {
		case nil:
			if err := db.SaveDeepdive(ctx, raw, research, pkg, "", 0, "", "", ""); err != nil {
				return err
			}
			fmt.Println("Saved for review (needs_finetuning).")
		case store.ErrNotConfigured:
			// fall through to printing
		default:
			return err
		}

		fmt.Printf("\nTitle: %s\n\n%s\n", pkg.YouTubeMetadata.Title, pkg.Script.FullScript())
		return nil
	},
}

func init() {
	deepdiveCmd.Flags().String("region", "", "region of the trend (USA or India)")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("Starting Pivot Note API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  Pivot Note — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (pro: %s, flash: %s)\n",
			cfg.LLM.Primary, cfg.LLM.ProModel, cfg.LLM.FlashModel)
		fmt.Printf("    Regions:       %v (last %dh, top %d)\n",
			cfg.Collection.Regions, cfg.Collection.WindowHours, cfg.Collection.TrendsPerRun)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "not set"
			if k.IsSet {
				status = fmt.Sprintf("set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-18s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
