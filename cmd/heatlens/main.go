// heatlens — index return heatmap dashboard for NSE indices
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/finlens/heatlens/api"
	"github.com/finlens/heatlens/internal/config"
	"github.com/finlens/heatlens/internal/heatmap"
	"github.com/finlens/heatlens/internal/report"
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
	Use:   "heatlens",
	Short: "heatlens — monthly return heatmaps for NSE indices",
	Long: `heatlens
Serves an interactive dashboard of month-over-month return heatmaps
for NSE indices, backed by the heatmap data service. Also useful as a
CLI for pulling index catalogs and heatmap grids into the terminal.`,
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
	rootCmd.PersistentFlags().String("backend", "", "backend base URL override")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(indicesCmd)
	rootCmd.AddCommand(heatmapCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
}

// newClient builds a heatmap client from config plus the --backend
// override.
func newClient(cmd *cobra.Command) *heatmap.Client {
	baseURL := cfg.BackendBaseURL()
	if override, _ := cmd.Flags().GetString("backend"); override != "" {
		baseURL = override
	}
	timeout := heatmap.DefaultTimeout
	if cfg.Backend.TimeoutSec > 0 {
		timeout = time.Duration(cfg.Backend.TimeoutSec) * time.Second
	}
	return heatmap.NewClient(baseURL, timeout)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("heatlens %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return fmt.Errorf("failed to build server: %w", err)
		}
		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI {
			srv.SetServeUI(false)
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 heatlens serving on http://%s (backend: %s)\n", addr, cfg.BackendBaseURL())
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Bool("no-ui", false, "serve the API only, without the embedded web UI")
}

// --- Indices Command ---

var indicesCmd = &cobra.Command{
	Use:   "indices",
	Short: "List the available indices",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient(cmd)

		indices, err := client.FetchIndices(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("📋 %d indices available:\n", len(indices))
		for _, name := range indices {
			fmt.Printf("  %s\n", name)
		}
		return nil
	},
}

// --- Heatmap Command ---

var heatmapCmd = &cobra.Command{
	Use:   "heatmap [index]",
	Short: "Print the return heatmap for an index",
	Long: `Fetch and print the month-over-month return heatmap for one index.

Examples:
  heatlens heatmap "NIFTY 50"
  heatlens heatmap "NIFTY BANK" --period 6M`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		periodStr, _ := cmd.Flags().GetString("period")
		period, err := heatmap.ParsePeriod(periodStr)
		if err != nil {
			return err
		}

		client := newClient(cmd)
		payload, err := client.FetchHeatmap(context.Background(), args[0], period)
		if err != nil {
			return err
		}

		if svgPath, _ := cmd.Flags().GetString("svg"); svgPath != "" {
			svgCfg := report.DefaultSVGConfig()
			svgCfg.Title = fmt.Sprintf("%s — %s", payload.Index, period)
			svg := report.RenderHeatmapSVG(payload, svgCfg)
			if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
				return fmt.Errorf("failed to write SVG: %w", err)
			}
			fmt.Printf("🖼  Wrote %s\n", svgPath)
			return nil
		}

		fmt.Printf("🔥 %s — %s\n\n", payload.Index, period)
		fmt.Print(report.RenderHeatmap(payload))
		return nil
	},
}

func init() {
	heatmapCmd.Flags().String("period", "", "forward return period (1M, 3M, 6M, 1Y, 2Y, 3Y, 4Y)")
	heatmapCmd.Flags().String("svg", "", "write the heatmap as an SVG file instead of printing")
}

// --- Scan Command ---

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Rank all indices by recent average monthly profit",
	Long: `Fetch heatmaps for every index concurrently and rank them by the
trailing three-year average monthly profit.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		periodStr, _ := cmd.Flags().GetString("period")
		period, err := heatmap.ParsePeriod(periodStr)
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		client := newClient(cmd)
		ctx := context.Background()

		indices, err := client.FetchIndices(ctx)
		if err != nil {
			return err
		}
		if limit > 0 && limit < len(indices) {
			indices = indices[:limit]
		}

		fmt.Printf("🔎 Scanning %d indices (%s)...\n\n", len(indices), period)
		payloads, err := client.FetchHeatmaps(ctx, indices, period)
		if err != nil {
			return err
		}

		type ranked struct {
			index string
			avg   float64
			has   bool
		}
		rows := make([]ranked, 0, len(payloads))
		for name, p := range payloads {
			r := ranked{index: name}
			if p.AvgMonthlyProfits3Y != nil {
				r.avg = *p.AvgMonthlyProfits3Y
				r.has = true
			}
			rows = append(rows, r)
		}
		sort.Slice(rows, func(i, j int) bool {
			if rows[i].has != rows[j].has {
				return rows[i].has
			}
			if rows[i].avg != rows[j].avg {
				return rows[i].avg > rows[j].avg
			}
			return rows[i].index < rows[j].index
		})

		for i, r := range rows {
			if !r.has {
				fmt.Printf("  %2d. %-30s n/a\n", i+1, r.index)
				continue
			}
			fmt.Printf("  %2d. %-30s %+.2f%%\n", i+1, r.index, r.avg*100)
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().String("period", "", "forward return period (1M, 3M, 6M, 1Y, 2Y, 3Y, 4Y)")
	scanCmd.Flags().Int("limit", 0, "scan only the first N indices")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and backend reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newClient(cmd)

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  heatlens — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Printf("  Backend:     %s (mode: %s)\n", client.BaseURL(), cfg.Backend.Mode)
		fmt.Printf("  API Server:  %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		if err := client.Ping(context.Background()); err != nil {
			fmt.Printf("  Reachability: ❌ %v\n", err)
		} else {
			fmt.Println("  Reachability: ✅ backend is up")
		}
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
