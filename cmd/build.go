package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ifews/nsurplus/internal/boundary"
	"github.com/ifews/nsurplus/internal/config"
	"github.com/ifews/nsurplus/internal/export"
	"github.com/ifews/nsurplus/internal/fetcher"
	"github.com/ifews/nsurplus/internal/nrate"
	"github.com/ifews/nsurplus/internal/pipeline"
	"github.com/ifews/nsurplus/internal/store"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the county nitrogen surplus panel",
	Long:  "Fetches animal and crop statistics, fills and reconciles the panel, joins fertilizer rates, computes the nitrogen balance and writes the configured outputs.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("command", "build"))

		applyBuildFlags(cmd, cfg)
		if err := cfg.Validate(config.ModeBuild); err != nil {
			return err
		}

		httpFetcher := newHTTPFetcher(cfg)
		client, closeCache, err := newQuickStats(ctx, cfg, httpFetcher)
		if err != nil {
			return eris.Wrap(err, "build: open response cache")
		}
		defer closeCache()

		var (
			sink pipeline.Sink
			runs pipeline.RunRecorder
		)
		if cfg.Store.Driver == "postgres" {
			pool, err := storePool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			sink = store.NewPanelStore(pool)
			runs = store.NewRunLog(pool)
		}

		p := pipeline.New(client, nrate.FileSource(cfg.NRate.Path), sink, runs, pipeline.Options{
			State:      cfg.QuickStats.State,
			CutoffYear: cfg.Panel.CutoffYear,
			Reference:  cfg.Panel.Reference,
		})
		res, err := p.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "build")
		}

		outputs, err := writeOutputs(ctx, cfg, res, httpFetcher)
		if err != nil {
			return err
		}

		reportPath, _ := cmd.Flags().GetString("report")
		if reportPath == "" {
			reportPath = filepath.Join(cfg.Output.Dir, "report.yaml")
		}
		report := export.NewReport(res.RunID, cfg.QuickStats.State, res.Panel, res.Issues)
		report.StartedAt = res.StartedAt
		report.FinishedAt = time.Now().UTC()
		report.Outputs = outputs
		if err := writeFile(reportPath, func(w io.Writer) error { return export.WriteReport(w, report) }); err != nil {
			return err
		}

		log.Info("build complete",
			zap.String("run_id", res.RunID),
			zap.Int("issues", len(res.Issues)),
			zap.Strings("outputs", outputs),
		)
		formatBuildSummary(os.Stdout, res, append(outputs, reportPath))
		return nil
	},
}

func init() {
	buildCmd.Flags().Bool("no-store", false, "skip persistence even if store.driver is postgres")
	buildCmd.Flags().String("out", "", "output directory (overrides output.dir)")
	buildCmd.Flags().StringSlice("format", nil, "output formats: csv, long, geojson (overrides output.formats)")
	buildCmd.Flags().String("report", "", "path for the YAML run report (default <out>/report.yaml)")
	rootCmd.AddCommand(buildCmd)
}

// applyBuildFlags lets command-line flags override the loaded config.
func applyBuildFlags(cmd *cobra.Command, c *config.Config) {
	if noStore, _ := cmd.Flags().GetBool("no-store"); noStore {
		c.Store.Driver = "none"
	}
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		c.Output.Dir = out
	}
	if formats, _ := cmd.Flags().GetStringSlice("format"); len(formats) > 0 {
		c.Output.Formats = formats
	}
}

// outputPath names the file written for format under dir.
func outputPath(dir, state, format string) string {
	base := "nsurplus_" + strings.ToLower(strings.ReplaceAll(state, " ", "_"))
	switch format {
	case config.FormatLongCSV:
		return filepath.Join(dir, base+"_long.csv")
	case config.FormatGeoJSON:
		return filepath.Join(dir, base+".geojson")
	default:
		return filepath.Join(dir, base+".csv")
	}
}

// writeOutputs writes every configured format and returns the paths written.
func writeOutputs(ctx context.Context, c *config.Config, res *pipeline.Result, f fetcher.Fetcher) ([]string, error) {
	var written []string
	vars := res.Panel.Vars()
	for _, format := range c.Output.Formats {
		format = strings.ToLower(format)
		path := outputPath(c.Output.Dir, c.QuickStats.State, format)

		var write func(io.Writer) error
		switch format {
		case config.FormatCSV:
			write = func(w io.Writer) error { return export.WriteCSV(w, res.Panel, vars) }
		case config.FormatLongCSV:
			write = func(w io.Writer) error { return export.WriteLongCSV(w, res.Panel) }
		case config.FormatGeoJSON:
			bounds, err := loadBoundaries(ctx, c, f)
			if err != nil {
				return written, err
			}
			write = func(w io.Writer) error { return export.WriteGeoJSON(w, res.Panel, bounds, vars) }
		default:
			return written, eris.Errorf("build: unknown output format %q", format)
		}

		if err := writeFile(path, write); err != nil {
			return written, err
		}
		zap.L().Info("output written", zap.String("format", format), zap.String("path", path))
		written = append(written, path)
	}
	return written, nil
}

// loadBoundaries reads county polygons from boundary.path, downloading the
// configured archive into the output directory when no path is set.
func loadBoundaries(ctx context.Context, c *config.Config, f fetcher.Fetcher) (boundary.Boundaries, error) {
	path := c.Boundary.Path
	if path == "" {
		var err error
		path, err = boundary.Download(ctx, f, c.Boundary.URL, filepath.Join(c.Output.Dir, "boundaries"))
		if err != nil {
			return nil, err
		}
	}
	return boundary.LoadShapefile(path, boundary.Options{
		NameField: c.Boundary.NameField,
		StateFIPS: c.Boundary.StateFIPS,
	})
}

// writeFile creates path (and its directory) and fills it with write.
func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "create dir for %s", path)
	}
	out, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(out); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(out.Close(), "close %s", path)
}

// formatBuildSummary writes a short human-readable summary of res to out.
func formatBuildSummary(out io.Writer, res *pipeline.Result, outputs []string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	s := res.Stats
	_, _ = fmt.Fprintf(w, "Run:\t%s\n", res.RunID)
	_, _ = fmt.Fprintf(w, "Counties:\t%d\n", s.Counties)
	_, _ = fmt.Fprintf(w, "Years:\t%d-%d\n", s.FirstYear, s.LastYear)
	_, _ = fmt.Fprintf(w, "Rows:\t%d\n", s.RatedRows)
	if s.CellsWritten > 0 || s.BalanceRows > 0 {
		_, _ = fmt.Fprintf(w, "Stored:\t%d cells, %d balance rows\n", s.CellsWritten, s.BalanceRows)
	}
	_, _ = fmt.Fprintf(w, "Issues:\t%d\n", len(res.Issues))
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", s.Duration.Round(time.Millisecond))
	for _, o := range outputs {
		_, _ = fmt.Fprintf(w, "Output:\t%s\n", o)
	}
	_ = w.Flush()
}
