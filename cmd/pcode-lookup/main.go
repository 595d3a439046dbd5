// Command pcode-lookup resolves admin names and codes to pcodes from the
// command line.
//
// Usage:
//
//	pcode-lookup --admin global_pcodes.csv lookup AFG Kabul "Kabul City"
//	pcode-lookup --admin global_pcodes.csv --config names.yaml lookup --parent AF01 AFG Kabull
//	pcode-lookup --admin https://example.org/global_pcodes.csv check
//	pcode-lookup --admin global_pcodes.csv --formats formats.csv convert YEM YEM030
//
// Admin, format and country info files may be local paths (optionally .gz or
// .bz2) or http(s) URLs, which are downloaded into --data-dir first.
package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andreiashu/pcodes"
	"github.com/andreiashu/pcodes/countryinfo"
	"github.com/andreiashu/pcodes/source"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	admin       string
	config      string
	formats     string
	countryInfo string
	dataDir     string
	countries   []string
	level       int
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           "pcode-lookup",
		Short:         "Resolve admin area names and codes to pcodes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	f := rootCmd.PersistentFlags()
	f.StringVar(&g.admin, "admin", "", "HXL admin units file or URL (required)")
	f.StringVar(&g.config, "config", "", "YAML name mappings, replacements and fuzzy exclusions")
	f.StringVar(&g.formats, "formats", "", "CSV of per-level pcode digit widths")
	f.StringVar(&g.countryInfo, "country-info", "", "geonames countryInfo.txt file or URL for ISO2 prefixes")
	f.StringVar(&g.dataDir, "data-dir", "pcode-data", "directory for downloaded files")
	f.StringSliceVar(&g.countries, "countries", nil, "only load these ISO3 codes")
	f.IntVar(&g.level, "admin-level", 0, "only load this admin level (0 loads all)")
	f.BoolVarP(&g.verbose, "verbose", "v", false, "log matching decisions")
	rootCmd.MarkPersistentFlagRequired("admin")

	rootCmd.AddCommand(newLookupCmd(g))
	rootCmd.AddCommand(newConvertCmd(g))
	rootCmd.AddCommand(newCheckCmd(g))
	rootCmd.AddCommand(newFormatsCmd(g))
	rootCmd.AddCommand(newRulesCmd(g))
	return rootCmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

// fetch returns a local path for loc, downloading it first when it is a URL.
func fetch(ctx context.Context, loc, dataDir string) (string, error) {
	if !strings.HasPrefix(loc, "http://") && !strings.HasPrefix(loc, "https://") {
		return loc, nil
	}
	name := path.Base(strings.SplitN(loc, "?", 2)[0])
	if name == "" || name == "/" || name == "." {
		name = "download"
	}
	local := filepath.Join(dataDir, name)
	if err := source.Download(ctx, loc, local); err != nil {
		return "", err
	}
	return local, nil
}

// loadEngine builds an engine from the global flags.
func loadEngine(ctx context.Context, g *globalFlags, logger *zap.Logger, matchLog *pcodes.MatchLog) (*pcodes.Engine, error) {
	cfg := pcodes.Config{}
	if g.config != "" {
		var err error
		if cfg, err = pcodes.LoadConfig(g.config); err != nil {
			return nil, err
		}
	}

	if g.countryInfo != "" {
		local, err := fetch(ctx, g.countryInfo, g.dataDir)
		if err != nil {
			return nil, fmt.Errorf("fetching country info: %w", err)
		}
		iso2, err := readCountryInfo(local)
		if err != nil {
			return nil, err
		}
		if cfg.CountryISO2 == nil {
			cfg.CountryISO2 = map[string]string{}
		}
		for iso3, code := range iso2 {
			if _, set := cfg.CountryISO2[iso3]; !set {
				cfg.CountryISO2[iso3] = code
			}
		}
	}

	opts := []pcodes.Option{pcodes.WithLogger(logger), pcodes.WithMatchLog(matchLog)}
	if g.formats != "" {
		local, err := fetch(ctx, g.formats, g.dataDir)
		if err != nil {
			return nil, fmt.Errorf("fetching formats: %w", err)
		}
		records, err := readFormats(local)
		if err != nil {
			return nil, err
		}
		opts = append(opts, pcodes.WithPcodeFormats(records...))
	}

	local, err := fetch(ctx, g.admin, g.dataDir)
	if err != nil {
		return nil, fmt.Errorf("fetching admin units: %w", err)
	}
	src := source.File{Path: local}
	if len(g.countries) > 0 {
		src.Options = append(src.Options, source.WithCountries(g.countries...))
	}
	if g.level > 0 {
		src.Options = append(src.Options, source.WithAdminLevel(g.level))
	}
	e, err := pcodes.New(src, cfg, opts...)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded admin units",
		zap.String("file", local),
		zap.Int("units", len(e.Pcodes())),
		zap.Strings("countries", e.Countries()))
	return e, nil
}

func readCountryInfo(file string) (map[string]string, error) {
	rc, err := source.Open(file)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	countries, err := countryinfo.Parse(rc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	return countryinfo.ISO2Map(countries), nil
}

func readFormats(file string) ([]pcodes.FormatRecord, error) {
	rc, err := source.Open(file)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	records, err := source.FormatsCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", file, err)
	}
	return records, nil
}

// withEngine sets up logging and the engine, then runs fn.
func withEngine(cmd *cobra.Command, g *globalFlags, fn func(*pcodes.Engine, *pcodes.MatchLog) error) error {
	logger, err := newLogger(g.verbose)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	matchLog := pcodes.NewMatchLog(logger)
	e, err := loadEngine(cmd.Context(), g, logger, matchLog)
	if err != nil {
		return err
	}
	return fn(e, matchLog)
}

func newLookupCmd(g *globalFlags) *cobra.Command {
	var opts pcodes.LookupOptions
	var report bool
	cmd := &cobra.Command{
		Use:   "lookup COUNTRY NAME_OR_CODE...",
		Short: "Resolve names or codes within a country",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(e *pcodes.Engine, matchLog *pcodes.MatchLog) error {
				if report && opts.LogName == "" {
					opts.LogName = "lookup"
				}
				out := cmd.OutOrStdout()
				for _, input := range args[1:] {
					pcode, exact, err := e.GetPcode(args[0], input, opts)
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "%s\t%s\t%v\n", input, pcode, exact)
				}
				if report {
					for _, lines := range [][]string{matchLog.OutputMatches(), matchLog.OutputIgnored(), matchLog.OutputErrors()} {
						for _, line := range lines {
							fmt.Fprintln(cmd.ErrOrStderr(), line)
						}
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.Parent, "parent", "", "restrict names to children of this pcode (the ISO3 code selects top level)")
	cmd.Flags().BoolVar(&opts.NoFuzzy, "no-fuzzy", false, "disable fuzzy matching")
	cmd.Flags().StringVar(&opts.LogName, "log-name", "", "label for the match report")
	cmd.Flags().BoolVar(&report, "report", false, "print the match report to stderr")
	return cmd
}

func newConvertCmd(g *globalFlags) *cobra.Command {
	var hints []string
	cmd := &cobra.Command{
		Use:   "convert COUNTRY CODE...",
		Short: "Convert pcodes written with another prefix or digit widths",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(e *pcodes.Engine, _ *pcodes.MatchLog) error {
				for _, code := range args[1:] {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", code, e.ConvertPcode(code, args[0], hints...))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&hints, "parent", nil, "parent pcodes used to break ties")
	return cmd
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify every unit resolves by its own pcode and name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(e *pcodes.Engine, _ *pcodes.MatchLog) error {
				if err := e.SelfCheck(); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d units in %d countries OK\n", len(e.Pcodes()), len(e.Countries()))
				return nil
			})
		},
	}
}

func newFormatsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "formats [COUNTRY...]",
		Short: "List the pcode digit widths known per country",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(e *pcodes.Engine, _ *pcodes.MatchLog) error {
				countries := args
				if len(countries) == 0 {
					countries = e.Countries()
				}
				for _, iso3 := range countries {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", strings.ToUpper(iso3), strings.Join(e.PcodeFormats(iso3), " "))
				}
				return nil
			})
		},
	}
}

func newRulesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the configured name mappings and replacements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, g, func(e *pcodes.Engine, _ *pcodes.MatchLog) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, "Name mappings:")
				for _, line := range e.NameMappings() {
					fmt.Fprintf(out, "  %s\n", line)
				}
				fmt.Fprintln(out, "Name replacements:")
				for _, line := range e.NameReplacements() {
					fmt.Fprintf(out, "  %q\n", line)
				}
				return nil
			})
		},
	}
}
