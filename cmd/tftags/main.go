// Command tftags generates ctags-compatible tags files for Terraform
// provider resource and data source definitions, for use with Geany
// and other editors that read tags files.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sevigo/tftags/config"
	"github.com/sevigo/tftags/ctags"
	"github.com/sevigo/tftags/gitutil"
	"github.com/sevigo/tftags/lockfile"
	"github.com/sevigo/tftags/pipeline"
	"github.com/sevigo/tftags/scan"
	"github.com/sevigo/tftags/schema"
	"github.com/sevigo/tftags/terraform"
)

var (
	// Persistent flags
	configPath string
	verbose    bool

	// generate flags
	workingDir   string
	terraformCmd string
	ctagsCmd     string
	outputDir    string
	providers    []string
	keepStubs    bool
	nativeOnly   bool

	// scan flags
	scanOut     string
	scanInclude []string
	scanExclude []string
	scanRepo    string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "tftags",
	Short: "Generate tags files for Terraform providers",
	Long: `tftags produces ctags-compatible tags files for Terraform provider
resource and data source definitions.

The generate command downloads the configured provider schemas with
terraform (or opentofu) and indexes every resource and data source
type. The scan command indexes an existing Terraform workspace or
module tree directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlagOverrides(cmd)
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Download provider schemas and generate one tags file per provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		runner := terraform.NewRunner(cfg.WorkingDir,
			terraform.WithCommand(cfg.TerraformCommand),
			terraform.WithLogger(logger))

		generator := pipeline.NewGenerator(cfg, runner, selectIndexer(ctx),
			pipeline.WithLogger(logger),
			pipeline.WithKeepStubs(keepStubs))

		written, err := generator.Run(ctx)
		if err != nil {
			return err
		}
		for _, path := range written {
			fmt.Println(path)
		}
		return nil
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "Generate a tags file for an existing Terraform tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		if scanRepo != "" {
			dir, cleanup, err := gitutil.CloneTemp(ctx, logger, scanRepo)
			if err != nil {
				return err
			}
			defer cleanup()
			root = dir
		}

		scanner := scan.New(root,
			scan.WithLogger(logger),
			scan.WithPatterns(cfg.Scan.Include, cfg.Scan.Exclude))

		tags, err := scanner.Scan(ctx)
		if err != nil {
			return err
		}
		if len(tags) == 0 {
			logger.Warn("No Terraform symbols found", "root", root)
		}

		if err := ctags.WriteFile(scanOut, tags); err != nil {
			return err
		}
		fmt.Println(scanOut)
		return nil
	},
}

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "Print the configured providers and their locked versions",
	RunE: func(cmd *cobra.Command, args []string) error {
		versions := map[string]string{}
		locks, err := lockfile.Load(cfg.WorkingDir)
		if err == nil {
			for source, lock := range locks {
				versions[source] = lock.VersionString
			}
		} else {
			logger.Debug("No lock file available", "error", err)
		}

		for name, source := range cfg.Providers {
			address := "registry.terraform.io/" + source
			version := versions[address]
			if version == "" {
				version = "unknown"
			}
			fmt.Printf("%s\t%s\t%s\n", name, source, version)
		}
		return nil
	},
}

// selectIndexer prefers the external ctags binary and falls back to
// the built-in writer when it is missing or disabled.
func selectIndexer(ctx context.Context) schema.Indexer {
	if !nativeOnly {
		runner := ctags.NewRunner(cfg.CtagsCommand, ctags.WithLogger(logger))
		if runner.Available(ctx) {
			return runner
		}
		logger.Warn("ctags binary not found, using built-in indexer", "command", cfg.CtagsCommand)
	}
	return ctags.NewNative(logger)
}

// applyFlagOverrides copies explicitly set flags over the loaded
// configuration.
func applyFlagOverrides(cmd *cobra.Command) {
	if workingDir != "" {
		cfg.WorkingDir = workingDir
	}
	if terraformCmd != "" {
		cfg.TerraformCommand = terraformCmd
	}
	if ctagsCmd != "" {
		cfg.CtagsCommand = ctagsCmd
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if len(providers) > 0 {
		set := make(map[string]string, len(providers))
		for _, entry := range providers {
			name, source, ok := strings.Cut(entry, "=")
			if !ok || name == "" || source == "" {
				logger.Warn("Ignoring malformed --provider value, want name=source", "value", entry)
				continue
			}
			set[name] = source
		}
		if len(set) > 0 {
			cfg.Providers = set
		}
	}
	if cmd.Flags().Changed("include") {
		cfg.Scan.Include = scanInclude
	}
	if cmd.Flags().Changed("exclude") {
		cfg.Scan.Exclude = scanExclude
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/tftags/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	generateCmd.Flags().StringVar(&workingDir, "working-dir", "", "directory for terraform runs and intermediate files")
	generateCmd.Flags().StringVar(&terraformCmd, "terraform", "", "terraform binary (opentofu works as well)")
	generateCmd.Flags().StringVar(&ctagsCmd, "ctags", "", "universal-ctags binary")
	generateCmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for generated tags files (default working dir)")
	generateCmd.Flags().StringArrayVar(&providers, "provider", nil, "provider as name=source, replaces the configured set (repeatable)")
	generateCmd.Flags().BoolVar(&keepStubs, "keep-stubs", false, "keep the synthetic per-provider configs")
	generateCmd.Flags().BoolVar(&nativeOnly, "native", false, "always use the built-in indexer instead of ctags")

	scanCmd.Flags().StringVar(&scanOut, "out", "tags", "output tags file")
	scanCmd.Flags().StringSliceVar(&scanInclude, "include", nil, "include glob, relative to the scan root (repeatable)")
	scanCmd.Flags().StringSliceVar(&scanExclude, "exclude", nil, "exclude glob, relative to the scan root (repeatable)")
	scanCmd.Flags().StringVar(&scanRepo, "repo", "", "git repository URL to clone and scan instead of a local directory")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(providersCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
