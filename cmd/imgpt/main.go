package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"imgpt-cli/internal/app"
	"imgpt-cli/pkg/models"
)

// Build-time variables injected via ldflags
var (
	version   = "0.1.0"
	commit    = "unknown"
	date      = "unknown"
	goVersion = runtime.Version()
)

var rootCmd = &cobra.Command{
	Use:   "imgpt [prompt]",
	Short: "Generate images from prompt files with the OpenAI Images API",
	Long: `imgpt turns text prompts into images. Give it a prompt as an argument, or a
directory of .prompt, .txt and .md files with --dir, and it writes one image per
prompt to the output directory.

Defaults for the model, size, quality, style, format, directories, delay and
skip-existing behaviour live in a config file managed with 'imgpt config'. Flags
override the config; the API key falls back to OPENAI_API_KEY.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if versionFlag, _ := cmd.Flags().GetBool("version"); versionFlag {
			printVersion(cmd.OutOrStdout())
			return nil
		}
		return runGenerate(cmd, args)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [prompt]",
	Short: "Generate images from a prompt or a prompt directory",
	Long: `Generate one image from a literal prompt, or one image per prompt file in a
directory. With --dir, files are processed in name order with a pause of
--delay seconds between requests; a failing prompt is reported and the run
continues, exiting with status 1 at the end.

Without a prompt or --dir, the configured default_prompts_dir is used, then a
prompt piped on stdin, then an interactive question when attached to a terminal.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGenerate,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List prompt files and their output images",
	Long:  "List the prompt files of the prompt directory with the image path each one generates and whether that image already exists.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		request := &models.ListRequest{}
		request.Dir, _ = cmd.Flags().GetString("dir")
		request.OutputDir, _ = cmd.Flags().GetString("output")
		request.Format, _ = cmd.Flags().GetString("format")

		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		return a.ListPrompts(request)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the persisted defaults",
	Long:  "Show, set or reset the persisted configuration. Keys: openai_api_key, default_model, default_size, default_quality, default_style, default_format, default_prompts_dir, default_output_dir, default_delay, skip_existing, prompt_template, log_file.",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		return a.ShowConfig()
	},
}

var configSetCmd = &cobra.Command{
	Use:     "set <key> <value>",
	Short:   "Set one configuration key",
	Example: "  imgpt config set default_model dall-e-3\n  imgpt config set default_size 1792x1024\n  imgpt config set skip_existing true",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		return a.SetConfig(args[0], args[1])
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in defaults",
	Long:  "Overwrite the configuration file with the built-in defaults. Asks for confirmation unless --yes is given.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		return a.ResetConfig(yes)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer cleanup()
		return a.ConfigPath()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print detailed version information including build version, commit, date, and platform details.",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configPathCmd)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path (default <user config dir>/imgpt/config.toml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "log debug details to stderr")
	rootCmd.Flags().BoolP("version", "v", false, "print version information")

	// The root command generates too
	addGenerateFlags(rootCmd.Flags())
	addGenerateFlags(generateCmd.Flags())

	listCmd.Flags().StringP("dir", "d", "", "prompt directory (overrides default_prompts_dir)")
	listCmd.Flags().StringP("output", "o", "", "output directory (overrides default_output_dir)")
	listCmd.Flags().StringP("format", "f", "", "image format: png, jpeg or webp")

	configResetCmd.Flags().BoolP("yes", "y", false, "reset without asking for confirmation")
}

func addGenerateFlags(flags *pflag.FlagSet) {
	flags.StringP("dir", "d", "", "generate one image per prompt file in this directory")
	flags.StringP("model", "m", "", "image model, e.g. gpt-image-1, dall-e-3, dall-e-2")
	flags.StringP("size", "s", "", "image size as <width>x<height>, e.g. 1024x1024")
	flags.StringP("quality", "q", "", "image quality, e.g. high, hd, standard")
	flags.String("style", "", "image style for dall-e-3: vivid or natural")
	flags.StringP("format", "f", "", "image format: png, jpeg or webp")
	flags.StringP("output", "o", "", "output directory (default: current directory for a single prompt)")
	flags.Float64("delay", 0, "seconds to wait between prompts in a directory run")
	flags.Bool("skip-existing", false, "skip prompts whose image already exists")
	flags.StringP("template", "t", "", "prompt template text, or @file, applied to every prompt")
	flags.StringP("name", "n", "", "output file name for a single prompt")
	flags.BoolP("clipboard", "b", false, "read the prompt from the clipboard (appended to a given prompt)")
	flags.String("api-key", "", "OpenAI API key (overrides config and OPENAI_API_KEY)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	request, err := buildRequestFromFlags(cmd, args)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	a, cleanup, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	return a.Generate(cmd.Context(), request)
}

func newApp(cmd *cobra.Command) (*app.App, func(), error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	return app.Bootstrap(app.Options{ConfigPath: configPath, Verbose: verbose})
}

// buildRequestFromFlags constructs a GenerateRequest from command flags and arguments
func buildRequestFromFlags(cmd *cobra.Command, args []string) (*models.GenerateRequest, error) {
	request := models.NewGenerateRequest()

	if len(args) > 0 {
		request.Prompt = strings.TrimSpace(args[0])
	}

	var err error
	strFlags := []struct {
		name   string
		target *string
	}{
		{"dir", &request.Dir},
		{"model", &request.Model},
		{"size", &request.Size},
		{"quality", &request.Quality},
		{"style", &request.Style},
		{"format", &request.Format},
		{"output", &request.OutputDir},
		{"template", &request.PromptTemplate},
		{"name", &request.Name},
		{"api-key", &request.APIKey},
	}
	for _, f := range strFlags {
		if *f.target, err = cmd.Flags().GetString(f.name); err != nil {
			return nil, fmt.Errorf("invalid %s flag: %w", f.name, err)
		}
	}

	if request.FromClipboard, err = cmd.Flags().GetBool("clipboard"); err != nil {
		return nil, fmt.Errorf("invalid clipboard flag: %w", err)
	}

	// Only explicit flags override the config, so 0 and false still count
	if cmd.Flags().Changed("delay") {
		delay, err := cmd.Flags().GetFloat64("delay")
		if err != nil {
			return nil, fmt.Errorf("invalid delay flag: %w", err)
		}
		if delay < 0 {
			return nil, fmt.Errorf("--delay must not be negative")
		}
		request.Delay = &delay
	}
	if cmd.Flags().Changed("skip-existing") {
		skip, err := cmd.Flags().GetBool("skip-existing")
		if err != nil {
			return nil, fmt.Errorf("invalid skip-existing flag: %w", err)
		}
		request.SkipExisting = &skip
	}

	return request, nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "imgpt version %s\n", version)
	fmt.Fprintf(w, "  commit: %s\n", commit)
	fmt.Fprintf(w, "  built: %s\n", date)
	fmt.Fprintf(w, "  go version: %s\n", goVersion)
	fmt.Fprintf(w, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func main() {
	// Disable usage on error to show only our custom error messages
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
