package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
	"go.uber.org/zap"
	"imgpt-cli/internal/config"
	"imgpt-cli/internal/imageapi"
	"imgpt-cli/internal/imgerr"
	"imgpt-cli/internal/interfaces"
	"imgpt-cli/internal/logger"
	"imgpt-cli/internal/orchestrator"
	"imgpt-cli/internal/prompt"
	"imgpt-cli/internal/template"
	"imgpt-cli/pkg/models"
)

// Prompter collects input the command line did not provide
type Prompter interface {
	IsInteractive() bool
	PromptFromClipboard(literal string) (string, error)
	PromptFromStdin() (string, bool, error)
	AskPrompt() (string, error)
	ConfirmReset(path string) (bool, error)
}

// GeneratorFactory builds the image generator for resolved settings
type GeneratorFactory func(settings *config.Settings) interfaces.ImageGenerator

// Deps are the collaborators of an App
type Deps struct {
	FS           afero.Fs
	Store        interfaces.ConfigStore
	LookupEnv    config.LookupEnv
	NewGenerator GeneratorFactory
	Prompter     Prompter
	Logger       *zap.Logger
	Out          io.Writer

	// Sleep replaces the pause between prompts; nil waits for real
	Sleep func(ctx context.Context, d time.Duration) error
}

// App runs the imgpt commands
type App struct {
	fs           afero.Fs
	store        interfaces.ConfigStore
	lookupEnv    config.LookupEnv
	newGenerator GeneratorFactory
	prompter     Prompter
	logger       *zap.Logger
	out          io.Writer
	sleep        func(ctx context.Context, d time.Duration) error

	label lipgloss.Style
	muted lipgloss.Style
	ok    lipgloss.Style
}

// New creates an App from its collaborators
func New(deps Deps) *App {
	a := &App{
		fs:           deps.FS,
		store:        deps.Store,
		lookupEnv:    deps.LookupEnv,
		newGenerator: deps.NewGenerator,
		prompter:     deps.Prompter,
		logger:       deps.Logger,
		out:          deps.Out,
		sleep:        deps.Sleep,
	}
	if a.fs == nil {
		a.fs = afero.NewOsFs()
	}
	if a.lookupEnv == nil {
		a.lookupEnv = os.LookupEnv
	}
	if a.logger == nil {
		a.logger = logger.NewNop()
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.newGenerator == nil {
		a.newGenerator = a.defaultGenerator
	}

	r := lipgloss.NewRenderer(a.out)
	a.label = r.NewStyle().Bold(true)
	a.muted = r.NewStyle().Foreground(lipgloss.Color("245"))
	a.ok = r.NewStyle().Foreground(lipgloss.Color("42"))
	return a
}

func (a *App) defaultGenerator(settings *config.Settings) interfaces.ImageGenerator {
	baseURL, _ := a.lookupEnv(imageapi.BaseURLEnv)
	return imageapi.NewClient(imageapi.Config{
		BaseURL: baseURL,
		APIKey:  settings.APIKey,
	}, a.logger)
}

// Generate runs `imgpt generate`: a single literal prompt, or every prompt file
// in a directory. Every fatal check happens before the first API call.
func (a *App) Generate(ctx context.Context, request *models.GenerateRequest) error {
	cfg := a.store.Load()

	text := strings.TrimSpace(request.Prompt)
	if request.FromClipboard {
		var err error
		if text, err = a.prompter.PromptFromClipboard(text); err != nil {
			return err
		}
	}
	if text != "" && request.Dir != "" {
		return fmt.Errorf("cannot use both a prompt and --dir")
	}

	settings, err := config.ResolveWithoutCredential(overridesFrom(request), cfg)
	if err != nil {
		return err
	}

	source := prompt.NewSource(a.fs)

	// A literal prompt wins over a configured prompt directory
	dir := ""
	if text == "" {
		dir = settings.PromptsDir
	}
	if dir != "" {
		info, statErr := a.fs.Stat(dir)
		if statErr != nil {
			return imgerr.NewDirectoryNotFoundError(dir, statErr)
		}
		if !info.IsDir() {
			return imgerr.NewDirectoryNotFoundError(dir, fmt.Errorf("%s: not a directory", dir))
		}
	}

	if err := config.CheckModelSize(settings.Model, settings.Size); err != nil {
		return err
	}
	if settings.APIKey, err = config.ResolveAPIKey(request.APIKey, cfg, a.lookupEnv); err != nil {
		return err
	}

	if text == "" && dir == "" {
		if text, err = a.collectPrompt(); err != nil {
			return err
		}
	}

	templater, err := template.NewProcessor(a.fs, settings.PromptTemplate)
	if err != nil {
		return err
	}

	orch := orchestrator.New(orchestrator.Options{
		Generator: a.newGenerator(settings),
		Source:    source,
		Writer:    orchestrator.NewOutputHandler(a.fs),
		Templater: templater,
		Logger:    a.logger,
		Out:       a.out,
		Sleep:     a.sleep,
	})

	a.logger.Debug("Resolved settings",
		zap.String("model", settings.Model),
		zap.String("size", settings.Size),
		zap.String("quality", settings.Quality),
		zap.String("format", settings.Format),
		zap.Duration("delay", settings.Delay),
		zap.Bool("skip_existing", settings.SkipExisting))

	if dir == "" {
		_, err := orch.RunSingle(ctx, text, request.Name, settings)
		return err
	}

	summary, err := orch.RunDirectory(ctx, dir, settings)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return imgerr.NewRunFailedError(summary.Failed, summary.Total)
	}
	return nil
}

// collectPrompt reads a piped prompt, or asks for one on a terminal
func (a *App) collectPrompt() (string, error) {
	if text, ok, err := a.prompter.PromptFromStdin(); ok || err != nil {
		if err == nil && text == "" {
			err = errors.New("prompt read from stdin is empty")
		}
		return text, err
	}

	if a.prompter.IsInteractive() {
		return a.prompter.AskPrompt()
	}
	return "", errors.New("no prompt given; pass a prompt, --dir, or set default_prompts_dir")
}

func overridesFrom(request *models.GenerateRequest) config.Overrides {
	return config.Overrides{
		APIKey:         request.APIKey,
		Model:          request.Model,
		Size:           request.Size,
		Quality:        request.Quality,
		Style:          request.Style,
		Format:         request.Format,
		OutputDir:      request.OutputDir,
		PromptsDir:     request.Dir,
		PromptTemplate: request.PromptTemplate,
		Delay:          request.Delay,
		SkipExisting:   request.SkipExisting,
	}
}

// ListPrompts prints the prompt files of a directory with their output paths
func (a *App) ListPrompts(request *models.ListRequest) error {
	settings, err := config.ResolveWithoutCredential(config.Overrides{
		PromptsDir: request.Dir,
		OutputDir:  request.OutputDir,
		Format:     request.Format,
	}, a.store.Load())
	if err != nil {
		return err
	}
	if settings.PromptsDir == "" {
		return errors.New("no prompt directory; pass --dir or set default_prompts_dir")
	}

	files, err := prompt.NewSource(a.fs).Discover(settings.PromptsDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Prompts location: %s\n\n", contractPath(settings.PromptsDir))
	if len(files) == 0 {
		fmt.Fprintln(a.out, "(none found)")
		return nil
	}

	writer := orchestrator.NewOutputHandler(a.fs)
	existing := 0
	for _, file := range files {
		output := prompt.OutputPath(file, settings.OutputDir, settings.Format)
		status := a.muted.Render("pending")
		if writer.Exists(output) {
			status = a.ok.Render("exists")
			existing++
		}
		fmt.Fprintf(a.out, "  - %s -> %s [%s]\n", filepath.Base(file), contractPath(output), status)
	}

	fmt.Fprintf(a.out, "\n%d prompt files, %d images already generated\n", len(files), existing)
	return nil
}

// ShowConfig prints every persisted key, with the API key masked
func (a *App) ShowConfig() error {
	cfg := a.store.Load()

	fmt.Fprintf(a.out, "%s %s\n\n", a.label.Render("Config file:"), contractPath(a.store.Path()))
	for _, key := range config.Keys {
		value, _ := cfg.Get(key)
		if key == config.KeyAPIKey {
			value = config.MaskSecret(value)
			if value == "" {
				if env, ok := a.lookupEnv(config.APIKeyEnv); ok && strings.TrimSpace(env) != "" {
					value = config.MaskSecret(strings.TrimSpace(env)) + " (from " + config.APIKeyEnv + ")"
				}
			}
		}
		if value == "" {
			value = a.muted.Render("(not set)")
		}
		fmt.Fprintf(a.out, "%-20s = %s\n", key, value)
	}
	return nil
}

// SetConfig persists one key
func (a *App) SetConfig(key, value string) error {
	key = strings.ToLower(strings.TrimSpace(key))
	cfg, err := a.store.Update(map[string]any{key: value})
	if err != nil {
		return err
	}

	display, _ := cfg.Get(key)
	if key == config.KeyAPIKey {
		display = config.MaskSecret(display)
	}
	fmt.Fprintf(a.out, "%s %s = %s\n", a.ok.Render("Set"), key, display)
	return nil
}

// ResetConfig restores the built-in defaults, asking first unless confirmed
func (a *App) ResetConfig(confirmed bool) error {
	if !confirmed {
		ok, err := a.prompter.ConfirmReset(contractPath(a.store.Path()))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(a.out, "Reset cancelled")
			return nil
		}
	}

	if _, err := a.store.Reset(); err != nil {
		return fmt.Errorf("failed to reset configuration: %w", err)
	}
	fmt.Fprintf(a.out, "%s %s to built-in defaults\n", a.ok.Render("Reset"), contractPath(a.store.Path()))
	return nil
}

// ConfigPath prints where the configuration is stored
func (a *App) ConfigPath() error {
	fmt.Fprintln(a.out, a.store.Path())
	return nil
}

// contractPath converts a full path back to use ~ for the home directory
func contractPath(path string) string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return path
	}

	if path == homeDir {
		return "~"
	}
	if strings.HasPrefix(path, homeDir+string(filepath.Separator)) {
		return "~" + path[len(homeDir):]
	}
	return path
}
