package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"imgpt-cli/internal/config"
	"imgpt-cli/internal/imgerr"
	"imgpt-cli/internal/interfaces"
	"imgpt-cli/internal/logger"
	"imgpt-cli/internal/prompt"
)

// Orchestrator coordinates prompt reading, generation and image writing
type Orchestrator struct {
	generator interfaces.ImageGenerator
	source    interfaces.PromptSource
	writer    interfaces.ImageWriter
	templater interfaces.PromptTemplater
	logger    *zap.Logger
	report    *reporter
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
	getwd     func() (string, error)
}

// Options carries the collaborators of an Orchestrator. Only Generator,
// Source and Writer are required.
type Options struct {
	Generator interfaces.ImageGenerator
	Source    interfaces.PromptSource
	Writer    interfaces.ImageWriter
	Templater interfaces.PromptTemplater
	Logger    *zap.Logger
	Out       io.Writer
	Sleep     func(ctx context.Context, d time.Duration) error
	Now       func() time.Time
}

// Summary counts the outcome of a directory run
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Failures  []Failure
}

// Failure records why one prompt file failed
type Failure struct {
	Path string
	Err  error
}

// New creates a new orchestrator from its collaborators
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		generator: opts.Generator,
		source:    opts.Source,
		writer:    opts.Writer,
		templater: opts.Templater,
		logger:    opts.Logger,
		sleep:     opts.Sleep,
		now:       opts.Now,
		getwd:     os.Getwd,
	}
	if o.templater == nil {
		o.templater = passthrough{}
	}
	if o.logger == nil {
		o.logger = logger.NewNop()
	}
	if o.sleep == nil {
		o.sleep = sleepContext
	}
	if o.now == nil {
		o.now = time.Now
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	o.report = newReporter(out)
	return o
}

// RunSingle generates one image for a literal prompt and returns where it was written.
// The file is named after name, or image-<UTC timestamp> when name is empty.
func (o *Orchestrator) RunSingle(ctx context.Context, text, name string, settings *config.Settings) (string, error) {
	outputDir := settings.OutputDir
	if outputDir == "" {
		cwd, err := o.getwd()
		if err != nil {
			return "", fmt.Errorf("failed to determine working directory: %w", err)
		}
		outputDir = cwd
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "image-" + o.now().UTC().Format("20060102-150405")
	}
	outputPath := prompt.OutputPath(name, outputDir, settings.Format)

	if err := o.generate(ctx, text, outputPath, settings); err != nil {
		o.report.failed(outputPath, err)
		return "", err
	}

	o.report.saved(outputPath)
	return outputPath, nil
}

// RunDirectory generates one image per prompt file in dir, in discovery order.
// Per-file failures are reported and counted without stopping the run; only a
// missing directory or a cancelled context returns an error.
func (o *Orchestrator) RunDirectory(ctx context.Context, dir string, settings *config.Settings) (*Summary, error) {
	files, err := o.source.Discover(dir)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Total: len(files)}
	if len(files) == 0 {
		o.report.empty(dir)
		return summary, nil
	}

	o.logger.Info("Processing prompt directory",
		zap.String("dir", dir),
		zap.Int("files", len(files)),
		zap.String("model", settings.Model))

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outputPath := prompt.OutputPath(file, settings.OutputDir, settings.Format)
		o.report.progress(i+1, len(files), file)

		if settings.SkipExisting && o.writer.Exists(outputPath) {
			o.logger.Debug("Skipping existing image", zap.String("output", outputPath))
			o.report.skipped(outputPath)
			summary.Skipped++
			continue
		}

		if err := o.processFile(ctx, file, outputPath, settings); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return summary, ctxErr
			}
			o.logger.Warn("Prompt failed",
				zap.String("file", file),
				zap.NamedError("kind", imgerr.KindOf(err)),
				zap.Error(err))
			o.report.failed(file, err)
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{Path: file, Err: err})
		} else {
			o.report.saved(outputPath)
			summary.Succeeded++
		}

		if i < len(files)-1 && settings.Delay > 0 {
			if err := o.sleep(ctx, settings.Delay); err != nil {
				return summary, err
			}
		}
	}

	o.report.summary(summary)
	return summary, nil
}

func (o *Orchestrator) processFile(ctx context.Context, file, outputPath string, settings *config.Settings) error {
	text, err := o.source.Read(file)
	if err != nil {
		return err
	}
	return o.generate(ctx, text, outputPath, settings)
}

// generate renders the prompt template, calls the generator and writes the image
func (o *Orchestrator) generate(ctx context.Context, text, outputPath string, settings *config.Settings) error {
	stem := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	rendered, err := o.templater.Render(interfaces.TemplateData{
		Prompt:  text,
		Name:    stem,
		Model:   settings.Model,
		Size:    settings.Size,
		Quality: settings.Quality,
		Style:   settings.Style,
	})
	if err != nil {
		return fmt.Errorf("prompt template: %w", err)
	}

	start := o.now()
	data, err := o.generator.Generate(ctx, rendered, interfaces.GenerationParams{
		Model:   settings.Model,
		Size:    settings.Size,
		Quality: settings.Quality,
		Style:   settings.Style,
		Format:  settings.Format,
	})
	if err != nil {
		return imgerr.NewGenerationError(stem, err)
	}
	if len(data) == 0 {
		return imgerr.NewGenerationError(stem, errors.New("empty image"))
	}

	if err := o.writer.Write(outputPath, data); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}

	o.logger.Debug("Image written",
		zap.String("output", outputPath),
		zap.Int("bytes", len(data)),
		zap.Duration("elapsed", o.now().Sub(start)))
	return nil
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type passthrough struct{}

func (passthrough) Render(data interfaces.TemplateData) (string, error) { return data.Prompt, nil }
