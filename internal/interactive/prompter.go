package interactive

import (
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"github.com/AlecAivazis/survey/v2"
	"github.com/atotto/clipboard"
	"golang.org/x/term"
)

// Prompter handles interactive user input collection
type Prompter struct {
	isTerminal    func() bool
	readClipboard func() (string, error)
	askOne        func(p survey.Prompt, response interface{}, opts ...survey.AskOpt) error
	stdin         io.Reader
	stdinIsPipe   func() bool
}

// NewPrompter creates a new interactive prompter bound to the process terminal
func NewPrompter() *Prompter {
	return &Prompter{
		isTerminal:    func() bool { return term.IsTerminal(int(syscall.Stdin)) },
		readClipboard: clipboard.ReadAll,
		askOne:        survey.AskOne,
		stdin:         os.Stdin,
		stdinIsPipe:   stdinIsPipe,
	}
}

// IsInteractive reports whether stdin is attached to a terminal
func (p *Prompter) IsInteractive() bool {
	return p.isTerminal()
}

// PromptFromClipboard merges clipboard content into a literal prompt. With no
// literal the clipboard becomes the prompt; otherwise it is appended.
func (p *Prompter) PromptFromClipboard(literal string) (string, error) {
	content, err := p.readClipboard()
	if err != nil {
		return "", fmt.Errorf("failed to read from clipboard: %w", err)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("clipboard is empty")
	}

	literal = strings.TrimSpace(literal)
	if literal == "" {
		return content, nil
	}
	return literal + "\n\n" + content, nil
}

// AskPrompt asks the user to type the image prompt
func (p *Prompter) AskPrompt() (string, error) {
	if !p.isTerminal() {
		return "", fmt.Errorf("no prompt given and stdin is not a terminal")
	}

	input := &survey.Input{
		Message: "Describe the image to generate:",
		Help:    "This prompt is sent to the image model as is",
	}

	var text string
	if err := p.askOne(input, &text, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ConfirmReset asks before the persisted configuration is overwritten with
// defaults. Without a terminal it refuses, so scripts must pass --yes.
func (p *Prompter) ConfirmReset(path string) (bool, error) {
	if !p.isTerminal() {
		return false, fmt.Errorf("refusing to reset %s without confirmation; pass --yes", path)
	}

	confirm := &survey.Confirm{
		Message: fmt.Sprintf("Reset %s to the built-in defaults?", path),
		Help:    "Your API key and every default_* setting will be cleared",
		Default: false,
	}

	var ok bool
	if err := p.askOne(confirm, &ok); err != nil {
		return false, err
	}
	return ok, nil
}

// PromptFromStdin reads a prompt piped into the process, e.g.
// `cat idea.txt | imgpt`. ok is false when stdin is not a pipe.
func (p *Prompter) PromptFromStdin() (text string, ok bool, err error) {
	if !p.stdinIsPipe() {
		return "", false, nil
	}
	data, err := io.ReadAll(p.stdin)
	if err != nil {
		return "", true, fmt.Errorf("failed to read prompt from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), true, nil
}

func stdinIsPipe() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeNamedPipe != 0
}
