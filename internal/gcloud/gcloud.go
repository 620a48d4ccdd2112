package gcloud

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/fatih/color"
)

type (
	// Runner executes an external command
	Runner interface {
		Run(ctx context.Context, name string, args ...string) error
	}

	// Prompter asks the user to confirm an action
	Prompter interface {
		Confirm(message string, defaultYes bool) (bool, error)
	}

	// ExecRunner runs commands as child processes attached to the given
	// streams
	ExecRunner struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// LinePrompter reads a y/n answer from a line of input
	LinePrompter struct {
		In  io.Reader
		Out io.Writer
	}

	// Tools wraps the gcloud CLI commands used to obtain credentials
	Tools struct {
		runner Runner
		prompt Prompter
		out    io.Writer
		errOut io.Writer
	}
)

const gcloudCommand = "gcloud"

const loginHint = "Unable to complete login. Make sure the gcloud CLI is " +
	"installed and you're able to open a browser."

var (
	ErrProjectRequired = errors.New(
		"project not specified; provide a project ID using the --project flag",
	)
	ErrCommandFailed = errors.New("gcloud command failed")
)

var (
	_ Runner   = (*ExecRunner)(nil)
	_ Prompter = (*LinePrompter)(nil)
)

// NewTools creates the credential commands. Messages are written to out,
// error hints to errOut
func NewTools(r Runner, p Prompter, out, errOut io.Writer) *Tools {
	return &Tools{
		runner: r,
		prompt: p,
		out:    out,
		errOut: errOut,
	}
}

// NewStdTools creates the credential commands bound to the process's
// standard streams
func NewStdTools() *Tools {
	return NewTools(
		&ExecRunner{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr},
		&LinePrompter{In: os.Stdin, Out: os.Stdout},
		os.Stdout, os.Stderr,
	)
}

// Login signs the user in to their Google account through the gcloud CLI.
// Declining the prompt is not an error
func (t *Tools) Login(ctx context.Context) error {
	ok, err := t.prompt.Confirm(
		"The gcloud CLI will be used to log in to your Google account "+
			"using OAuth, in order to perform administrative tasks", true,
	)
	if err != nil || !ok {
		return err
	}

	if err := t.runner.Run(ctx, gcloudCommand, "auth", "login"); err != nil {
		t.errorMessage(loginHint)
		return fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}

	_, _ = color.New(color.Bold).Fprintln(t.out,
		"Successfully signed in to GCloud.")
	return nil
}

// UseAppDefaultCreds downloads application default credentials for
// project. The project is always passed explicitly so gcloud never falls
// back to its last configured one
func (t *Tools) UseAppDefaultCreds(ctx context.Context, project string) error {
	project = strings.TrimSpace(project)
	if project == "" {
		t.errorMessage("Project not specified. " +
			"Provide a project ID using the --project flag")
		return ErrProjectRequired
	}

	ok, err := t.prompt.Confirm(fmt.Sprintf(
		"The gcloud CLI will be used to log in to Google and download "+
			"application default credentials for your project: %s.",
		color.New(color.Bold).Sprint(project),
	), true)
	if err != nil || !ok {
		return err
	}

	err = t.runner.Run(ctx, gcloudCommand,
		"auth", "application-default", "login", "--project="+project,
	)
	if err != nil {
		t.errorMessage(loginHint)
		return fmt.Errorf("%w: %w", ErrCommandFailed, err)
	}

	_, _ = color.New(color.Bold).Fprintln(t.out,
		"Successfully signed in using application-default credentials.")
	_, _ = fmt.Fprintln(t.out, "Google Cloud SDKs will now automatically "+
		"pick up your credentials during development.")
	return nil
}

func (t *Tools) errorMessage(msg string) {
	_, _ = fmt.Fprintf(t.errOut, "%s %s\n",
		color.New(color.Bold, color.FgRed).Sprint("Error:"), msg)
}

// Run executes name with args, waiting for it to exit
func (r *ExecRunner) Run(
	ctx context.Context, name string, args ...string,
) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// Confirm prints message and asks to continue. An empty answer selects
// defaultYes
func (p *LinePrompter) Confirm(message string, defaultYes bool) (bool, error) {
	choices := "(y/N)"
	if defaultYes {
		choices = "(Y/n)"
	}
	_, _ = fmt.Fprintf(p.Out, "%s\nDo you want to continue? %s ",
		message, choices)

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
