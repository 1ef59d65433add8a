// Package depot drives the external DepotDownloader tool that fetches game
// files from Steam.
package depot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/hqlauncher/hq-installer/internal/logging"
)

const (
	AppID   = "1966720"
	DepotID = "1966721"

	// DefaultTool is looked up on PATH when no explicit path is configured.
	DefaultTool = "DepotDownloader"
)

// ErrToolNotFound is returned when the DepotDownloader binary cannot be found.
var ErrToolNotFound = errors.New("DepotDownloader not found")

// LoginState describes whether downloads can be authenticated.
type LoginState struct {
	LoggedIn bool
	Username string
}

// Tool runs DepotDownloader. Steam credentials are remembered by the tool
// itself after the first interactive login, so only the username is kept here.
type Tool struct {
	Path     string
	Username string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// command builds the process; tests replace it.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New returns a Tool using path (or DefaultTool when empty) for username.
func New(path, username string) *Tool {
	return &Tool{Path: path, Username: username}
}

func (t *Tool) resolve() (string, error) {
	name := t.Path
	if name == "" {
		name = DefaultTool
	}
	resolved, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return resolved, nil
}

// LoginState reports logged in when a username is configured and the tool
// is available to authenticate with its remembered session.
func (t *Tool) LoginState(ctx context.Context) LoginState {
	if t.Username == "" {
		logging.Debugf("Verbose: depot login check: no steam username configured\n")
		return LoginState{}
	}
	if _, err := t.resolve(); err != nil {
		logging.Debugf("Verbose: depot login check: %v\n", err)
		return LoginState{Username: t.Username}
	}
	return LoginState{LoggedIn: true, Username: t.Username}
}

// Args returns the DepotDownloader arguments for one manifest download.
func (t *Tool) Args(manifestID, destDir string) []string {
	args := []string{
		"-app", AppID,
		"-depot", DepotID,
		"-manifest", manifestID,
		"-dir", destDir,
	}
	if t.Username != "" {
		args = append(args, "-username", t.Username, "-remember-password")
	}
	return args
}

// DownloadDepot fetches the given depot manifest into destDir. The call
// blocks until the tool exits; a failed transfer must be restarted.
func (t *Tool) DownloadDepot(ctx context.Context, manifestID, destDir string) error {
	path, err := t.resolve()
	if err != nil {
		return err
	}

	command := t.command
	if command == nil {
		command = exec.CommandContext
	}
	cmd := command(ctx, path, t.Args(manifestID, destDir)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stderr, os.Stderr
	if t.Stdin != nil {
		cmd.Stdin = t.Stdin
	}
	if t.Stdout != nil {
		cmd.Stdout = t.Stdout
	}
	if t.Stderr != nil {
		cmd.Stderr = t.Stderr
	}

	logging.Debugf("Verbose: running %s manifest=%s dir=%s\n", path, manifestID, destDir)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("DepotDownloader manifest %s: %w", manifestID, err)
	}
	return nil
}
