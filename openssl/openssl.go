// Package openssl drives "openssl req" to produce a key and CSR from a
// rendered request configuration, or prints the steps for an operator to
// do so by hand.
package openssl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"al.essio.dev/pkg/shellescape"

	berrors "github.com/letsencrypt/certreq/errors"
	blog "github.com/letsencrypt/certreq/log"
)

// DefaultBinary is looked up in $PATH when no path is configured.
const DefaultBinary = "openssl"

// NewKey asks openssl to generate a key. Spec is an openssl -newkey
// argument such as "rsa:2048".
type NewKey struct {
	Path string
	Spec string
}

// Request describes one "openssl req" invocation. Exactly one of NewKey and
// ExistingKeyPath must be set. OutPath is optional; without it openssl
// writes the CSR to stdout.
type Request struct {
	ConfigPath      string
	NewKey          *NewKey
	ExistingKeyPath string
	OutPath         string
}

// Args returns the argument vector for r, without the binary name.
func (r Request) Args() ([]string, error) {
	if r.ConfigPath == "" {
		return nil, berrors.InternalServerError("openssl request has no config path")
	}
	args := []string{"req", "-text", "-config", r.ConfigPath}
	switch {
	case r.NewKey != nil && r.ExistingKeyPath != "":
		return nil, berrors.ConfigError("cannot both generate a new key and use an existing one")
	case r.NewKey != nil:
		if r.NewKey.Path == "" || r.NewKey.Spec == "" {
			return nil, berrors.ConfigError("new key needs both an output path and a key size")
		}
		args = append(args, "-keyout", r.NewKey.Path, "-newkey", r.NewKey.Spec)
	case r.ExistingKeyPath != "":
		args = append(args, "-key", r.ExistingKeyPath)
	default:
		return nil, berrors.ConfigError("either a new key or an existing key is required")
	}
	args = append(args, "-new")
	if r.OutPath != "" {
		args = append(args, "-out", r.OutPath)
	}
	return args, nil
}

// Command is a binary and its arguments.
type Command struct {
	Path string
	Args []string
}

// NewCommand builds the command for r. An empty binary means DefaultBinary.
func NewCommand(binary string, r Request) (*Command, error) {
	if binary == "" {
		binary = DefaultBinary
	}
	args, err := r.Args()
	if err != nil {
		return nil, err
	}
	return &Command{Path: binary, Args: args}, nil
}

// String renders the command as a single POSIX shell line.
func (c *Command) String() string {
	quoted := make([]string, 0, len(c.Args)+1)
	quoted = append(quoted, shellescape.Quote(c.Path))
	for _, a := range c.Args {
		quoted = append(quoted, shellescape.Quote(a))
	}
	return strings.Join(quoted, " ")
}

// Runner executes a Command to completion.
type Runner interface {
	Run(ctx context.Context, cmd *Command) error
}

// ExecRunner runs commands as child processes attached to the given
// streams. It neither retries nor imposes a timeout; openssl may itself
// prompt on the terminal, e.g. for a key passphrase.
type ExecRunner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, cmd *Command) error {
	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Stdin = r.Stdin
	c.Stdout = r.Stdout
	c.Stderr = r.Stderr
	err := c.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return berrors.SignerError("%s exited with status %d", cmd.Path, exitErr.ExitCode())
		}
		return berrors.SignerError("running %s: %s", cmd.Path, err)
	}
	return nil
}

// Signer writes a request configuration to a temporary file and runs
// openssl against it.
type Signer struct {
	binary string
	runner Runner
	log    blog.Logger
}

// NewSigner returns a Signer running binary (DefaultBinary if empty)
// through runner.
func NewSigner(binary string, runner Runner, logger blog.Logger) *Signer {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Signer{binary: binary, runner: runner, log: logger}
}

// Sign writes cfg to a private temporary file named openssl*.cfg, points
// r.ConfigPath at it and runs the resulting command. The file is removed
// before Sign returns.
func (s *Signer) Sign(ctx context.Context, cfg string, r Request) error {
	f, err := os.CreateTemp("", "openssl*.cfg")
	if err != nil {
		return berrors.InternalServerError("creating temporary config file: %s", err)
	}
	defer func() {
		err := os.Remove(f.Name())
		if err != nil {
			s.log.Warningf("Removing temporary config file %q: %s", f.Name(), err)
		}
	}()

	_, err = f.WriteString(cfg)
	if err != nil {
		f.Close()
		return berrors.InternalServerError("writing temporary config file: %s", err)
	}
	err = f.Close()
	if err != nil {
		return berrors.InternalServerError("closing temporary config file: %s", err)
	}
	s.log.Debugf("Wrote openssl config to %s", f.Name())

	r.ConfigPath = f.Name()
	cmd, err := NewCommand(s.binary, r)
	if err != nil {
		return err
	}
	s.log.Debugf("Executing: %s", cmd)
	return s.runner.Run(ctx, cmd)
}

// WriteInstructions prints the two manual steps for cfg and r: creating
// configName with a quoted heredoc, then running openssl against it.
// r.ConfigPath is replaced by configName.
func WriteInstructions(w io.Writer, binary, configName, cfg string, r Request) error {
	r.ConfigPath = configName
	cmd, err := NewCommand(binary, r)
	if err != nil {
		return err
	}
	if !strings.HasSuffix(cfg, "\n") {
		cfg += "\n"
	}
	_, err = fmt.Fprintf(w, "\n1. Create %s file with the following content\n$ cat > %s <<'EOT'\n%sEOT\n\n2. Execute the following command\n$ %s\n",
		configName, shellescape.Quote(configName), cfg, cmd)
	return err
}
