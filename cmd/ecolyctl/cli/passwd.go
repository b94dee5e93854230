package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/ecoly/ecoly/internal/auth"
	"github.com/ecoly/ecoly/internal/shared"
)

const minPasswordLength = 8

// PasswordStore replaces stored password hashes.
type PasswordStore interface {
	SetPassword(ctx context.Context, email, hash string) error
}

// PasswordOptions defines flags for the passwd command.
type PasswordOptions struct {
	Email  string
	Stdout io.Writer
	Stderr io.Writer
	// ReadPassword reads a line from fd without echo; term.ReadPassword when nil.
	ReadPassword func(fd int) ([]byte, error)
	Fd           int
}

// PasswordCommand prompts for a new password and stores its hash.
func PasswordCommand(ctx context.Context, store PasswordStore, opts PasswordOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.ReadPassword == nil {
		opts.ReadPassword = term.ReadPassword
		opts.Fd = int(os.Stdin.Fd())
	}
	email := strings.TrimSpace(opts.Email)
	if email == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "passwd: -email is required")
		return ExitUsage
	}
	_, _ = fmt.Fprint(opts.Stdout, "Enter password: ")
	pwd, err := opts.ReadPassword(opts.Fd)
	_, _ = fmt.Fprintln(opts.Stdout)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "passwd: read password: %v\n", err)
		return ExitUsage
	}
	if len(pwd) < minPasswordLength {
		_, _ = fmt.Fprintf(opts.Stderr, "passwd: password must be at least %d characters\n", minPasswordLength)
		return ExitUsage
	}
	hash, err := auth.HashPassword(string(pwd))
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "passwd: %v\n", err)
		return ExitUsage
	}
	if err := store.SetPassword(ctx, email, hash); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_, _ = fmt.Fprintf(opts.Stderr, "passwd: no user with email %s\n", email)
		} else {
			_, _ = fmt.Fprintf(opts.Stderr, "passwd: %v\n", err)
		}
		return ExitUsage
	}
	_, _ = fmt.Fprintf(opts.Stdout, "password updated for %s\n", email)
	return ExitOK
}
