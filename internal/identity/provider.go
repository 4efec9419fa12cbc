package identity

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
)

// ErrEmptyIdentity is returned when a provider resolves no email.
var ErrEmptyIdentity = errors.New("identity: empty email")

// StaticProvider returns a fixed email, for deployments where the
// identity arrives out of band (a flag, an env var, a test).
type StaticProvider struct {
	Email string
}

func (p StaticProvider) SignIn(context.Context) (string, error) {
	if p.Email == "" {
		return "", ErrEmptyIdentity
	}
	return p.Email, nil
}

// PromptProvider reads the email interactively from the console, the
// stand-in for the hosted popup sign-in flow.
type PromptProvider struct {
	In  io.Reader
	Out io.Writer
}

func (p PromptProvider) SignIn(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fmt.Fprint(p.Out, "sign in with your email: ")
	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read email: %w", err)
	}

	email := strings.TrimSpace(line)
	if email == "" {
		return "", ErrEmptyIdentity
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("invalid email %q: %w", email, err)
	}
	return email, nil
}
