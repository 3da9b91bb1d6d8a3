// Package admin implements the mediavault-admin maintenance commands.
package admin

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/mediavault/internal/server/models"
)

// AuthService is the part of services.AuthService the commands use.
type AuthService interface {
	CreateVerifiedUser(ctx context.Context, email, username, password string, admin bool) (*models.User, error)
	UnlockAccount(ctx context.Context, userID string) error
}

var ErrUsage = errors.New("usage: mediavault-admin create-user [-email e] [-username u] [-admin] | unlock <user-id>")

type Tool struct {
	auth   AuthService
	reader *bufio.Reader
	out    io.Writer
}

func New(auth AuthService, in io.Reader, out io.Writer) *Tool {
	return &Tool{auth: auth, reader: bufio.NewReader(in), out: out}
}

// CommandArgs returns args from the first command name on, dropping the
// configuration flags that precede it.
func CommandArgs(args []string) []string {
	for i, a := range args {
		if a == "create-user" || a == "unlock" {
			return args[i:]
		}
	}
	return nil
}

// Run dispatches args[0] to its command.
func (t *Tool) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return ErrUsage
	}
	switch args[0] {
	case "create-user":
		return t.CreateUser(ctx, args[1:])
	case "unlock":
		return t.Unlock(ctx, args[1:])
	}
	return ErrUsage
}

// CreateUser adds an already verified account, prompting for anything not
// given on the command line. The password is always read from the terminal.
func (t *Tool) CreateUser(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.SetOutput(t.out)
	email := fs.String("email", "", "e-mail address")
	username := fs.String("username", "", "username")
	isAdmin := fs.Bool("admin", false, "grant the admin role")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if *email == "" {
		if *email, err = getText(t.reader, "E-mail", t.out); err != nil {
			return err
		}
	}
	if *username == "" {
		if *username, err = getText(t.reader, "Username", t.out); err != nil {
			return err
		}
	}

	password, err := getPassword("Password", t.out)
	if err != nil {
		return err
	}
	confirm, err := getPassword("Repeat password", t.out)
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	u, err := t.auth.CreateVerifiedUser(ctx, *email, *username, password, *isAdmin)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Created user %s (%s)\n", u.Username, u.ID)
	return nil
}

// Unlock clears the failed-login lockout of one account.
func (t *Tool) Unlock(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return ErrUsage
	}
	if err := t.auth.UnlockAccount(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(t.out, "Unlocked %s\n", args[0])
	return nil
}
