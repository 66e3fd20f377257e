// Package cli implements the interactive PersoNewsAP terminal client: the
// subscription wizard and the account maintenance commands.
package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/personewsap/personews/internal/client/client"
	"github.com/personewsap/personews/internal/client/config"
	"github.com/personewsap/personews/internal/client/gateway"
	"github.com/personewsap/personews/internal/client/models"
	"github.com/personewsap/personews/internal/client/services"
	"github.com/personewsap/personews/internal/common"
	"github.com/personewsap/personews/internal/logging"
)

type App struct {
	config       *config.Config
	registration *services.RegistrationService
	account      *services.AccountService
	log          logging.Logger

	db     *sql.DB
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	repos, db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gw := gateway.NewHTTP(c.ServiceURL, c.ServiceAPIKey, c.RequestTimeout, log)

	return &App{
		config:       c,
		registration: services.NewRegistrationService(gw, gw, repos.Drafts, log),
		account:      services.NewAccountService(gw, gw, log),
		log:          log,
		db:           db,
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
	}, nil
}

func (a *App) Close() error {
	return a.db.Close()
}

// Run starts the command loop. It exits on scanner EOF or when the user
// types "exit" or "quit".
func (a *App) Run(ctx context.Context) {
	fmt.Fprintf(a.out, "%s CLI (type 'help' for commands)\n", common.BrandName)

	// A staged registration takes priority over everything else.
	if ok, err := a.registration.HasStagedDraft(ctx); err == nil && ok {
		fmt.Fprintln(a.out, "You have a pending subscription awaiting email verification.")
		fmt.Fprintln(a.out, "Type 'verify' once you have followed the link, or 'resend' for a new email.")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprintf(a.out, "pn> ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			fmt.Fprintln(a.out, "Available commands: subscribe, verify, resend, login, account, edit, password, feedback, unsubscribe, logout, exit")
		case "subscribe":
			a.report(a.Subscribe(ctx))
		case "verify":
			a.report(a.Verify(ctx))
		case "resend":
			a.report(a.Resend(ctx))
		case "login":
			a.report(a.Login(ctx))
		case "account":
			a.report(a.ShowAccount(ctx))
		case "edit":
			a.report(a.EditAccount(ctx))
		case "password":
			a.report(a.ChangePassword(ctx))
		case "feedback":
			a.report(a.Feedback(ctx))
		case "unsubscribe":
			a.report(a.Unsubscribe(ctx))
		case "logout":
			a.report(a.account.SignOut(ctx))
		case "exit", "quit":
			fmt.Fprintln(a.out, "Bye!")
			return
		default:
			fmt.Fprintln(a.out, "Unknown command:", parts[0])
		}
	}
}

// report prints a command error in user terms. Field errors come back from
// validation and are already phrased for the user.
func (a *App) report(err error) {
	var fields models.FieldErrors
	switch {
	case err == nil:
	case errors.As(err, &fields), common.IsRecoverable(err):
		fmt.Fprintln(a.out, err.Error())
	default:
		fmt.Fprintln(a.out, "Something went wrong:", err.Error())
	}
}
