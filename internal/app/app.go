package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/hoodauth/internal/prompt"
	"github.com/aussiebroadwan/hoodauth/pkg/robinhood"
	"github.com/aussiebroadwan/hoodauth/pkg/session"
	"github.com/aussiebroadwan/hoodauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires configuration, logging, the API client and the terminal
// prompter into a single login run.
type Application struct {
	cfg    Config
	logger *slog.Logger
	out    io.Writer

	terminal *prompt.Terminal
	client   *robinhood.Client
	auth     *robinhood.Authenticator
}

// New creates an Application reading answers from in and writing prompts
// and the final summary to out. Logs go to stderr.
func New(cfg Config, in io.Reader, out io.Writer) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		out: out,
		logger: slogx.New(slogx.Config{
			Service: "robinhood-login",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		terminal: prompt.New(in, out),
	}

	app.client = robinhood.NewClient(cfg.BaseURL)
	app.client.HTTPClient.Timeout = cfg.HTTPTimeout
	app.client.HTTPClient.Transport = slogx.NewTransport(nil, app.logger)

	app.auth = robinhood.NewAuthenticator(app.client, app.prompter(), robinhood.WithLogger(app.logger))
	return app, nil
}

// prompter answers challenges on the terminal and takes MFA codes from the
// TOTP seed when one is configured.
func (app *Application) prompter() robinhood.Prompter {
	if app.cfg.MFASecret == "" {
		return app.terminal
	}
	return &robinhood.TOTPPrompter{Secret: app.cfg.MFASecret, Fallback: app.terminal}
}

// Run logs in once and prints a summary of the issued tokens. It stops
// early on SIGINT or SIGTERM.
func (app *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app.logger.Info("robinhood login starting", "base_url", app.cfg.BaseURL, "version", BuildVersion)

	creds, err := app.credentials(ctx)
	if err != nil {
		return err
	}

	tokens, err := app.auth.Login(ctx, creds)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	app.printSummary(creds.Username, tokens)
	return nil
}

func (app *Application) credentials(ctx context.Context) (robinhood.Credentials, error) {
	username := app.cfg.Username
	if username == "" {
		var err error
		if username, err = app.terminal.Ask(ctx, "Username"); err != nil {
			return robinhood.Credentials{}, fmt.Errorf("failed to read username: %w", err)
		}
	}

	password, err := app.terminal.Ask(ctx, "Password")
	if err != nil {
		return robinhood.Credentials{}, fmt.Errorf("failed to read password: %w", err)
	}

	return robinhood.Credentials{
		Username:      username,
		Password:      password,
		ChallengeType: app.cfg.Challenge(),
		DeviceToken:   app.cfg.DeviceToken,
	}, nil
}

func (app *Application) printSummary(username string, tokens session.Tokens) {
	fmt.Fprintf(app.out, "\nLogged in as %s\n", username)
	fmt.Fprintf(app.out, "  session:       %s\n", app.auth.SessionID())
	fmt.Fprintf(app.out, "  device token:  %s\n", app.cfg.DeviceToken)
	fmt.Fprintf(app.out, "  access token:  %s\n", mask(tokens.AccessToken))
	fmt.Fprintf(app.out, "  refresh token: %t\n", tokens.RefreshToken != "")
	fmt.Fprintf(app.out, "  refresh by:    %s\n", robinhood.Deadline(tokens).Format(time.RFC3339))
}

// mask keeps only the head of a token so it can be told apart.
func mask(token string) string {
	const keep = 8
	if len(token) <= keep {
		return "********"
	}
	return token[:keep] + "..."
}
