package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"raidcall/internal/config"
	"raidcall/internal/discord"
	"raidcall/internal/google"
	"raidcall/internal/message"
	"raidcall/internal/metrics"
	"raidcall/internal/notifier"
	"raidcall/internal/store"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "raidcall",
		Usage: "Announce upcoming raids and guild events on Discord.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.yaml", Usage: "Path to the configuration file."},
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}, Usage: "debug, info, warn or error."},
		},
		Commands: []*cli.Command{
			runCommand(),
			previewCommand(),
			authCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Send the notifications that are due and exit.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Usage: "Bypass the event cache and print messages instead of posting them."},
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be sent without storing state or posting."},
			&cli.StringFlag{Name: "schedule", Usage: "Repeat the run on a cron schedule, e.g. \"*/10 * * * *\"."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No state is stored and nothing is posted.")
			}

			app, err := newApp(c.Context, logger, cfg, c.Bool("dry-run"))
			if err != nil {
				return err
			}
			defer app.Close()

			schedule := c.String("schedule")
			if schedule == "" {
				logger.Info("Running a single notification run.")
				return app.run(c.Context)
			}

			sched := cron.New()
			if _, err := sched.AddFunc(schedule, func() {
				if err := app.run(c.Context); err != nil {
					logger.Error("Notification run failed", "error", err)
				}
			}); err != nil {
				return fmt.Errorf("invalid schedule %q: %w", schedule, err)
			}
			logger.Info("Starting scheduler.", "schedule", schedule)
			sched.Start()
			<-c.Context.Done()
			<-sched.Stop().Done()
			logger.Info("Scheduler stopped.")
			return nil
		},
	}
}

func previewCommand() *cli.Command {
	return &cli.Command{
		Name:  "preview",
		Usage: "List the upcoming events and the persona announcing them.",
		Action: func(c *cli.Context) error {
			logger := setupLogger(c.String("log-level"))

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			app, err := newApp(c.Context, logger, cfg, true)
			if err != nil {
				return err
			}
			defer app.Close()

			notes, err := app.notifier.Preview(c.Context)
			for _, n := range notes {
				fmt.Printf("%-16s %-14s %s, %s (%s)\n", n.Persona.Name, n.Event.Status, n.Event.Summary, n.Time, n.Duration)
			}
			return err
		},
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			clientID, clientSecret := os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET")
			if cfg, err := config.Load(c.String("config")); err == nil && cfg.Google != nil {
				clientID, clientSecret = cfg.Google.ClientID, cfg.Google.ClientSecret
			}

			if accounts, err := google.GetTokenAccounts("."); err == nil && len(accounts) > 0 {
				fmt.Printf("Existing accounts: %s\n", strings.Join(accounts, ", "))
			}

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(clientID, clientSecret)
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(c.Context, oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'guild'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)
			tokenFile := google.TokenFile(accountName)

			if err := google.SaveToken(tokenFile, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}
			logger.Info("Successfully authenticated and saved token.", "file", tokenFile)

			client, err := google.NewClient(c.Context, logger, clientID, clientSecret, accountName)
			if err != nil {
				return err
			}
			calendars, err := client.ListCalendars(c.Context)
			if err != nil {
				return err
			}
			ids := make([]string, 0, len(calendars))
			for id := range calendars {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			fmt.Println("Calendars available for google.calendars:")
			for _, id := range ids {
				fmt.Printf("  %s  (%s)\n", id, calendars[id])
			}
			return nil
		},
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.Bool("debug") {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds everything a run needs, built once per process.
type app struct {
	logger   *slog.Logger
	cfg      *config.Config
	state    *store.Store
	metrics  *metrics.Metrics
	notifier *notifier.Notifier
}

func newApp(ctx context.Context, logger *slog.Logger, cfg *config.Config, dryRun bool) (*app, error) {
	printer, err := message.NewPrinter(cfg.Language)
	if err != nil {
		return nil, err
	}
	classifier, err := message.NewClassifier(cfg.Discord.Personas, printer)
	if err != nil {
		return nil, err
	}
	renderer, err := message.NewRenderer(cfg.Template, printer)
	if err != nil {
		return nil, err
	}
	sink, err := discord.NewWebhook(logger, cfg.Discord.WebhookURL, cfg.Debug, os.Stdout)
	if err != nil {
		return nil, err
	}
	sources, err := buildSources(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	state, err := store.Open(ctx, cfg.StatePath)
	if err != nil {
		return nil, err
	}
	m := metrics.New()

	n := notifier.New(logger, state, sources, classifier, renderer, sink, m, notifier.Options{
		Days:     cfg.DaysToFetch,
		CacheTTL: cfg.CacheTTL(),
		Debug:    cfg.Debug,
		DryRun:   dryRun,
	})
	return &app{logger: logger, cfg: cfg, state: state, metrics: m, notifier: n}, nil
}

// run performs one notification run and writes the metrics textfile if configured.
func (a *app) run(ctx context.Context) error {
	logger := a.logger.With("run", uuid.NewString())
	start := time.Now()

	err := a.notifier.Run(ctx)
	if path := a.cfg.MetricsTextfile; path != "" {
		if werr := a.metrics.WriteTextfile(path); werr != nil {
			logger.Warn("Could not write metrics", "error", werr)
		}
	}
	logger.Info("Run complete", "elapsed", time.Since(start), "failed", err != nil)
	return err
}

func (a *app) Close() error {
	return a.state.Close()
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.RFC1123Z,
	}))
	slog.SetDefault(logger)
	return logger
}
