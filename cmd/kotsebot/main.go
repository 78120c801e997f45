package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kotsebot/kotsebot/internal/api"
	"github.com/kotsebot/kotsebot/internal/flow"
	"github.com/kotsebot/kotsebot/internal/genai"
	"github.com/kotsebot/kotsebot/internal/inventory"
	"github.com/kotsebot/kotsebot/internal/messaging"
	"github.com/kotsebot/kotsebot/internal/scheduler"
	"github.com/kotsebot/kotsebot/internal/session"
	"github.com/kotsebot/kotsebot/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for kotsebot state data
	DefaultStateDir = "/var/lib/kotsebot"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "kotsebot.db"
	// DefaultNudgeCron runs the idle nudge sweep every 5 minutes.
	DefaultNudgeCron = "*/5 * * * *"
)

// Config holds environment configuration.
type Config struct {
	DBDriver     string
	DatabaseURL  string
	StateDir     string
	InventoryURL string
	OpenAIKey    string
	PageToken    string
	VerifyToken  string
	APIAddr      string
	NudgeCron    string
	SMSEnabled   bool
	InvCacheTTL  time.Duration
}

// Flags holds command line flag values, layered over the environment.
type Flags struct {
	stateDir     *string
	dbDriver     *string
	dbDSN        *string
	inventoryURL *string
	openaiKey    *string
	pageToken    *string
	verifyToken  *string
	apiAddr      *string
	nudgeCron    *string
}

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	if err := run(config, flags); err != nil {
		slog.Error("kotsebot failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("kotsebot exited successfully")
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DBDriver:     util.GetenvDefault("KOTSEBOT_DB_DRIVER", "sqlite3"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		StateDir:     util.GetenvDefault("KOTSEBOT_STATE_DIR", DefaultStateDir),
		InventoryURL: os.Getenv("INVENTORY_SHEET_URL"),
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		PageToken:    os.Getenv("MESSENGER_PAGE_TOKEN"),
		VerifyToken:  os.Getenv("MESSENGER_VERIFY_TOKEN"),
		APIAddr:      util.GetenvDefault("API_ADDR", ":8080"),
		NudgeCron:    util.GetenvDefault("NUDGE_SCHEDULE", DefaultNudgeCron),
		SMSEnabled:   util.ParseBoolEnv("SMS_REMINDERS_ENABLED", false),
		InvCacheTTL:  time.Duration(util.ParseIntEnv("INVENTORY_CACHE_TTL_SECONDS", int(inventory.DefaultCacheTTL/time.Second))) * time.Second,
	}

	if config.DatabaseURL == "" && config.DBDriver == "sqlite3" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"KOTSEBOT_DB_DRIVER", config.DBDriver,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"KOTSEBOT_STATE_DIR", config.StateDir,
		"INVENTORY_SHEET_URL_SET", config.InventoryURL != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"MESSENGER_PAGE_TOKEN_SET", config.PageToken != "",
		"API_ADDR", config.APIAddr,
		"NUDGE_SCHEDULE", config.NudgeCron,
		"SMS_REMINDERS_ENABLED", config.SMSEnabled,
		"INVENTORY_CACHE_TTL", config.InvCacheTTL)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for kotsebot data (overrides $KOTSEBOT_STATE_DIR)"),
		dbDriver:     flag.String("db-driver", config.DBDriver, "session store driver: sqlite3 or postgres (overrides $KOTSEBOT_DB_DRIVER)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "session store DSN (overrides $DATABASE_URL)"),
		inventoryURL: flag.String("inventory-url", config.InventoryURL, "inventory sheet endpoint (overrides $INVENTORY_SHEET_URL)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		pageToken:    flag.String("page-token", config.PageToken, "Messenger page access token (overrides $MESSENGER_PAGE_TOKEN)"),
		verifyToken:  flag.String("verify-token", config.VerifyToken, "Messenger webhook verify token (overrides $MESSENGER_VERIFY_TOKEN)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		nudgeCron:    flag.String("nudge-cron", config.NudgeCron, "cron expression for the nudge sweep (overrides $NUDGE_SCHEDULE)"),
	}
	flag.Parse()
	return flags
}

func run(config Config, flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0o755); err != nil {
		return err
	}

	store, err := buildSessionStore(flags)
	if err != nil {
		return err
	}
	sessions := session.NewManager(store)

	invClient, err := inventory.NewClient(inventory.WithBaseURL(*flags.inventoryURL))
	if err != nil {
		return err
	}
	inv := inventory.NewCache(invClient, config.InvCacheTTL)

	msg, err := messaging.NewMessengerService(messaging.WithAccessToken(*flags.pageToken))
	if err != nil {
		return err
	}

	// Optional pieces: generation and SMS degrade to static behavior.
	var gen flow.TextGenerator
	if *flags.openaiKey != "" {
		client, err := genai.NewClient(genai.WithAPIKey(*flags.openaiKey))
		if err != nil {
			return err
		}
		gen = client
	} else {
		slog.Info("No OpenAI key configured, using static copy only")
	}

	var sms flow.SMSSender
	if config.SMSEnabled {
		notifier, err := messaging.NewSMSNotifier()
		if err != nil {
			return err
		}
		sms = notifier
	}

	router := flow.NewRouter(sessions, inv, msg, gen, sms)

	manila, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		manila = time.FixedZone("PHT", 8*60*60)
	}

	nudger := flow.NewNudger(sessions, msg)
	sched := scheduler.NewScheduler(manila)
	defer sched.Stop()
	if err := sched.AddJob(*flags.nudgeCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := nudger.Sweep(ctx); err != nil {
			slog.Error("Nudge sweep failed", "error", err)
		}
	}); err != nil {
		return err
	}

	server, err := api.NewServer(router,
		api.WithAddr(*flags.apiAddr),
		api.WithVerifyToken(*flags.verifyToken),
	)
	if err != nil {
		return err
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		slog.Info("Shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("kotsebot starting", "addr", *flags.apiAddr, "db_driver", *flags.dbDriver)
	return server.Run()
}

func buildSessionStore(flags Flags) (session.Store, error) {
	switch *flags.dbDriver {
	case "postgres":
		return session.NewPostgresStore(session.WithDSN(*flags.dbDSN))
	default:
		return session.NewSQLiteStore(session.WithDSN(*flags.dbDSN))
	}
}
