// Command ropctl is an operator tool for the session store: it registers
// API users and force-revokes all sessions of a user. It talks to the
// database directly and never goes through the HTTP API.
package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/term"

	"github.com/ropbridge/ropbridge/internal/logging"
	"github.com/ropbridge/ropbridge/internal/server/alerts"
	"github.com/ropbridge/ropbridge/internal/server/clock"
	"github.com/ropbridge/ropbridge/internal/server/config"
	"github.com/ropbridge/ropbridge/internal/server/repositories/repomanager"
	"github.com/ropbridge/ropbridge/internal/server/services"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func usage() error {
	return fmt.Errorf("usage: ropctl [-d dsn] register|revoke [args]")
}

func run(args []string) error {
	fs := flag.NewFlagSet("ropctl", flag.ExitOnError)
	cfg := &config.Config{}
	cfg.LoadDefaults()
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "session store dsn")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usage()
	}

	ctx := context.Background()

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("session store init error: %w", err)
	}
	defer db.Close()

	manager := repomanager.NewPostgresRepositoryManager()
	if err := manager.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	tokens := services.NewTokenService(db, manager, cfg,
		alerts.NewLogAlerter(logger), logger, clock.System{})
	users := services.NewUserService(db, manager, tokens, logger)

	switch fs.Arg(0) {
	case "register":
		return registerUser(ctx, users, fs.Args()[1:])
	case "revoke":
		return revokeUser(ctx, db, manager, tokens, fs.Args()[1:])
	default:
		return usage()
	}
}

func registerUser(ctx context.Context, users *services.UserService, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	roles := fs.String("roles", "operator", "comma-separated roles")
	if err := fs.Parse(args); err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Println("Enter user name")
	username, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)

	fmt.Println("Enter password")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return err
	}
	fmt.Println()

	user, err := users.Register(ctx, username, string(password), splitRoles(*roles))
	if err != nil {
		return err
	}

	fmt.Printf("created user %s (%s)\n", user.UserName, user.ID)
	return nil
}

func revokeUser(ctx context.Context, db *sql.DB, manager repomanager.RepositoryManager,
	tokens *services.TokenService, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ropctl revoke <username>")
	}

	user, err := manager.Users(db).GetUserByLogin(ctx, args[0])
	if err != nil {
		return fmt.Errorf("user lookup error: %w", err)
	}

	n, err := tokens.RevokeAll(ctx, user.ID)
	if err != nil {
		return err
	}

	fmt.Printf("revoked %d active sessions for %s\n", n, user.UserName)
	return nil
}

func splitRoles(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
