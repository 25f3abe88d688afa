package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/yourorg/userhub/internal/domain"
	"github.com/yourorg/userhub/internal/repository"
	"github.com/yourorg/userhub/pkg/config"
	"github.com/yourorg/userhub/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "tenant":
		handleTenant(args)
	case "migrate":
		runMigrations()
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleTenant(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: userhub tenant <create|list|deactivate>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "create":
		createTenant(args[1:])
	case "list":
		listTenants(args[1:])
	case "deactivate":
		deactivateTenant(args[1:])
	default:
		fmt.Printf("unknown tenant command: %s\n", subCmd)
	}
}

func createTenant(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "tenant name")
	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	ctx, repo, cleanup := connect()
	defer cleanup()

	apiKey, err := generateAPIKey()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	tenant := &domain.Tenant{
		Name:     *name,
		APIKey:   apiKey,
		IsActive: true,
	}
	if err := repo.Create(ctx, tenant); err != nil {
		fmt.Printf("✗ Failed to create tenant: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Tenant created: %s\n", tenant.ID)
	fmt.Printf("  API key: %s\n", apiKey)
	fmt.Println("  Store the key now; it is not shown again.")
}

func listTenants(args []string) {
	_ = args
	ctx, repo, cleanup := connect()
	defer cleanup()

	tenants, err := repo.List(ctx)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tACTIVE\tCREATED")
	for _, t := range tenants {
		fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", t.ID, t.Name, t.IsActive, t.CreatedAt.Format(time.RFC3339))
	}
	w.Flush()
}

func deactivateTenant(args []string) {
	fs := flag.NewFlagSet("deactivate", flag.ExitOnError)
	id := fs.String("id", "", "tenant ID")
	fs.Parse(args)

	if *id == "" {
		fmt.Println("Error: id is required")
		fs.PrintDefaults()
		return
	}

	ctx, repo, cleanup := connect()
	defer cleanup()

	if err := repo.Deactivate(ctx, *id); err != nil {
		fmt.Printf("✗ Failed to deactivate tenant: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Tenant deactivated: %s\n", *id)
}

func runMigrations() {
	ctx, pool, cleanup := openPool()
	defer cleanup()

	if err := repository.Migrate(ctx, pool.GetDB()); err != nil {
		fmt.Printf("✗ Migration failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✓ Migrations applied")
}

func connect() (context.Context, *repository.PostgresTenantRepository, func()) {
	ctx, pool, cleanup := openPool()
	return ctx, repository.NewPostgresTenantRepository(pool.GetDB(), quietLogger()), cleanup
}

func openPool() (context.Context, *database.ConnectionPool, func()) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, quietLogger())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	return ctx, pool, func() { pool.Close() }
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func printUsage() {
	fmt.Print(`UserHub CLI

Usage:
  userhub <command> [options]

Commands:
  tenant     Tenant operations (create, list, deactivate)
  migrate    Apply database migrations
  help       Show this help message

Environment Variables:
  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSLMODE

Examples:
  userhub tenant create -name acme
  userhub tenant list
  userhub tenant deactivate -id 7b0c...
  userhub migrate
`)
}
