package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/eringen/spacetraveling"
	"github.com/eringen/spacetraveling/views"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "serve", "generate":
		// a missing .env is fine; the environment may be set by the host
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("load .env: %v", err)
		}
	}

	switch cmd {
	case "serve":
		if err := runServe(); err != nil {
			log.Fatal(err)
		}
	case "generate":
		if err := runGenerate(); err != nil {
			log.Fatal(err)
		}
	case "version":
		fmt.Printf("spacetraveling %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func defaultViews() spacetraveling.ViewFuncs {
	return spacetraveling.ViewFuncs{
		Home:        views.Home,
		Listing:     views.Listing,
		Post:        views.Post,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

func runServe() error {
	app := spacetraveling.New(configFromEnv(true), defaultViews())
	defer app.Close()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.Echo.Shutdown(ctx); err != nil {
			app.Echo.Logger.Errorf("shutdown: %v", err)
		}
	}()

	return app.Start()
}

func runGenerate() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := spacetraveling.New(configFromEnv(false), defaultViews())
	defer app.Close()
	if err := app.Init(ctx); err != nil {
		return err
	}
	res, err := app.Generate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Generated %d posts (%d skipped, %d banners) at ref %s into %s\n",
		res.Documents, res.Skipped, res.Banners, res.Ref, app.Config.SnapshotPath)
	return nil
}

func printUsage() {
	fmt.Println(`spacetraveling - a blog front end for Prismic built with Go, Echo, and templ

Usage:
  spacetraveling <command>

Commands:
  serve       Start the web server (default)
  generate    Snapshot every published post into SQLite
  version     Print the spacetraveling version
  help        Show this help message

Configuration is read from the environment and from a .env file:
  PRISMIC_API_ENDPOINT, PRISMIC_ACCESS_TOKEN, SESSION_SECRET, SITE_URL,
  SERVE_SNAPSHOT, SNAPSHOT_PATH, REVALIDATE_SCHEDULE, REDIS_URL, ...`)
}
