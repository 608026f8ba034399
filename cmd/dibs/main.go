package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/geocoder89/dibs/internal/config"
	"github.com/geocoder89/dibs/internal/observability"
)

const usage = `usage: dibs [command] [flags]

commands:
  serve     run the web server (default)
  setup     create tables and seed roles, categories and accounts
  migrate   create missing tables
  test      run the test suite (-coverage for a coverage report)
`

func main() {
	cfg := config.Load()

	log := observability.NewTracedLogger(cfg.Env)
	slog.SetDefault(log)

	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "serve":
		err = serve(ctx, cfg, log)
	case "setup":
		err = setup(ctx, cfg, log)
	case "migrate":
		err = migrate(ctx, cfg, log)
	case "test":
		err = runTests(ctx, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		log.Error("command failed", "cmd", cmd, "err", err)
		os.Exit(1)
	}
}

// runTests shells out to go test so CI and developers share one entry point.
func runTests(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	coverage := fs.Bool("coverage", false, "write a coverage profile and print the summary")
	if err := fs.Parse(args); err != nil {
		return err
	}

	goArgs := []string{"test", "./..."}
	if *coverage {
		goArgs = append(goArgs, "-coverprofile=coverage.out", "-covermode=atomic")
	}
	goArgs = append(goArgs, fs.Args()...)

	if err := runGo(ctx, goArgs...); err != nil {
		return err
	}

	if *coverage {
		return runGo(ctx, "tool", "cover", "-func=coverage.out")
	}
	return nil
}

func runGo(ctx context.Context, args ...string) error {
	c := exec.CommandContext(ctx, "go", args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.Env = append(os.Environ(), "APP_ENV=test")
	return c.Run()
}
