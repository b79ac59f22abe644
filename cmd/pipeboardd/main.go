package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lherron/pipeboard/internal/cli"
)

func main() {
	addr := flag.String("addr", os.Getenv("PIPEBOARDD_ADDR"), "Listen address (default 127.0.0.1:7272)")
	unixPath := flag.String("unix", os.Getenv("PIPEBOARDD_UNIX"), "Listen on unix socket path")
	token := flag.String("token", os.Getenv("PIPEBOARDD_TOKEN"), "Shared token for local auth")
	backend := flag.String("backend", "", "Backend override: sqlite, postgres, redis or memory")
	dbPath := flag.String("db", "", "Database path override (defaults to config)")
	variant := flag.String("variant", "", "Dashboard variant override: full or reduced")
	flag.Parse()

	opts := cli.DaemonOptions{
		Addr:    *addr,
		Unix:    *unixPath,
		Token:   *token,
		Backend: *backend,
		DBPath:  *dbPath,
		Variant: *variant,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ServeDaemon(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
