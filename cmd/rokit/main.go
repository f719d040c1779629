package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rojo-rbx/rokit/internal/dispatch"
	"github.com/rojo-rbx/rokit/internal/rerr"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	name := filepath.Base(os.Args[0])
	if ext := filepath.Ext(name); ext == ".exe" {
		name = name[:len(name)-len(ext)]
	}

	if name != "rokit" {
		os.Exit(runDispatch(ctx))
	}

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
		}
		if isUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// runDispatch handles invocation through a bin/ shim: argv[0] names
// the tool alias rather than rokit itself.
func runDispatch(ctx context.Context) int {
	d, err := newDispatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rokit: %v\n", err)
		return 1
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "rokit: %v\n", err)
		return 1
	}

	err = dispatch.Dispatch(ctx, d, os.Args[0], os.Args[1:], cwd)
	if err == nil {
		return 0
	}

	var e *rerr.Error
	if rerr.AsError(err, &e) && e.Code == rerr.CodeNoToolForAlias {
		fmt.Fprintf(os.Stderr, "%s: command not found\n", dispatch.AliasFromArgv0(os.Args[0]))
		return 127
	}

	fmt.Fprintf(os.Stderr, "rokit: %v\n", err)
	return 1
}
