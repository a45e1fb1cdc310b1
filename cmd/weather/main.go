// Command weather searches the lookup service from a terminal.
//
//	weather [-server URL] [-timeout 30s] [-v] <place...>
//
// With no place arguments it reads one query per line from stdin.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/view"
)

const prompt = "Search by city or place name (e.g. San Francisco, Tokyo): "

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("weather", flag.ContinueOnError)
	fs.SetOutput(stderr)
	defaultServer := os.Getenv("WEATHER_SERVER")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	server := fs.String("server", defaultServer, "base URL of the weather lookup service")
	timeout := fs.Duration("timeout", 30*time.Second, "overall limit for one search")
	verbose := fs.Bool("v", false, "log request details to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	logger := zap.NewNop()
	if *verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
			defer func() { _ = logger.Sync() }()
		}
	}

	client, err := view.NewClient(*server, *timeout, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if fs.NArg() > 0 {
		ok, err := search(ctx, client, strings.Join(fs.Args(), " "), stdout)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if !ok {
			return 1
		}
		return 0
	}

	interactive := false
	if f, isFile := stdin.(*os.File); isFile {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	scanner := bufio.NewScanner(stdin)
	for {
		if interactive {
			fmt.Fprint(stdout, prompt)
		}
		if !scanner.Scan() {
			break
		}
		if _, err := search(ctx, client, scanner.Text(), stdout); err != nil {
			if errors.Is(err, view.ErrEmptyQuery) {
				continue
			}
			fmt.Fprintln(stderr, err)
			if ctx.Err() != nil {
				return 1
			}
		}
		fmt.Fprintln(stdout)
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

// search runs one lookup and renders it. ok is false when the panel shows an error.
func search(ctx context.Context, client *view.Client, query string, out io.Writer) (ok bool, err error) {
	payload, err := client.Search(ctx, query)
	if err != nil {
		return false, err
	}
	if err := view.Render(out, payload); err != nil {
		return false, err
	}
	return payload.Weather != nil, nil
}
