package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/digestry/digestry/internal/client/client"
	"github.com/digestry/digestry/internal/client/config"
	"github.com/digestry/digestry/internal/logging"
)

// timeLayout renders info timestamps. All values arrive in UTC.
const timeLayout = "2006-01-02 15:04:05 MST"

// App executes one CLI command against the configured server.
type App struct {
	config *config.Config
	log    logging.Logger
	out    io.Writer
}

func NewApp(cfg *config.Config, out io.Writer, log logging.Logger) *App {
	return &App{config: cfg, log: log, out: out}
}

// Run executes args: the command name followed by its digest arguments,
// i.e. the command line left over after flag parsing.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage())
	}
	cmd, digests := args[0], args[1:]

	if cmd == "genkey" {
		return a.genkey()
	}

	c, err := client.New(ctx, a.config, a.log)
	if err != nil {
		return err
	}

	switch cmd {
	case "ping":
		if err := c.Ping(ctx); err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s OK\n", a.config.Address)
		return nil

	case "check", "pong":
		query := c.Check
		if cmd == "pong" {
			query = c.Pong
		}
		return a.eachDigest(digests, func(digest string) error {
			res, err := query(ctx, digest)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\t%d\t%d\n", digest, res.Count, res.WLCount)
			return nil
		})

	case "report":
		return a.eachDigest(digests, func(digest string) error {
			if err := c.Report(ctx, digest); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\treported\n", digest)
			return nil
		})

	case "whitelist":
		return a.eachDigest(digests, func(digest string) error {
			if err := c.Whitelist(ctx, digest); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s\twhitelisted\n", digest)
			return nil
		})

	case "info":
		return a.eachDigest(digests, func(digest string) error {
			res, err := c.Info(ctx, digest)
			if err != nil {
				return err
			}
			a.printInfo(digest, res)
			return nil
		})

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage())
	}
}

// eachDigest applies fn to every digest argument, stopping at the first
// failure.
func (a *App) eachDigest(digests []string, fn func(digest string) error) error {
	if len(digests) == 0 {
		return errors.New("at least one digest argument is required")
	}
	for _, d := range digests {
		if err := fn(d); err != nil {
			return fmt.Errorf("%s: %w", d, err)
		}
	}
	return nil
}

func (a *App) printInfo(digest string, res *client.InfoResult) {
	fmt.Fprintf(a.out, "%s\n", digest)
	fmt.Fprintf(a.out, "\tCount: %d\n", res.Count)
	fmt.Fprintf(a.out, "\tEntered: %s\n", formatTime(res.Entered))
	fmt.Fprintf(a.out, "\tUpdated: %s\n", formatTime(res.Updated))
	fmt.Fprintf(a.out, "\tWL-Count: %d\n", res.WLCount)
	fmt.Fprintf(a.out, "\tWL-Entered: %s\n", formatTime(res.WLEntered))
	fmt.Fprintf(a.out, "\tWL-Updated: %s\n", formatTime(res.WLUpdated))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Format(timeLayout)
}

func usage() string {
	return strings.TrimSpace(`
usage: digestry-client [flags] <command> [digest ...]

commands:
  check <digest ...>      print report and whitelist counts
  report <digest ...>     report digests as spam
  whitelist <digest ...>  record digests as known good
  info <digest ...>       print full detail for digests
  ping                    check that the server answers
  pong <digest ...>       diagnostic check, answers with maximal counts
  genkey                  derive an account key and print accounts lines
`)
}
