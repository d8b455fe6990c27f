package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"libtrack/internal/config"
	"libtrack/library"
)

// app carries what the commands share once the root command has run its
// pre-run hook.
type app struct {
	out io.Writer
	err io.Writer

	configFile string
	dbPath     string
	asJSON     bool

	cfg *config.Config
	mgr *library.Manager

	// readPassword is swapped out in tests.
	readPassword func(prompt string) (string, error)
}

func main() {
	a := &app{out: os.Stdout, err: os.Stderr, readPassword: readPassword}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "libtrack",
		Short:         "Library catalog and lending tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsDatabase(cmd) {
				return nil
			}
			return a.open()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.err)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (yaml, json or toml)")
	pf.StringVar(&a.dbPath, "db", "", "database path (overrides LIBTRACK_DATABASE_PATH)")
	pf.BoolVar(&a.asJSON, "json", false, "print results as JSON")

	root.AddCommand(
		newBookCmd(a),
		newIssueCmd(a),
		newReturnCmd(a),
		newIssuesCmd(a),
		newStatsCmd(a),
		newUserCmd(a),
	)
	return root
}

// skipsDatabase reports whether cmd only prints help or completion scripts
// and must not create the database file.
func skipsDatabase(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch c.Name() {
		case "help", "completion", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
			return true
		}
	}
	return false
}

func (a *app) open() error {
	cfg, err := config.NewConfig(a.configFile)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.Database.Path = a.dbPath
	}
	a.cfg = cfg

	mgr, err := library.Open(library.ManagerConfig{
		DatabasePath: cfg.Database.Path,
		BusyTimeout:  cfg.Database.BusyTimeout,
		BcryptCost:   cfg.Auth.BcryptCost,
		Logger:       newLogger(a.err, cfg.Log),
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	a.mgr = mgr
	return nil
}

func (a *app) close() {
	if a.mgr != nil {
		a.mgr.Close()
		a.mgr = nil
	}
}

func newLogger(w io.Writer, cfg config.Log) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// printJSON writes v when --json is set and reports whether it did.
func (a *app) printJSON(v any) (bool, error) {
	if !a.asJSON {
		return false, nil
	}
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %s", kind, s)
	}
	return id, nil
}
