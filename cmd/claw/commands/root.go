// Package commands implements the claw CLI.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kr8tiv/claw/pkg/claw/harness"
	"github.com/kr8tiv/claw/pkg/claw/paths"
	"github.com/kr8tiv/claw/pkg/claw/tenant"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitInvalid = 2
)

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "claw",
		Short: "Compile tenant agent harnesses into deployable artifacts",
		Long: `claw turns a declarative harness spec (YAML or JSON) into the files a
tenant's agent runtime needs: workspace documents, openclaw.json, a skill
pack manifest and a docker-compose template.

Examples:
  claw validate --harness harness.yaml
  claw compile --harness harness.yaml --out ./out --tenant acme-support
  claw compose --harness harness.yaml --out ./out --tenant acme-support-1234abcd --watchdog
  claw memory search --harness harness.yaml --tenant-id acme-support-1234abcd --query "refund policy"`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadEnvFile,
	}

	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("log-format", "text", "log format (text, json)")
	root.PersistentFlags().String("env-file", "", "load environment from this file (default ./.env or <state>/.env)")

	root.AddCommand(
		newValidateCmd(),
		newCompileCmd(),
		newComposeCmd(),
		newHealthCmd(),
		newWatchdogCmd(),
		newMemoryCmd(),
		newSkillsCmd(),
	)
	return root
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(version string, args []string) int {
	root := NewRootCmd(version)
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintf(root.ErrOrStderr(), "claw: %v\n", err)
	}
	return ExitCode(err)
}

// ExitCode maps an error to the process exit code. Invalid input (schema
// violations, underivable tenant identity) exits 2; anything else exits 1.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var vErr *harness.ValidationError
	var idErr *tenant.IdentityError
	if errors.As(err, &vErr) || errors.As(err, &idErr) {
		return ExitInvalid
	}
	return ExitFailure
}

// loadEnvFile loads a .env file without overriding variables already set.
// An explicit --env-file must exist; the implicit locations are optional.
func loadEnvFile(cmd *cobra.Command, _ []string) error {
	explicit, _ := cmd.Root().PersistentFlags().GetString("env-file")
	path := paths.ResolveEnvFile(explicit)
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil && explicit != "" {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// newLogger builds the slog logger from the persistent flags. Logs go to
// stderr so stdout stays machine-readable.
func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	format, _ := cmd.Root().PersistentFlags().GetString("log-format")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	} else {
		handler = slog.NewTextHandler(cmd.ErrOrStderr(), opts)
	}
	return slog.New(handler)
}

// printJSON writes v as indented JSON followed by a newline.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
