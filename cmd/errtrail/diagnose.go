package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/log/global"

	"github.com/fyrsmithlabs/errtrail/internal/config"
	"github.com/fyrsmithlabs/errtrail/internal/diag"
	"github.com/fyrsmithlabs/errtrail/internal/logging"
	"github.com/fyrsmithlabs/errtrail/internal/telemetry"
	"github.com/fyrsmithlabs/errtrail/internal/tracking"
	"github.com/fyrsmithlabs/errtrail/pkg/errtrail"
)

type diagnoseOptions struct {
	name        string
	message     string
	kind        string
	stackFile   string
	configPath  string
	output      string
	logLevel    string
	breadcrumbs []string
}

func newDiagnoseCmd() *cobra.Command {
	opts := &diagnoseOptions{}
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Classify a failure and print the report",
		Long: `Classify a failure and print the diagnostic report.

Breadcrumbs are given as category:name and recorded in order inside a fresh
execution context before the failure is reported.

Examples:
  # Classify a message
  errtrail diagnose --message "Cannot read property 'id' of undefined"

  # Include a Go panic trace from a file
  errtrail diagnose --name panic --message "runtime error: index out of range" --kind uncaught --stack-file panic.txt

  # Read the stack from stdin and print a summary
  cat trace.txt | errtrail diagnose --message "connection refused" --stack-file - --output text

  # Replay the path that led to the failure
  errtrail diagnose --message boom --kind uncaught --breadcrumb call:auth --breadcrumb middleware:session

With telemetry.enabled set in the config, the report spans and metrics are
exported to the configured OTLP collector. Diagnostic logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "Error", "failure name")
	cmd.Flags().StringVar(&opts.message, "message", "", "failure message (required)")
	cmd.Flags().StringVar(&opts.kind, "kind", string(diag.KindManual), "failure kind: uncaught, unhandled or manual")
	cmd.Flags().StringVar(&opts.stackFile, "stack-file", "", "file holding the raw stack, or - for stdin")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/errtrail/config.yaml)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "output format: json or text")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "stderr log level, overrides log.level")
	cmd.Flags().StringArrayVar(&opts.breadcrumbs, "breadcrumb", nil, "breadcrumb as category:name, repeatable")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}

func runDiagnose(cmd *cobra.Command, opts *diagnoseOptions) error {
	kind, ok := diag.ParseKind(opts.kind)
	if !ok {
		return fmt.Errorf("invalid kind %q: must be uncaught, unhandled or manual", opts.kind)
	}
	if opts.output != "json" && opts.output != "text" {
		return fmt.Errorf("invalid output %q: must be json or text", opts.output)
	}

	crumbs, err := parseBreadcrumbs(opts.breadcrumbs)
	if err != nil {
		return err
	}

	stack, err := readStack(cmd.InOrStdin(), opts.stackFile)
	if err != nil {
		return err
	}

	cfg, err := config.LoadWithFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	// Every breadcrumb given on the command line must be kept.
	cfg.Tracker.SampleRate = 1
	if cfg.Tracker.MaxDepth < len(crumbs) {
		cfg.Tracker.MaxDepth = len(crumbs)
	}

	cfg.Log.Level = opts.logLevel
	logger, err := logging.NewLogger(cfg.Log, global.GetLoggerProvider())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	tel, err := telemetry.New(cmd.Context(), cfg.Telemetry, telemetry.WithLogger(logger.Underlying()))
	if err != nil {
		return fmt.Errorf("failed to start telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "telemetry shutdown: %v\n", err)
		}
	}()

	d, err := errtrail.Enable(cfg, errtrail.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to enable diagnostics: %w", err)
	}
	defer d.Disable()

	failure := diag.Failure{
		Name:    opts.name,
		Message: opts.message,
		Stack:   stack,
		Kind:    kind,
	}

	var report *errtrail.Report
	err = d.Run(cmd.Context(), map[string]any{"source": "cli"}, func(ctx context.Context) error {
		for _, c := range crumbs {
			d.Record(ctx, c.name, c.category, nil)
		}
		report, ok = d.Report(ctx, failure)
		if !ok {
			return fmt.Errorf("failure was not diagnosed")
		}
		return nil
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.output == "text" {
		return writeText(out, report)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type breadcrumbArg struct {
	category tracking.Category
	name     string
}

func parseBreadcrumbs(raw []string) ([]breadcrumbArg, error) {
	out := make([]breadcrumbArg, 0, len(raw))
	for _, r := range raw {
		cat, name, found := strings.Cut(r, ":")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid breadcrumb %q: expected category:name", r)
		}
		c := tracking.Category(cat)
		if !c.Valid() {
			return nil, fmt.Errorf("invalid breadcrumb category %q", cat)
		}
		out = append(out, breadcrumbArg{category: c, name: name})
	}
	return out, nil
}

func readStack(stdin io.Reader, path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stack from stdin: %w", err)
		}
		return string(b), nil
	default:
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read stack file %s: %w", path, err)
		}
		return string(b), nil
	}
}

func writeText(w io.Writer, report *errtrail.Report) error {
	a := report.Analysis
	var sb strings.Builder

	pattern := a.Pattern
	if pattern == "" {
		pattern = "unknown"
	}
	fmt.Fprintf(&sb, "Failure:    %s: %s (%s)\n", report.Bundle.Failure.Name, report.Bundle.Failure.Message, report.Bundle.Failure.Kind)
	fmt.Fprintf(&sb, "Pattern:    %s\n", pattern)
	fmt.Fprintf(&sb, "Confidence: %.2f\n", a.Confidence)

	sb.WriteString("\nCauses:\n")
	for _, c := range a.Causes {
		fmt.Fprintf(&sb, "  - %s (%.2f)\n", c.Description, c.Confidence)
	}
	if len(a.Fixes) > 0 {
		sb.WriteString("\nFixes:\n")
		for _, f := range a.Fixes {
			fmt.Fprintf(&sb, "  - [%s] %s (%.2f)\n", f.Category, f.Description, f.Confidence)
		}
	}
	if len(a.PreventionTips) > 0 {
		sb.WriteString("\nPrevention:\n")
		for _, tip := range a.PreventionTips {
			fmt.Fprintf(&sb, "  - %s\n", tip)
		}
	}
	if a.Explanation != "" {
		fmt.Fprintf(&sb, "\n%s\n", a.Explanation)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
