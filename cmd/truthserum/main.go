// Command truthserum is a maintenance CLI for the verification core:
// classifier self-test, ad-hoc query evaluation, and receipt verification
// against a SQLite audit log.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/authentic-hadith/truthserum/pkg/config"
	"github.com/authentic-hadith/truthserum/pkg/receipts"
	"github.com/authentic-hadith/truthserum/pkg/safety"
	"github.com/authentic-hadith/truthserum/pkg/store"
	"github.com/authentic-hadith/truthserum/pkg/verification"
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))

	var err error
	switch args[1] {
	case "selftest":
		err = runSelfTest(stdout)
	case "evaluate":
		err = runEvaluate(args[2:], stdout)
	case "verify-receipt":
		err = runVerifyReceipt(args[2:], cfg, stdout)
	default:
		usage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "truthserum: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: truthserum <selftest|evaluate|verify-receipt> [args]")
}

func logLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// runSelfTest checks that the compiled pattern table has not regressed
// below its minimum size.
func runSelfTest(stdout io.Writer) error {
	engine, err := safety.NewEngine()
	if err != nil {
		return err
	}
	stats := engine.Stats()
	fmt.Fprintf(stdout, "categories: %d\n", stats.Categories)
	fmt.Fprintf(stdout, "patterns:   %d\n", stats.TotalPatterns)
	if stats.TotalPatterns < 177 {
		return fmt.Errorf("pattern table regressed: %d patterns", stats.TotalPatterns)
	}
	fmt.Fprintln(stdout, "ok")
	return nil
}

func runEvaluate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print the full result as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("evaluate expects exactly one query argument")
	}

	engine, err := safety.NewEngine()
	if err != nil {
		return err
	}
	result := engine.Evaluate(fs.Arg(0))

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if result.Allowed {
		fmt.Fprintln(stdout, "allowed")
		return nil
	}
	fmt.Fprintf(stdout, "blocked: %s\n%s\n", result.Category, result.SafeResponse)
	return nil
}

func runVerifyReceipt(args []string, cfg *config.Config, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify-receipt", flag.ContinueOnError)
	dbPath := fs.String("db", "truthserum.db", "path to the SQLite audit log")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("verify-receipt expects exactly one receipt id")
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer func() { _ = db.Close() }()

	auditLog, err := store.NewSQLiteAuditLog(db)
	if err != nil {
		return err
	}
	svc, err := receipts.NewService(verification.NewSigner(cfg.SigningSecret))
	if err != nil {
		return err
	}

	receipt, err := svc.RetrieveAndVerifyReceipt(context.Background(), auditLog, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "receipt %s verified\noperation:  %s\nconfidence: %s\n",
		receipt.ReceiptID, receipt.Operation, receipt.Attestation.Confidence)
	return nil
}
