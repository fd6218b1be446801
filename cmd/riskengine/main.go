// Command riskengine evaluates insolvency cases against a codified
// rulebook and emits deterministic, hashable risk results.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/casefile"
	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/config"
	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/engine"
	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/result"
	"github.com/Iruma16/phoenix-insolvency-360-sub001/pkg/rulebook"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split from main for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}
	switch args[1] {
	case "evaluate":
		return runEvaluate(args[2:], stdout, stderr)
	case "validate":
		return runValidate(args[2:], stdout, stderr)
	case "verify":
		return runVerify(args[2:], stdout, stderr)
	case "version":
		_, _ = fmt.Fprintf(stdout, "riskengine %s\n", engine.Version)
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	}
	_, _ = fmt.Fprintf(stderr, "unknown command %q\n", args[1])
	usage(stderr)
	return 2
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Usage: riskengine <command>

Commands:
  evaluate   Evaluate a case against a rulebook and print the result JSON
  validate   Structurally validate a rulebook and print its content hash
  verify     Recompute a stored result's canonical hash (replay check)
  version    Print the engine version`)
}

func runEvaluate(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	fs := flag.NewFlagSet("evaluate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	rulebookPath := fs.String("rulebook", cfg.RulebookPath, "rulebook file (YAML or JSON); empty uses the bundled TRLC rulebook")
	casePath := fs.String("case", "", "case variables file (flat JSON object)")
	contextPath := fs.String("context", "", "retrieved legal context text file")
	caseID := fs.String("case-id", "", "case identifier (defaults to a fresh UUID)")
	pretty := fs.Bool("pretty", false, "indent the result JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *casePath == "" {
		_, _ = fmt.Fprintln(stderr, "evaluate: -case is required")
		return 2
	}

	logger := newLogger(stderr, cfg)

	rb, err := loadRulebook(*rulebookPath)
	if err != nil {
		logger.Error("rulebook load failed", "error", err)
		return 1
	}

	env, err := casefile.Load(*casePath)
	if err != nil {
		logger.Error("case load failed", "error", err)
		return 1
	}

	var legalContext string
	if *contextPath != "" {
		data, err := os.ReadFile(*contextPath)
		if err != nil {
			logger.Error("legal context load failed", "error", err)
			return 1
		}
		legalContext = string(data)
	}

	id := *caseID
	if id == "" {
		id = uuid.New().String()
	}

	ev := engine.New(rb, engine.WithLogger(logger)).Evaluate(env.Vars(), legalContext)
	res, err := result.NewBuilder(id).WithRulebook(rb).WithEvaluation(ev).Build()
	if err != nil {
		logger.Error("result build failed", "error", err)
		return 1
	}

	enc := json.NewEncoder(stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(res); err != nil {
		logger.Error("result encode failed", "error", err)
		return 1
	}
	return 0
}

func runValidate(args []string, stdout, stderr io.Writer) int {
	cfg := config.Load()
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	rulebookPath := fs.String("rulebook", cfg.RulebookPath, "rulebook file (YAML or JSON); empty uses the bundled TRLC rulebook")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rb, err := loadRulebook(*rulebookPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid rulebook: %v\n", err)
		return 1
	}
	hash, err := rb.Hash()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "hash failed: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "%s %s ok (%d rules, hash %s)\n",
		rb.Metadata.Name, rb.Metadata.Version, len(rb.Rules), hash)
	return 0
}

func runVerify(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	resultPath := fs.String("result", "", "stored result JSON file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *resultPath == "" {
		_, _ = fmt.Fprintln(stderr, "verify: -result is required")
		return 2
	}

	data, err := os.ReadFile(*resultPath)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "verify: %v\n", err)
		return 1
	}
	var res result.RuleEngineResult
	if err := json.Unmarshal(data, &res); err != nil {
		_, _ = fmt.Fprintf(stderr, "verify: parse result: %v\n", err)
		return 1
	}

	ok, err := result.Verify(&res)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "verify: %v\n", err)
		return 1
	}
	if !ok {
		_, _ = fmt.Fprintf(stderr, "verify: hash mismatch, content was altered after build\n")
		return 1
	}
	_, _ = fmt.Fprintf(stdout, "ok %s\n", res.Hash)
	return 0
}

func loadRulebook(path string) (*rulebook.Rulebook, error) {
	if path == "" {
		return rulebook.LoadDefault()
	}
	return rulebook.Load(path)
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}
