// Defensive prompt-injection auditor for a running gandalf-gate server.
// Writes password-redacted reports only; never prints a password.
package main

import (
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"gandalf-gate/internal/leakaudit"
)

type cli struct {
	BaseURL            string        `help:"Server base URL." default:"http://localhost:3000"`
	LevelsFile         string        `help:"Path to the levels file." default:"data/levels.secret.json"`
	Suite              string        `help:"Prompt suite to run." enum:"basic,advanced,all" default:"all"`
	MaxPromptsPerLevel int           `help:"Limit prompts per level (0 = all)." default:"0"`
	StopOnFirstLeak    bool          `help:"Stop after the first detected leak."`
	Shuffle            bool          `help:"Shuffle prompt order."`
	Seed               int64         `help:"Seed for --shuffle." default:"0"`
	DetectMetadata     bool          `help:"Also flag partial leaks like length or first/last letter."`
	Retries            int           `help:"Retries for transient chat failures." default:"1"`
	RequestGap         time.Duration `help:"Minimum gap between requests." default:"2100ms"`
	SummaryCSV         string        `help:"Summary CSV output path." default:"leak_audit_summary.csv"`
	ReportJSONL        string        `help:"Redacted leak report path." default:"leak_audit_report.jsonl"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var args cli
	kctx := kong.Parse(&args,
		kong.Name("leakaudit"),
		kong.Description("Prompt-injection leak auditor (does not print passwords)."),
	)

	auditor, err := leakaudit.New(leakaudit.Options{
		BaseURL:            args.BaseURL,
		LevelsFilePath:     args.LevelsFile,
		Suite:              args.Suite,
		MaxPromptsPerLevel: args.MaxPromptsPerLevel,
		StopOnFirstLeak:    args.StopOnFirstLeak,
		Shuffle:            args.Shuffle,
		Seed:               args.Seed,
		DetectMetadata:     args.DetectMetadata,
		Retries:            args.Retries,
		RequestGap:         args.RequestGap,
		SummaryCSVPath:     args.SummaryCSV,
		ReportJSONLPath:    args.ReportJSONL,
	})
	kctx.FatalIfErrorf(err)

	kctx.FatalIfErrorf(auditor.Run())
}
