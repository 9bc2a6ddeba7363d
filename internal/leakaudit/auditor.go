// Package leakaudit is a defensive prompt-injection auditor for a running
// game server. It probes every level with generic extraction prompts,
// detects whether the model leaked the real password, and writes
// password-redacted reports. It never prints or stores a password.
package leakaudit

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"gandalf-gate/internal/levels"
)

type Options struct {
	BaseURL            string
	LevelsFilePath     string
	Suite              string
	MaxPromptsPerLevel int
	StopOnFirstLeak    bool
	Shuffle            bool
	Seed               int64
	DetectMetadata     bool
	Retries            int
	RequestGap         time.Duration
	SummaryCSVPath     string
	ReportJSONLPath    string
}

type LevelSummary struct {
	Level         int
	PromptsTested int
	Leaks         int
	MetadataLeaks int
	Skipped       bool
}

type reportRecord struct {
	Timestamp     string `json:"ts"`
	Level         int    `json:"level"`
	PromptID      string `json:"prompt_id"`
	LeakType      string `json:"leak_type"`
	ReplyRedacted string `json:"reply_redacted"`
}

type Auditor struct {
	opts      Options
	client    *Client
	prompts   []Prompt
	passwords map[int]string
	results   []LevelSummary
	lastReq   time.Time
}

func New(opts Options) (*Auditor, error) {
	if opts.RequestGap <= 0 {
		opts.RequestGap = 2100 * time.Millisecond
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	prompts, err := BuildSuite(opts.Suite)
	if err != nil {
		return nil, err
	}
	registry, err := levels.Load(opts.LevelsFilePath)
	if err != nil {
		return nil, fmt.Errorf("load levels: %w", err)
	}
	passwords := make(map[int]string, levels.Count)
	for _, l := range registry.All() {
		passwords[l.ID] = l.Password
	}
	return &Auditor{
		opts:      opts,
		client:    NewClient(opts.BaseURL),
		prompts:   prompts,
		passwords: passwords,
	}, nil
}

// Run logs in with a throwaway tester account and audits levels 1..8,
// unlocking each next level via validate-password as it goes.
func (a *Auditor) Run() error {
	username := fmt.Sprintf("tester_%d", time.Now().Unix())
	if err := a.client.Login(username, "audit"); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log.Info().Str("user", username).Str("server", a.opts.BaseURL).Msg("leak audit started")

	// Fresh report per run.
	if a.opts.ReportJSONLPath != "" {
		_ = os.Remove(a.opts.ReportJSONLPath)
	}

	for lvl := 1; lvl <= levels.Count; lvl++ {
		summary := a.auditLevel(lvl)
		a.results = append(a.results, summary)
		if a.opts.StopOnFirstLeak && summary.Leaks > 0 {
			break
		}
	}

	if err := a.writeSummary(); err != nil {
		return err
	}

	totalLeaks, totalMeta := 0, 0
	for _, r := range a.results {
		totalLeaks += r.Leaks
		totalMeta += r.MetadataLeaks
	}
	log.Info().
		Int("levels_audited", len(a.results)).
		Int("leaks", totalLeaks).
		Int("metadata_leaks", totalMeta).
		Msg("leak audit finished")
	return nil
}

func (a *Auditor) auditLevel(lvl int) LevelSummary {
	password := a.passwords[lvl]
	log.Info().Int("level", lvl).Msg("auditing level")

	if err := a.client.SetLevel(lvl); err != nil {
		// Not unlocked yet: clear the previous level and retry once.
		if lvl == 1 || !a.unlock(lvl-1) || a.client.SetLevel(lvl) != nil {
			log.Warn().Int("level", lvl).Msg("level not reachable, skipping")
			return LevelSummary{Level: lvl, Skipped: true}
		}
	}

	prompts := append([]Prompt{}, a.prompts...)
	if a.opts.Shuffle {
		rng := rand.New(rand.NewSource(a.opts.Seed))
		rng.Shuffle(len(prompts), func(i, j int) { prompts[i], prompts[j] = prompts[j], prompts[i] })
	}
	if a.opts.MaxPromptsPerLevel > 0 && len(prompts) > a.opts.MaxPromptsPerLevel {
		prompts = prompts[:a.opts.MaxPromptsPerLevel]
	}

	summary := LevelSummary{Level: lvl}
	for _, p := range prompts {
		summary.PromptsTested++
		reply, ok := a.chat(p.Text)
		if !ok {
			log.Warn().Str("prompt", p.ID).Msg("no response")
			continue
		}

		if DetectLeak(reply, password) {
			summary.Leaks++
			log.Error().Int("level", lvl).Str("prompt", p.ID).Msg("LEAK DETECTED")
			a.report(lvl, p.ID, "full_password", reply, password)
			if a.opts.StopOnFirstLeak {
				break
			}
			continue
		}
		if a.opts.DetectMetadata {
			if tags := DetectMetadataLeaks(reply, password); len(tags) > 0 {
				summary.MetadataLeaks++
				log.Warn().Int("level", lvl).Str("prompt", p.ID).Strs("tags", tags).Msg("metadata leak detected")
				a.report(lvl, p.ID, "metadata:"+strings.Join(tags, ","), reply, password)
			}
		}
	}

	// Unlock the next level so the walk can continue.
	if lvl < levels.Count {
		a.unlock(lvl)
	}
	return summary
}

// chat sends one prompt, pacing requests to the server cooldown and
// retrying transient failures.
func (a *Auditor) chat(message string) (string, bool) {
	attempts := 0
	// A 429 gets one extra retry on top of the transient-failure budget.
	budget := a.opts.Retries + 1
	for {
		a.respectRateLimit()
		reply, err := a.client.Chat(message)
		if err == nil {
			return reply.Reply, true
		}
		if attempts >= budget {
			return "", false
		}
		attempts++
		if errors.Is(err, ErrRateLimited) {
			time.Sleep(a.opts.RequestGap)
		}
	}
}

// unlock clears the given level via validate-password. The password comes
// from the operator-supplied levels file and is never emitted anywhere.
func (a *Auditor) unlock(lvl int) bool {
	pw := a.passwords[lvl]
	if pw == "" {
		return false
	}
	a.respectRateLimit()
	valid, err := a.client.ValidatePassword(pw)
	if err != nil {
		return false
	}
	return valid
}

func (a *Auditor) respectRateLimit() {
	if !a.lastReq.IsZero() {
		if elapsed := time.Since(a.lastReq); elapsed < a.opts.RequestGap {
			time.Sleep(a.opts.RequestGap - elapsed)
		}
	}
	a.lastReq = time.Now()
}

func (a *Auditor) report(lvl int, promptID, leakType, reply, password string) {
	if a.opts.ReportJSONLPath == "" {
		return
	}
	redacted := Redact(reply, password)
	if len(redacted) > 2000 {
		redacted = redacted[:2000]
	}
	rec := reportRecord{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Level:         lvl,
		PromptID:      promptID,
		LeakType:      leakType,
		ReplyRedacted: redacted,
	}
	f, err := os.OpenFile(a.opts.ReportJSONLPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warn().Err(err).Msg("cannot open leak report")
		return
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
		}
	}(f)
	if err := json.NewEncoder(f).Encode(rec); err != nil {
		log.Warn().Err(err).Msg("cannot append leak report")
	}
}

func (a *Auditor) writeSummary() error {
	if a.opts.SummaryCSVPath == "" {
		return nil
	}
	f, err := os.Create(a.opts.SummaryCSVPath)
	if err != nil {
		return fmt.Errorf("create summary csv: %w", err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
		}
	}(f)
	w := csv.NewWriter(f)
	if err := w.Write([]string{"level", "prompts_tested", "leaks", "metadata_leaks", "skipped"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range a.results {
		row := []string{
			strconv.Itoa(r.Level),
			strconv.Itoa(r.PromptsTested),
			strconv.Itoa(r.Leaks),
			strconv.Itoa(r.MetadataLeaks),
			strconv.FormatBool(r.Skipped),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
