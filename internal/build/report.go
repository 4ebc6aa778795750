package build

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/portfolio/internal/version"
)

// ReportFileName is the build report written into the generated tree.
const ReportFileName = "build-report.json"

// Outcome is the final state of a build.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeWarning  Outcome = "warning"
	OutcomeFailed   Outcome = "failed"
	OutcomeCanceled Outcome = "canceled"
)

// IssueSeverity represents normalized severity levels.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue is one problem met during a build.
type Issue struct {
	Stage    StageName     `json:"stage"`
	Severity IssueSeverity `json:"severity"`
	Slug     string        `json:"slug,omitempty"`
	Message  string        `json:"message"`
}

// DocumentInfo describes one generated post.
type DocumentInfo struct {
	Slug        string   `json:"slug"`
	Fingerprint string   `json:"fingerprint"`
	WordCount   int      `json:"wordCount"`
	Assets      int      `json:"assets"`
	Warnings    []string `json:"warnings,omitempty"`
}

// Report captures what a build did. It is safe for concurrent use.
type Report struct {
	mu sync.Mutex

	SchemaVersion    int                       `json:"schemaVersion"`
	Version          string                    `json:"version"`
	Start            time.Time                 `json:"start"`
	End              time.Time                 `json:"end"`
	Outcome          Outcome                   `json:"outcome"`
	Posts            int                       `json:"posts"`
	SkippedPosts     int                       `json:"skippedPosts"`
	StageDurationsMS map[StageName]float64     `json:"stageDurationsMs"`
	StageResults     map[StageName]StageResult `json:"stageResults"`
	Documents        []DocumentInfo            `json:"documents"`
	Issues           []Issue                   `json:"issues"`
}

func newReport(start time.Time) *Report {
	return &Report{
		SchemaVersion:    1,
		Version:          version.Version,
		Start:            start,
		StageDurationsMS: map[StageName]float64{},
		StageResults:     map[StageName]StageResult{},
		Documents:        []DocumentInfo{},
		Issues:           []Issue{},
	}
}

func (r *Report) recordStage(stage StageName, d time.Duration, se *StageError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.StageDurationsMS[stage] = float64(d.Microseconds()) / 1000
	r.StageResults[stage] = resultFromKind(se)
	if se == nil {
		return
	}
	sev := SeverityError
	if se.Kind == StageErrorWarning {
		sev = SeverityWarning
	}
	r.Issues = append(r.Issues, Issue{Stage: stage, Severity: sev, Message: se.Err.Error()})
}

func (r *Report) addIssue(stage StageName, sev IssueSeverity, slug, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Issues = append(r.Issues, Issue{Stage: stage, Severity: sev, Slug: slug, Message: msg})
}

func (r *Report) addDocument(d DocumentInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Documents = append(r.Documents, d)
	r.Posts++
}

func (r *Report) skipPost() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SkippedPosts++
}

// deriveOutcome sets Outcome from the stage results recorded so far.
func (r *Report) deriveOutcome() {
	r.mu.Lock()
	defer r.mu.Unlock()
	outcome := OutcomeSuccess
	for _, res := range r.StageResults {
		switch res {
		case StageResultCanceled:
			r.Outcome = OutcomeCanceled
			return
		case StageResultFatal:
			outcome = OutcomeFailed
		case StageResultWarning:
			if outcome == OutcomeSuccess {
				outcome = OutcomeWarning
			}
		}
	}
	if outcome == OutcomeSuccess && len(r.Issues) > 0 {
		outcome = OutcomeWarning
	}
	r.Outcome = outcome
}

func (r *Report) finish(end time.Time) {
	r.mu.Lock()
	r.End = end
	r.mu.Unlock()
	r.deriveOutcome()
}

// Summary is a one-line human readable description.
func (r *Report) Summary() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("outcome=%s posts=%d skipped=%d issues=%d duration=%s",
		r.Outcome, r.Posts, r.SkippedPosts, len(r.Issues), r.End.Sub(r.Start).Round(time.Millisecond))
}

// persist writes the report as JSON into dir via a temp file and rename.
func (r *Report) persist(dir string) error {
	r.mu.Lock()
	sort.Slice(r.Documents, func(i, j int) bool { return r.Documents[i].Slug < r.Documents[j].Slug })
	data, err := json.MarshalIndent(r, "", "  ")
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal report json: %w", err)
	}
	path := filepath.Join(dir, ReportFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp report json: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("atomic rename report json: %w", err)
	}
	return nil
}

// LoadReport reads the build report of the live generated tree.
func LoadReport(generatedDir string) (*Report, error) {
	data, err := os.ReadFile(filepath.Join(generatedDir, ReportFileName))
	if err != nil {
		return nil, err
	}
	r := &Report{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode build report: %w", err)
	}
	return r, nil
}
