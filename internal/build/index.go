package build

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"git.home.luguber.info/inful/portfolio/internal/logfields"
)

// SortIndex orders entries by date descending. Dates are compared as
// strings, so ISO-8601 values sort chronologically and malformed ones still
// get a stable position. Equal dates fall back to slug order.
func SortIndex(entries []IndexEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].Slug < entries[j].Slug
	})
}

func (p *Pipeline) stageIndex(_ context.Context, st *buildState) error {
	if st.index == nil {
		st.index = []IndexEntry{}
	}
	SortIndex(st.index)
	return writeJSON(st.out.GeneratedBlogIndexPath, st.index)
}

// stageStatic copies projects.json and skills.json verbatim. A missing file
// is skipped; a file that is not valid JSON fails the build.
func (p *Pipeline) stageStatic(_ context.Context, st *buildState) error {
	files := []struct{ src, dst string }{
		{st.src.ContentProjectsPath, st.out.GeneratedProjectsPath},
		{st.src.ContentSkillsPath, st.out.GeneratedSkillsPath},
	}
	for _, f := range files {
		data, err := os.ReadFile(f.src)
		if errors.Is(err, os.ErrNotExist) {
			p.logger.Info("Static content file not found, skipping", logfields.Path(f.src))
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", f.src, err)
		}
		if !json.Valid(data) {
			return fmt.Errorf("%s is not valid JSON", f.src)
		}
		if err := os.WriteFile(f.dst, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.dst, err)
		}
	}
	return nil
}

func (p *Pipeline) stageReport(_ context.Context, st *buildState) error {
	st.report.deriveOutcome()
	if err := st.report.persist(st.staging); err != nil {
		return newWarnStageError(StageReport, err)
	}
	return nil
}
