package build

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/inful/mdfp"

	"git.home.luguber.info/inful/portfolio/internal/content"
	"git.home.luguber.info/inful/portfolio/internal/frontmatter"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
)

const postFileName = "index.md"

// stagePosts renders every post directory. Posts that cannot be built are
// skipped and turn the stage result into a warning.
func (p *Pipeline) stagePosts(ctx context.Context, st *buildState) error {
	slugs, err := listPostDirs(st.src.ContentBlogDir)
	if err != nil {
		return err
	}

	skipped := 0
	for _, slug := range slugs {
		if err := ctx.Err(); err != nil {
			return err
		}
		entry, err := p.buildPost(st, slug)
		if err != nil {
			skipped++
			st.report.skipPost()
			st.report.addIssue(StagePosts, SeverityError, slug, err.Error())
			p.logger.Error("Skipping post", logfields.Slug(slug), logfields.Error(err))
			continue
		}
		if entry != nil {
			st.index = append(st.index, *entry)
		}
	}
	if skipped > 0 {
		return newWarnStageError(StagePosts, fmt.Errorf("%d post(s) skipped", skipped))
	}
	return nil
}

// listPostDirs returns the sorted post directory names. A missing blog
// directory is an empty blog.
func listPostDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list post directories: %w", err)
	}
	var slugs []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			slugs = append(slugs, e.Name())
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// buildPost processes one post directory. A directory without index.md
// yields (nil, nil).
func (p *Pipeline) buildPost(st *buildState, slug string) (*IndexEntry, error) {
	data, err := os.ReadFile(st.src.PostFile(slug))
	if errors.Is(err, os.ErrNotExist) {
		p.logger.Debug("Post directory has no index.md", logfields.Slug(slug))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read post: %w", err)
	}

	post, warnings, err := content.ParsePost(data, slug)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		p.logger.Warn("Post frontmatter problem", logfields.Slug(slug), "warning", w)
		st.report.addIssue(StagePosts, SeverityWarning, slug, w)
	}

	rendered, err := p.renderer.Render([]byte(post.Content))
	if err != nil {
		return nil, err
	}
	for _, w := range rendered.Warnings {
		p.logger.Warn("Code block fell back to plain rendering", logfields.Slug(slug), "warning", w)
		st.report.addIssue(StagePosts, SeverityWarning, slug, w)
	}

	entry := IndexEntry{
		Title:       post.Title,
		Slug:        post.Slug,
		Date:        post.Date,
		Tags:        post.Tags,
		Excerpt:     post.Excerpt,
		Published:   post.Published,
		Featured:    post.Featured,
		CoverImage:  CoverImageURL(slug, post.CoverImage),
		ReadingTime: rendered.ReadingTime,
		WordCount:   rendered.Words,
	}

	outDir := filepath.Join(st.out.GeneratedBlogDir, slug)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	copied, err := copyAssets(st.src.PostDir(slug), outDir)
	if err != nil {
		return nil, err
	}
	for _, name := range rendered.Assets {
		if _, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(name))); err != nil {
			msg := fmt.Sprintf("referenced asset %q not found", name)
			p.logger.Warn("Missing post asset", logfields.Slug(slug), logfields.File(name))
			st.report.addIssue(StagePosts, SeverityWarning, slug, msg)
		}
	}

	doc := PostDocument{Meta: entry, Content: rendered.HTML, TOC: rendered.TOC}
	if err := writeJSON(filepath.Join(outDir, "index.json"), doc); err != nil {
		return nil, err
	}

	fm, body, _, _ := frontmatter.Split(data)
	st.report.addDocument(DocumentInfo{
		Slug:        slug,
		Fingerprint: mdfp.CalculateFingerprintFromParts(string(fm), string(body)),
		WordCount:   rendered.Words,
		Assets:      copied,
		Warnings:    append(warnings, rendered.Warnings...),
	})
	return &entry, nil
}

// CoverImageURL maps a post-relative cover image ("./cover.png") to its
// public URL. Other values are returned unchanged.
func CoverImageURL(slug, cover string) string {
	if rest, ok := strings.CutPrefix(cover, "./"); ok {
		return "/blog/" + slug + "/" + rest
	}
	return cover
}

// copyAssets copies every file of srcDir except index.md into dstDir,
// descending into subdirectories. Hidden files are skipped.
func copyAssets(srcDir, dstDir string) (int, error) {
	count := 0
	err := filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		target := filepath.Join(dstDir, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if rel == postFileName || !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("copy assets: %w", err)
	}
	return count, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// writeJSON writes v with two-space indentation and HTML left unescaped.
func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
