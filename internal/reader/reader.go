// Package reader serves the public views. It reads only the generated tree,
// never the source content.
package reader

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"git.home.luguber.info/inful/portfolio/internal/build"
	"git.home.luguber.info/inful/portfolio/internal/content"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/paths"
	"git.home.luguber.info/inful/portfolio/internal/slug"
)

// Reader answers public queries from the generated output.
type Reader struct {
	paths paths.Paths
}

// New returns a Reader over p's generated directory.
func New(p paths.Paths) *Reader {
	return &Reader{paths: p}
}

// ListPosts returns published posts in index order. A non-empty tag keeps
// only posts carrying it, compared case-insensitively.
func (r *Reader) ListPosts(tag string) ([]build.IndexEntry, error) {
	entries, err := r.index()
	if err != nil {
		return nil, err
	}
	tag = strings.TrimSpace(tag)
	out := make([]build.IndexEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Published {
			continue
		}
		if tag != "" && !slices.ContainsFunc(e.Tags, func(t string) bool { return strings.EqualFold(t, tag) }) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Tags returns the distinct tags of published posts, sorted.
func (r *Reader) Tags() ([]string, error) {
	entries, err := r.ListPosts("")
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	tags := []string{}
	for _, e := range entries {
		for _, t := range e.Tags {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			tags = append(tags, t)
		}
	}
	slices.Sort(tags)
	return tags, nil
}

// GetPost returns the document of a published post.
func (r *Reader) GetPost(rawSlug string) (*build.PostDocument, error) {
	key := slug.Normalize(rawSlug)
	if key == "" {
		return nil, postNotFound(rawSlug)
	}
	var doc build.PostDocument
	found, err := readJSON(filepath.Join(r.paths.GeneratedBlogDir, key, "index.json"), &doc)
	if err != nil {
		return nil, err
	}
	if !found || !doc.Meta.Published {
		return nil, postNotFound(rawSlug)
	}
	return &doc, nil
}

// ListProjects returns the generated projects array.
func (r *Reader) ListProjects() ([]content.Project, error) {
	var projects []content.Project
	if _, err := readJSON(r.paths.GeneratedProjectsPath, &projects); err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []content.Project{}
	}
	return projects, nil
}

// GetProject returns one project by id.
func (r *Reader) GetProject(rawID string) (*content.Project, error) {
	projects, err := r.ListProjects()
	if err != nil {
		return nil, err
	}
	i := content.FindProject(projects, slug.NormalizeProjectID(rawID))
	if i < 0 {
		return nil, foundationerrors.NotFoundError(`project with ID "` + rawID + `" not found`).
			WithContext("id", rawID).
			Build()
	}
	return &projects[i], nil
}

// Skills returns the generated skills document as stored.
func (r *Reader) Skills() (json.RawMessage, error) {
	data, err := os.ReadFile(r.paths.GeneratedSkillsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, foundationerrors.NotFoundError("skills not found").Build()
	}
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "read skills").Build()
	}
	return json.RawMessage(data), nil
}

func (r *Reader) index() ([]build.IndexEntry, error) {
	var entries []build.IndexEntry
	if _, err := readJSON(r.paths.GeneratedBlogIndexPath, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// readJSON decodes path into v. A missing file is not an error; found
// reports whether it existed.
func readJSON(path string, v any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "read generated file").
			WithContext("path", path).
			Build()
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "decode generated file").
			WithContext("path", path).
			Build()
	}
	return true, nil
}

func postNotFound(raw string) error {
	return foundationerrors.NotFoundError(`blog post with slug "` + raw + `" not found`).
		WithContext("slug", raw).
		Build()
}
