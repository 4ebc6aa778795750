package content

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/portfolio/internal/frontmatter"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/paths"
)

const (
	postFileName = "index.md"
	dirPerm      = 0o750
	filePerm     = 0o644
)

// Store reads and writes the source content tree.
type Store struct {
	paths  paths.Paths
	locks  *Locks
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store rooted at p.
func NewStore(p paths.Paths, opts ...Option) *Store {
	s := &Store{paths: p, locks: NewLocks(), logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Paths returns the repository layout the store works on.
func (s *Store) Paths() paths.Paths { return s.paths }

// Lock acquires the given resource keys (see PostKey and ProjectsKey).
func (s *Store) Lock(keys ...string) (unlock func()) { return s.locks.Lock(keys...) }

// PostExists reports whether the post directory holds an index.md.
func (s *Store) PostExists(slug string) bool {
	if slug == "" {
		return false
	}
	fi, err := os.Stat(s.paths.PostFile(slug))
	return err == nil && fi.Mode().IsRegular()
}

// ListPostSlugs returns the post directory names in sorted order.
func (s *Store) ListPostSlugs() ([]string, error) {
	entries, err := os.ReadDir(s.paths.ContentBlogDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "list posts").Build()
	}
	slugs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			slugs = append(slugs, e.Name())
		}
	}
	sort.Strings(slugs)
	return slugs, nil
}

// ReadPost loads one post. Frontmatter problems that ParsePost tolerates are
// ignored here; use ParsePost directly to see them.
func (s *Store) ReadPost(slug string) (*Post, error) {
	data, err := os.ReadFile(s.paths.PostFile(slug))
	if errors.Is(err, os.ErrNotExist) {
		return nil, foundationerrors.NotFoundError("blog post not found").WithContext("slug", slug).Build()
	}
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "read post").
			WithContext("slug", slug).
			Build()
	}
	post, _, err := ParsePost(data, slug)
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts reads every post that parses. Unreadable posts are logged and skipped.
func (s *Store) ListPosts() ([]Post, error) {
	slugs, err := s.ListPostSlugs()
	if err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(slugs))
	for _, slug := range slugs {
		if !s.PostExists(slug) {
			continue
		}
		p, err := s.ReadPost(slug)
		if err != nil {
			s.logger.Warn("Skipping unreadable post", logfields.Slug(slug), logfields.Error(err))
			continue
		}
		posts = append(posts, *p)
	}
	return posts, nil
}

// WritePost persists post under post.Slug.
//
// With current empty the post is created and the target must not exist.
// With current equal to post.Slug the existing document is replaced.
// Otherwise the directory of current is moved to post.Slug, carrying its
// assets along, and the document is written there. If that write fails it is
// retried once; if it fails again the directory is moved back.
func (s *Store) WritePost(current string, post Post) error {
	next := post.Slug
	targetDir := s.paths.PostDir(next)

	if err := os.MkdirAll(s.paths.ContentBlogDir, dirPerm); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "create blog directory").Build()
	}

	doc, err := EncodePost(post)
	if err != nil {
		return err
	}

	switch {
	case current == "":
		if dirExists(targetDir) {
			return conflict(next)
		}
		if err := os.Mkdir(targetDir, dirPerm); err != nil {
			if errors.Is(err, os.ErrExist) {
				return conflict(next)
			}
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "create post directory").
				WithContext("slug", next).
				Build()
		}
		if err := s.writeDocument(next, doc); err != nil {
			_ = os.RemoveAll(targetDir)
			return err
		}
		return nil

	case current == next:
		if !dirExists(targetDir) {
			return notFound(current)
		}
		return s.writeDocument(next, doc)

	default:
		currentDir := s.paths.PostDir(current)
		if !dirExists(currentDir) {
			return notFound(current)
		}
		if _, err := os.Lstat(targetDir); err == nil {
			return conflict(next)
		}
		if err := os.Rename(currentDir, targetDir); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "move post directory").
				WithContext("from", current).
				WithContext("to", next).
				Build()
		}
		err := s.writeDocument(next, doc)
		if err != nil {
			s.logger.Warn("Retrying post write after rename", logfields.Slug(next), logfields.Error(err))
			err = s.writeDocument(next, doc)
		}
		if err != nil {
			if rerr := os.Rename(targetDir, currentDir); rerr != nil {
				s.logger.Error("Could not move post back after failed write",
					slog.String("from", next), slog.String("to", current), logfields.Error(rerr))
			}
			return err
		}
		return nil
	}
}

// DeletePost removes the post directory and everything in it. A missing
// directory is an error.
func (s *Store) DeletePost(slug string) error {
	dir := s.paths.PostDir(slug)
	if slug == "" || !dirExists(dir) {
		return notFound(slug)
	}
	if err := os.RemoveAll(dir); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "delete post directory").
			WithContext("slug", slug).
			Build()
	}
	return nil
}

// SaveAsset stores a new file next to the post's index.md. It never
// overwrites an existing file.
func (s *Store) SaveAsset(slug, name string, data []byte) error {
	if name == "" || name == postFileName || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return foundationerrors.ValidationError("invalid asset file name").WithContext("file", name).Build()
	}
	dir := s.paths.PostDir(slug)
	if !dirExists(dir) {
		return notFound(slug)
	}
	if err := writeFileExclusive(filepath.Join(dir, name), data, filePerm); err != nil {
		if errors.Is(err, os.ErrExist) {
			return foundationerrors.ConflictError("asset already exists").WithContext("file", name).Build()
		}
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "write asset").
			WithContext("slug", slug).
			WithContext("file", name).
			Build()
	}
	return nil
}

func (s *Store) writeDocument(slug string, doc []byte) error {
	if err := writeFileAtomic(s.paths.PostFile(slug), doc, filePerm); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "write post document").
			WithContext("slug", slug).
			Build()
	}
	return nil
}

// EncodePost renders post in the fixed index.md shape.
func EncodePost(post Post) ([]byte, error) {
	tags := post.Tags
	if tags == nil {
		tags = []string{}
	}
	fields := []frontmatter.Field{
		{Key: "title", Value: post.Title},
		{Key: "slug", Value: post.Slug},
		{Key: "date", Value: post.Date},
		{Key: "tags", Value: tags},
		{Key: "excerpt", Value: post.Excerpt},
		{Key: "published", Value: post.Published},
		{Key: "featured", Value: post.Featured},
	}
	if post.CoverImage != "" {
		fields = append(fields, frontmatter.Field{Key: "coverImage", Value: post.CoverImage})
	}
	out, err := frontmatter.Emit(fields, post.Content)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "encode post").Build()
	}
	return out, nil
}

// ParsePost decodes an index.md document. Missing required fields and
// mistyped values are reported as warnings and replaced by defaults; only
// a document whose frontmatter cannot be parsed at all is an error. The slug
// defaults to dirSlug, the name of the post directory.
func ParsePost(data []byte, dirSlug string) (Post, []string, error) {
	fm, body, had, err := frontmatter.Split(data)
	if err != nil {
		return Post{}, nil, invalidDocument(dirSlug, err)
	}

	var warnings []string
	fields := map[string]any{}
	if had {
		if fields, err = frontmatter.ParseYAML(fm); err != nil {
			return Post{}, nil, invalidDocument(dirSlug, err)
		}
	} else {
		warnings = append(warnings, "no frontmatter block")
	}

	var post Post
	if err := frontmatter.Decode(fm, &post); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			return Post{}, nil, invalidDocument(dirSlug, err)
		}
		for _, msg := range typeErr.Errors {
			warnings = append(warnings, "invalid field value: "+msg)
		}
	}

	for _, key := range RequiredPostFields {
		if _, ok := fields[key]; !ok {
			warnings = append(warnings, "missing required field: "+key)
		}
	}

	if post.Slug == "" {
		post.Slug = dirSlug
	} else if post.Slug != dirSlug {
		warnings = append(warnings, fmt.Sprintf("frontmatter slug %q differs from directory %q", post.Slug, dirSlug))
		post.Slug = dirSlug
	}
	if post.Tags == nil {
		post.Tags = []string{}
	}
	post.Tags = slices.DeleteFunc(post.Tags, func(t string) bool { return strings.TrimSpace(t) == "" })
	post.Content = strings.TrimSpace(string(body))
	return post, warnings, nil
}

func invalidDocument(slug string, err error) error {
	return foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "invalid post document").
		WithContext("slug", slug).
		Build()
}

func notFound(slug string) error {
	return foundationerrors.NotFoundError("blog post not found").WithContext("slug", slug).Build()
}

func conflict(slug string) error {
	return foundationerrors.ConflictError("blog post already exists").WithContext("slug", slug).Build()
}
