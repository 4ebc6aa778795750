package content

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/paths"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(paths.New(t.TempDir()))
}

func samplePost(slug string) Post {
	return Post{
		Slug:      slug,
		Title:     `Hello "World"`,
		Date:      "2024-03-01",
		Tags:      []string{"go", "Web Dev"},
		Excerpt:   `A post with a backslash \ in it`,
		Published: true,
		Featured:  false,
		Content:   "\n\n## Intro\n\nSome words here.\n\n",
	}
}

func TestWritePostRoundTrip(t *testing.T) {
	s := newTestStore(t)
	in := samplePost("hello-world")
	in.CoverImage = "./cover.png"

	require.NoError(t, s.WritePost("", in))
	require.True(t, s.PostExists("hello-world"))

	out, err := s.ReadPost("hello-world")
	require.NoError(t, err)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Date, out.Date)
	assert.Equal(t, in.Tags, out.Tags)
	assert.Equal(t, in.Excerpt, out.Excerpt)
	assert.Equal(t, in.Published, out.Published)
	assert.Equal(t, in.Featured, out.Featured)
	assert.Equal(t, in.CoverImage, out.CoverImage)
	assert.Equal(t, "## Intro\n\nSome words here.", out.Content)
}

func TestWritePostFixedShape(t *testing.T) {
	s := newTestStore(t)
	p := samplePost("shape")
	p.Title = "Shape"
	p.Excerpt = "Excerpt"
	p.Tags = []string{"a"}
	p.Content = "Body"
	require.NoError(t, s.WritePost("", p))

	raw, err := os.ReadFile(s.Paths().PostFile("shape"))
	require.NoError(t, err)
	assert.Equal(t, `---
title: "Shape"
slug: "shape"
date: "2024-03-01"
tags: ["a"]
excerpt: "Excerpt"
published: true
featured: false
---

Body
`, string(raw))
}

func TestCreatePostConflict(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WritePost("", samplePost("dup")))

	err := s.WritePost("", samplePost("dup"))
	require.Error(t, err)
	assert.True(t, foundationerrors.IsConflict(err))
}

func TestUpdateMissingPostIsNotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.WritePost("ghost", samplePost("ghost"))
	assert.True(t, foundationerrors.IsNotFound(err))

	err = s.WritePost("ghost", samplePost("other"))
	assert.True(t, foundationerrors.IsNotFound(err))
}

func TestRenameMovesAssets(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WritePost("", samplePost("hello-world")))
	require.NoError(t, s.SaveAsset("hello-world", "diagram.png", []byte("png")))

	before, err := s.ReadPost("hello-world")
	require.NoError(t, err)

	renamed := *before
	renamed.Slug = "hello-world-2"
	require.NoError(t, s.WritePost("hello-world", renamed))

	_, err = os.Stat(s.Paths().PostDir("hello-world"))
	assert.True(t, os.IsNotExist(err))

	after, err := s.ReadPost("hello-world-2")
	require.NoError(t, err)
	assert.Equal(t, before.Content, after.Content)
	assert.Equal(t, "hello-world-2", after.Slug)

	asset, err := os.ReadFile(filepath.Join(s.Paths().PostDir("hello-world-2"), "diagram.png"))
	require.NoError(t, err)
	assert.Equal(t, "png", string(asset))
}

func TestRenameOntoExistingIsConflict(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WritePost("", samplePost("a")))
	require.NoError(t, s.WritePost("", samplePost("b")))

	p := samplePost("b")
	err := s.WritePost("a", p)
	require.Error(t, err)
	assert.True(t, foundationerrors.IsConflict(err))
	assert.True(t, s.PostExists("a"))
}

func TestDeletePost(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WritePost("", samplePost("gone")))
	require.NoError(t, s.DeletePost("gone"))
	assert.False(t, s.PostExists("gone"))

	err := s.DeletePost("gone")
	assert.True(t, foundationerrors.IsNotFound(err))
}

func TestSaveAssetRejectsTraversalAndOverwrite(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WritePost("", samplePost("p")))

	assert.True(t, foundationerrors.IsInvalidInput(s.SaveAsset("p", "../x.png", nil)))
	assert.True(t, foundationerrors.IsInvalidInput(s.SaveAsset("p", "index.md", nil)))
	require.NoError(t, s.SaveAsset("p", "x.png", []byte("1")))
	assert.True(t, foundationerrors.IsConflict(s.SaveAsset("p", "x.png", []byte("2"))))
	assert.True(t, foundationerrors.IsNotFound(s.SaveAsset("missing", "x.png", nil)))
}

func TestListPostsSkipsBrokenDocuments(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WritePost("", samplePost("good")))
	broken := s.Paths().PostDir("broken")
	require.NoError(t, os.MkdirAll(broken, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "index.md"), []byte("---\ntitle: x\n"), 0o600))

	posts, err := s.ListPosts()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "good", posts[0].Slug)

	slugs, err := s.ListPostSlugs()
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "good"}, slugs)
}

func TestParsePostDefaultsAndWarnings(t *testing.T) {
	post, warnings, err := ParsePost([]byte("---\ntitle: Only title\npublished: maybe\n---\nbody words"), "dir-slug")
	require.NoError(t, err)
	assert.Equal(t, "dir-slug", post.Slug)
	assert.Equal(t, "Only title", post.Title)
	assert.False(t, post.Published)
	assert.Equal(t, []string{}, post.Tags)
	assert.Equal(t, "body words", post.Content)
	assert.Contains(t, warnings, "missing required field: date")
	assert.Contains(t, warnings, "missing required field: slug")
	assert.NotEmpty(t, warnings)

	_, _, err = ParsePost([]byte("---\ntitle: [\n---\n"), "x")
	require.Error(t, err)
}

func TestParsePostKeepsUnquotedDates(t *testing.T) {
	post, _, err := ParsePost([]byte("---\ndate: 2024-01-15\ntags: [go, 2024]\n---\n"), "d")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", post.Date)
	assert.Equal(t, []string{"go", "2024"}, post.Tags)
}

func TestProjectsReadWrite(t *testing.T) {
	s := newTestStore(t)

	projects, err := s.ReadProjects()
	require.NoError(t, err)
	assert.Empty(t, projects)

	live := "https://example.com"
	in := []Project{{ID: "site", Title: "Site", Technologies: []string{"Go"}, Highlights: []string{}, Links: ProjectLinks{Live: &live}}}
	require.NoError(t, s.WriteProjects(in))

	raw, err := os.ReadFile(s.Paths().ContentProjectsPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"github": null`)

	out, err := s.ReadProjects()
	require.NoError(t, err)
	assert.Equal(t, in, out)
	assert.Equal(t, 0, FindProject(out, "site"))
	assert.Equal(t, -1, FindProject(out, "nope"))
}

func TestReadSkills(t *testing.T) {
	s := newTestStore(t)
	_, err := s.ReadSkills()
	assert.True(t, foundationerrors.IsNotFound(err))

	require.NoError(t, os.MkdirAll(s.Paths().ContentDir, 0o750))
	require.NoError(t, os.WriteFile(s.Paths().ContentSkillsPath, []byte(`{"categories":[]}`), 0o600))
	raw, err := s.ReadSkills()
	require.NoError(t, err)
	assert.JSONEq(t, `{"categories":[]}`, string(raw))
}

func TestLocksSerializeAndCleanUp(t *testing.T) {
	l := NewLocks()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(ProjectsKey, PostKey("a"), ProjectsKey)
			counter++
			unlock()
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.size())
}
