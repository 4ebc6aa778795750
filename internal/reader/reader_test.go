package reader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/portfolio/internal/build"
	"git.home.luguber.info/inful/portfolio/internal/content"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/paths"
)

func seed(t *testing.T) paths.Paths {
	t.Helper()
	p := paths.New(t.TempDir())
	store := content.NewStore(p)
	posts := []content.Post{
		{Slug: "go-tips", Title: "Go tips", Date: "2024-03-01", Tags: []string{"Go", "tips"}, Excerpt: "e", Published: true, Content: "## One\n\nbody"},
		{Slug: "draft", Title: "Draft", Date: "2024-04-01", Tags: []string{"secret"}, Excerpt: "e", Content: "body"},
		{Slug: "web", Title: "Web", Date: "2024-02-01", Tags: []string{"web", "go"}, Excerpt: "e", Published: true, Content: "body"},
	}
	for _, post := range posts {
		require.NoError(t, store.WritePost("", post))
	}
	require.NoError(t, store.WriteProjects([]content.Project{{ID: "site", Title: "Site"}}))
	require.NoError(t, os.WriteFile(p.ContentSkillsPath, []byte(`{"languages":["Go"]}`), 0o644))

	_, err := build.New(p).Run(context.Background())
	require.NoError(t, err)
	return p
}

func TestListPosts_PublishedOnly(t *testing.T) {
	r := New(seed(t))
	posts, err := r.ListPosts("")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "go-tips", posts[0].Slug)
	assert.Equal(t, "web", posts[1].Slug)
}

func TestListPosts_TagFilterIgnoresCase(t *testing.T) {
	r := New(seed(t))
	posts, err := r.ListPosts("GO")
	require.NoError(t, err)
	assert.Len(t, posts, 2)

	posts, err = r.ListPosts("secret")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestTags(t *testing.T) {
	r := New(seed(t))
	tags, err := r.Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "go", "tips", "web"}, tags)
}

func TestGetPost(t *testing.T) {
	r := New(seed(t))
	doc, err := r.GetPost("go-tips")
	require.NoError(t, err)
	assert.Equal(t, "Go tips", doc.Meta.Title)
	assert.Contains(t, doc.Content, `id="one"`)

	_, err = r.GetPost("draft")
	assert.True(t, foundationerrors.IsNotFound(err))
	_, err = r.GetPost("nope")
	assert.True(t, foundationerrors.IsNotFound(err))
}

func TestProjectsAndSkills(t *testing.T) {
	r := New(seed(t))
	projects, err := r.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)

	project, err := r.GetProject("site")
	require.NoError(t, err)
	assert.Equal(t, "Site", project.Title)
	_, err = r.GetProject("other")
	assert.True(t, foundationerrors.IsNotFound(err))

	skills, err := r.Skills()
	require.NoError(t, err)
	assert.JSONEq(t, `{"languages":["Go"]}`, string(skills))
}

func TestEmptyGeneratedTree(t *testing.T) {
	r := New(paths.New(filepath.Join(t.TempDir(), "none")))
	posts, err := r.ListPosts("")
	require.NoError(t, err)
	assert.Empty(t, posts)
	projects, err := r.ListProjects()
	require.NoError(t, err)
	assert.Empty(t, projects)
	_, err = r.Skills()
	assert.True(t, foundationerrors.IsNotFound(err))
}
