package admin

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/portfolio/internal/build"
	"git.home.luguber.info/inful/portfolio/internal/content"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/paths"
	"git.home.luguber.info/inful/portfolio/internal/rebuild"
)

type syncCall struct {
	op, slug, action string
}

type recordingSyncer struct {
	mu    sync.Mutex
	calls []syncCall
	err   error
}

func (r *recordingSyncer) SyncPost(_ context.Context, slug, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, syncCall{"sync", slug, action})
	return r.err
}

func (r *recordingSyncer) DeletePost(_ context.Context, slug, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, syncCall{"delete", slug, action})
	return r.err
}

func (r *recordingSyncer) snapshot() []syncCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]syncCall(nil), r.calls...)
}

type fixture struct {
	svc    *Service
	store  *content.Store
	paths  paths.Paths
	syncer *recordingSyncer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	p := paths.New(t.TempDir())
	store := content.NewStore(p)
	syncer := &recordingSyncer{}
	rb := rebuild.NewInProcess(build.New(p), 0)
	return &fixture{
		svc:    New(store, rb, WithSyncer(syncer)),
		store:  store,
		paths:  p,
		syncer: syncer,
	}
}

func validPost(slug string) PostInput {
	published := true
	return PostInput{
		Title:     "Hello World",
		Slug:      slug,
		Date:      "2024-05-01",
		Excerpt:   "A short first post.",
		Tags:      []string{"go", " ", "intro"},
		Content:   "## Welcome\n\n" + strings.Repeat("Plenty of words in this body. ", 5),
		Published: &published,
	}
}

func validProject(id string) ProjectInput {
	github := "https://github.com/example/" + id
	return ProjectInput{
		ID:              id,
		Title:           "Portfolio site",
		Description:     "A personal site and blog.",
		LongDescription: strings.Repeat("A longer description of the project. ", 3),
		Image:           "https://example.com/cover.png",
		Category:        "web",
		Technologies:    []string{" Go ", "", "Angular"},
		Links:           &LinksInput{GitHub: &github, Live: new(string)},
		Highlights:      []string{"Fast builds"},
		Date:            "2024-01-01",
	}
}

func readIndex(t *testing.T, p paths.Paths) []build.IndexEntry {
	t.Helper()
	data, err := os.ReadFile(p.GeneratedBlogIndexPath)
	require.NoError(t, err)
	var entries []build.IndexEntry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func TestCreatePost_AppearsInIndex(t *testing.T) {
	f := newFixture(t)
	post, err := f.svc.CreatePost(context.Background(), validPost("Hello World!"))
	require.NoError(t, err)
	assert.Equal(t, "hello-world", post.Slug)
	assert.Equal(t, []string{"go", "intro"}, post.Tags)

	entries := readIndex(t, f.paths)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello-world", entries[0].Slug)
	assert.Positive(t, entries[0].WordCount)

	f.svc.Wait()
	assert.Equal(t, []syncCall{{"sync", "hello-world", "create"}}, f.syncer.snapshot())
}

func TestCreatePost_SlugFallsBackToTitle(t *testing.T) {
	f := newFixture(t)
	in := validPost("")
	in.Title = "From The Title"
	post, err := f.svc.CreatePost(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "from-the-title", post.Slug)
}

func TestCreatePost_DuplicateIsConflict(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreatePost(context.Background(), validPost("dup"))
	require.NoError(t, err)
	_, err = f.svc.CreatePost(context.Background(), validPost("dup"))
	assert.True(t, foundationerrors.IsConflict(err))
}

func TestCreatePost_Validation(t *testing.T) {
	f := newFixture(t)
	tests := map[string]func(*PostInput){
		"short title":   func(in *PostInput) { in.Title = "Hey" },
		"bad date":      func(in *PostInput) { in.Date = "yesterday" },
		"short excerpt": func(in *PostInput) { in.Excerpt = "short" },
		"short content": func(in *PostInput) { in.Content = "too short" },
		"too many tags": func(in *PostInput) { in.Tags = strings.Split(strings.Repeat("t,", 21), ",") },
		"long cover":    func(in *PostInput) { in.CoverImage = strings.Repeat("x", 2049) },
		"no slug":       func(in *PostInput) { in.Slug = "!!!"; in.Title = "!!!!!!" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			in := validPost("valid-" + strings.ReplaceAll(name, " ", "-"))
			mutate(&in)
			_, err := f.svc.CreatePost(context.Background(), in)
			require.Error(t, err)
			assert.True(t, foundationerrors.IsInvalidInput(err), err)
		})
	}
	slugs, err := f.store.ListPostSlugs()
	require.NoError(t, err)
	assert.Empty(t, slugs)
}

func TestUpdatePost_RenameMovesAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePost(ctx, validPost("hello-world"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(f.paths.PostDir("hello-world"), "pic.png"), []byte("png"), 0o644))

	before, err := f.store.ReadPost("hello-world")
	require.NoError(t, err)

	in := validPost("hello-world-2")
	in.Published = nil
	post, err := f.svc.UpdatePost(ctx, "hello-world", in)
	require.NoError(t, err)
	assert.Equal(t, "hello-world-2", post.Slug)
	assert.True(t, post.Published, "omitted flag keeps its stored value")

	assert.NoDirExists(t, f.paths.PostDir("hello-world"))
	assert.FileExists(t, filepath.Join(f.paths.PostDir("hello-world-2"), "pic.png"))
	after, err := f.store.ReadPost("hello-world-2")
	require.NoError(t, err)
	assert.Equal(t, before.Content, after.Content)
	assert.FileExists(t, filepath.Join(f.paths.GeneratedBlogDir, "hello-world-2", "pic.png"))

	f.svc.Wait()
	calls := f.syncer.snapshot()
	assert.Contains(t, calls, syncCall{"delete", "hello-world", "rename"})
	assert.Contains(t, calls, syncCall{"sync", "hello-world-2", "rename"})
}

func TestUpdatePost_EmptySlugIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePost(ctx, validPost("keep-me"))
	require.NoError(t, err)

	for _, raw := range []string{"", "  ", "!!!"} {
		_, err = f.svc.UpdatePost(ctx, "keep-me", validPost(raw))
		assert.True(t, foundationerrors.IsInvalidInput(err), "slug %q", raw)
	}
	assert.True(t, f.store.PostExists("keep-me"))
	assert.False(t, f.store.PostExists("hello-world"))
}

func TestUpdatePost_RenameOntoExistingIsConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePost(ctx, validPost("one"))
	require.NoError(t, err)
	_, err = f.svc.CreatePost(ctx, validPost("two"))
	require.NoError(t, err)

	_, err = f.svc.UpdatePost(ctx, "one", validPost("two"))
	assert.True(t, foundationerrors.IsConflict(err))
	assert.True(t, f.store.PostExists("one"))
}

func TestUpdatePost_Missing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdatePost(context.Background(), "ghost", validPost("ghost"))
	assert.True(t, foundationerrors.IsNotFound(err))
}

func TestDeletePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePost(ctx, validPost("gone"))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeletePost(ctx, "gone"))
	assert.False(t, f.store.PostExists("gone"))
	assert.Empty(t, readIndex(t, f.paths))

	err = f.svc.DeletePost(ctx, "gone")
	assert.True(t, foundationerrors.IsNotFound(err))

	f.svc.Wait()
	assert.Contains(t, f.syncer.snapshot(), syncCall{"delete", "gone", "delete"})
}

func TestListPosts_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for slug, date := range map[string]string{"old": "2023-01-01", "new": "2024-06-01", "mid": "2023-09-01"} {
		in := validPost(slug)
		in.Date = date
		_, err := f.svc.CreatePost(ctx, in)
		require.NoError(t, err)
	}
	list, err := f.svc.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{list[0].Slug, list[1].Slug, list[2].Slug})
}

func TestRebuildFailureKeepsWrite(t *testing.T) {
	p := paths.New(t.TempDir())
	store := content.NewStore(p)
	failing := rebuild.Func(func(context.Context) error { return stderrors.New("boom") })
	syncer := &recordingSyncer{}
	svc := New(store, failing, WithSyncer(syncer))

	_, err := svc.CreatePost(context.Background(), validPost("kept"))
	require.Error(t, err)
	assert.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryRebuild))
	assert.True(t, store.PostExists("kept"))

	_, err = svc.CreatePost(context.Background(), validPost("kept"))
	assert.True(t, foundationerrors.IsConflict(err))

	svc.Wait()
	assert.Empty(t, syncer.snapshot())
}

func TestSyncFailureIsNotReturned(t *testing.T) {
	f := newFixture(t)
	f.syncer.err = stderrors.New("remote down")
	_, err := f.svc.CreatePost(context.Background(), validPost("offline"))
	require.NoError(t, err)
	f.svc.Wait()
}

func TestProjects_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateProject(ctx, validProject("site"))
	require.NoError(t, err)
	assert.False(t, created.Featured)
	assert.Equal(t, []string{"Go", "Angular"}, created.Technologies)
	assert.Nil(t, created.Links.Live)
	require.NotNil(t, created.Links.GitHub)

	_, err = f.svc.CreateProject(ctx, validProject("site"))
	assert.True(t, foundationerrors.IsConflict(err))

	featured := true
	in := validProject("site")
	in.Featured = &featured
	_, err = f.svc.UpdateProject(ctx, "site", in)
	require.NoError(t, err)

	in = validProject("site")
	in.Title = "Portfolio site v2"
	updated, err := f.svc.UpdateProject(ctx, "site", in)
	require.NoError(t, err)
	assert.True(t, updated.Featured, "featured is preserved when omitted")
	assert.Equal(t, "Portfolio site v2", updated.Title)

	got, err := f.svc.GetProject(ctx, "site")
	require.NoError(t, err)
	assert.Equal(t, *updated, *got)

	generated, err := os.ReadFile(f.paths.GeneratedProjectsPath)
	require.NoError(t, err)
	assert.Contains(t, string(generated), "Portfolio site v2")

	require.NoError(t, f.svc.DeleteProject(ctx, "site"))
	_, err = f.svc.GetProject(ctx, "site")
	assert.True(t, foundationerrors.IsNotFound(err))
}

func TestUpdateProject_IDIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProject(ctx, validProject("site"))
	require.NoError(t, err)

	in := validProject("other")
	in.Title = "x"
	_, err = f.svc.UpdateProject(ctx, "site", in)
	require.Error(t, err)
	assert.True(t, foundationerrors.IsInvalidInput(err))

	got, err := f.svc.GetProject(ctx, "site")
	require.NoError(t, err)
	assert.Equal(t, "Portfolio site", got.Title)
}

func TestDeleteProject_MissingLeavesArray(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreateProject(ctx, validProject("keep"))
	require.NoError(t, err)
	before, err := os.ReadFile(f.paths.ContentProjectsPath)
	require.NoError(t, err)

	err = f.svc.DeleteProject(ctx, "ghost")
	assert.True(t, foundationerrors.IsNotFound(err))

	after, err := os.ReadFile(f.paths.ContentProjectsPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	list, err := f.svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "keep", list[0].ID)
}

func TestCreateProject_Validation(t *testing.T) {
	f := newFixture(t)
	in := validProject("bad")
	in.Image = "/relative.png"
	_, err := f.svc.CreateProject(context.Background(), in)
	assert.True(t, foundationerrors.IsInvalidInput(err))

	in = validProject("bad")
	in.Highlights = []string{" "}
	_, err = f.svc.CreateProject(context.Background(), in)
	assert.True(t, foundationerrors.IsInvalidInput(err))
}

func TestUploadPostImage_DetectsTypeFromContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePost(ctx, validPost("gallery"))
	require.NoError(t, err)

	jpeg := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, make([]byte, 32)...)
	img, err := f.svc.UploadPostImage(ctx, "gallery", "My Photo.PNG", jpeg)
	require.NoError(t, err)
	assert.Equal(t, "my-photo.jpg", img.FileName)
	assert.Equal(t, "/blog/gallery/my-photo.jpg", img.URL)
	assert.Equal(t, "![my-photo](./my-photo.jpg)", img.Markdown)
	assert.FileExists(t, filepath.Join(f.paths.PostDir("gallery"), "my-photo.jpg"))
	assert.FileExists(t, filepath.Join(f.paths.GeneratedBlogDir, "gallery", "my-photo.jpg"))

	again, err := f.svc.UploadPostImage(ctx, "gallery", "my photo.jpeg", jpeg)
	require.NoError(t, err)
	assert.Equal(t, "my-photo-2.jpg", again.FileName)
}

func TestUploadPostImage_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.CreatePost(ctx, validPost("gallery"))
	require.NoError(t, err)

	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}
	_, err = f.svc.UploadPostImage(ctx, "missing", "a.png", png)
	assert.True(t, foundationerrors.IsNotFound(err))

	_, err = f.svc.UploadPostImage(ctx, "gallery", "a.txt", []byte("just text"))
	assert.True(t, foundationerrors.IsInvalidInput(err))

	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
	_, err = f.svc.UploadPostImage(ctx, "gallery", "evil.svg", svg)
	assert.True(t, foundationerrors.IsInvalidInput(err))

	_, err = f.svc.UploadPostImage(ctx, "gallery", "empty.png", nil)
	assert.True(t, foundationerrors.IsInvalidInput(err))

	entries, err := os.ReadDir(f.paths.PostDir("gallery"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
