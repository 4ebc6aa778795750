package admin

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"git.home.luguber.info/inful/portfolio/internal/content"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/slug"
)

const maxTags = 20

// PostInput is the create/update payload for a blog post.
type PostInput struct {
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Date       string   `json:"date"`
	Excerpt    string   `json:"excerpt"`
	Tags       []string `json:"tags"`
	Content    string   `json:"content"`
	CoverImage string   `json:"coverImage,omitempty"`
	Featured   *bool    `json:"featured,omitempty"`
	Published  *bool    `json:"published,omitempty"`
}

// PostSummary is a row of the admin post list.
type PostSummary struct {
	Slug      string   `json:"slug"`
	Title     string   `json:"title"`
	Date      string   `json:"date"`
	Published bool     `json:"published"`
	Featured  bool     `json:"featured"`
	Tags      []string `json:"tags"`
}

// normalize trims free text and normalizes the slug.
func (in PostInput) normalize() PostInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Date = strings.TrimSpace(in.Date)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.CoverImage = strings.TrimSpace(in.CoverImage)
	in.Content = strings.TrimSpace(in.Content)
	in.Tags = cleanList(in.Tags)
	in.Slug = slug.Normalize(in.Slug)
	return in
}

func (in PostInput) validate() error {
	var fe fieldErrors
	fe.length("title", in.Title, 5, 200)
	if !slug.Valid(in.Slug) {
		fe.add("slug", "must be lowercase letters, numbers and hyphens")
	}
	fe.date("date", in.Date)
	fe.length("excerpt", in.Excerpt, 10, 5000)
	if len(in.Tags) > maxTags {
		fe.add("tags", "must contain at most %d tags", maxTags)
	}
	fe.length("content", in.Content, 50, 50000)
	fe.maxLength("coverImage", in.CoverImage, 2048)
	return fe.err("invalid blog post")
}

// post builds the stored record. Flags left nil take the values of prev.
func (in PostInput) post(prev *content.Post) content.Post {
	p := content.Post{
		Slug:       in.Slug,
		Title:      in.Title,
		Date:       in.Date,
		Tags:       in.Tags,
		Excerpt:    in.Excerpt,
		CoverImage: in.CoverImage,
		Content:    in.Content,
	}
	if prev != nil {
		p.Published = prev.Published
		p.Featured = prev.Featured
	}
	if in.Published != nil {
		p.Published = *in.Published
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	return p
}

// ListPosts returns every source post, newest first.
func (s *Service) ListPosts(_ context.Context) ([]PostSummary, error) {
	posts, err := s.store.ListPosts()
	if err != nil {
		return nil, err
	}
	out := make([]PostSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, PostSummary{
			Slug:      p.Slug,
			Title:     p.Title,
			Date:      p.Date,
			Published: p.Published,
			Featured:  p.Featured,
			Tags:      p.Tags,
		})
	}
	slices.SortStableFunc(out, func(a, b PostSummary) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	return out, nil
}

// GetPost returns the source of one post, published or not.
func (s *Service) GetPost(_ context.Context, rawSlug string) (*content.Post, error) {
	key := slug.Normalize(rawSlug)
	if !s.store.PostExists(key) {
		return nil, postNotFound(rawSlug)
	}
	return s.store.ReadPost(key)
}

// CreatePost writes a new post. The slug must be free; an empty slug is
// derived from the title.
func (s *Service) CreatePost(ctx context.Context, in PostInput) (*content.Post, error) {
	ctx = context.WithoutCancel(ctx)
	in = in.normalize()
	if in.Slug == "" {
		in.Slug = slug.Normalize(in.Title)
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	post := in.post(nil)

	unlock := s.store.Lock(content.PostKey(post.Slug))
	err := s.store.WritePost("", post)
	unlock()
	if err != nil {
		return nil, err
	}
	s.logger.Info("Blog post created", logfields.Slug(post.Slug))

	if err := s.rebuild(ctx, "slug", post.Slug); err != nil {
		return &post, err
	}
	s.syncPost(ctx, post.Slug, "create")
	return &post, nil
}

// UpdatePost replaces the post at rawSlug. A different slug in the payload
// renames the post directory, assets included. The payload slug is required.
func (s *Service) UpdatePost(ctx context.Context, rawSlug string, in PostInput) (*content.Post, error) {
	ctx = context.WithoutCancel(ctx)
	current := slug.Normalize(rawSlug)
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock := s.store.Lock(content.PostKey(current), content.PostKey(in.Slug))
	if !s.store.PostExists(current) {
		unlock()
		return nil, postNotFound(rawSlug)
	}
	prev, err := s.store.ReadPost(current)
	if err != nil {
		// The document is unreadable; keep flags at their defaults.
		prev = nil
	}
	post := in.post(prev)
	err = s.store.WritePost(current, post)
	unlock()
	if err != nil {
		return nil, err
	}
	renamed := current != post.Slug
	if renamed {
		s.logger.Info("Blog post renamed", "from", current, "to", post.Slug)
	} else {
		s.logger.Info("Blog post updated", logfields.Slug(post.Slug))
	}

	if err := s.rebuild(ctx, "slug", post.Slug); err != nil {
		return &post, err
	}
	if renamed {
		s.deleteRemotePost(ctx, current, "rename")
		s.syncPost(ctx, post.Slug, "rename")
	} else {
		s.syncPost(ctx, post.Slug, "update")
	}
	return &post, nil
}

// DeletePost removes a post directory with all its assets.
func (s *Service) DeletePost(ctx context.Context, rawSlug string) error {
	ctx = context.WithoutCancel(ctx)
	key := slug.Normalize(rawSlug)

	unlock := s.store.Lock(content.PostKey(key))
	err := s.store.DeletePost(key)
	unlock()
	if err != nil {
		if foundationerrors.IsNotFound(err) {
			return postNotFound(rawSlug)
		}
		return err
	}
	s.logger.Info("Blog post deleted", logfields.Slug(key))

	if err := s.rebuild(ctx, "slug", key); err != nil {
		return err
	}
	s.deleteRemotePost(ctx, key, "delete")
	return nil
}

func postNotFound(raw string) error {
	return foundationerrors.NotFoundError(`blog post with slug "` + raw + `" not found`).
		WithContext("slug", raw).
		Build()
}
