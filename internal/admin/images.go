package admin

import (
	"context"
	"strings"

	"git.home.luguber.info/inful/portfolio/internal/content"
	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
	"git.home.luguber.info/inful/portfolio/internal/logfields"
	"git.home.luguber.info/inful/portfolio/internal/media"
	"git.home.luguber.info/inful/portfolio/internal/slug"
)

// UploadedImage describes a stored post image.
type UploadedImage struct {
	FileName string `json:"fileName"`
	URL      string `json:"url"`
	Markdown string `json:"markdown"`
}

// UploadPostImage stores data next to the post's index.md. The stored
// extension comes from the detected content type, never from fileName.
func (s *Service) UploadPostImage(ctx context.Context, rawSlug, fileName string, data []byte) (*UploadedImage, error) {
	ctx = context.WithoutCancel(ctx)
	key := slug.Normalize(rawSlug)

	if len(data) == 0 {
		return nil, foundationerrors.ValidationError("image file is required").Build()
	}
	if len(data) > media.MaxUploadSize {
		s.recorder.IncUpload("oversize", false)
		return nil, foundationerrors.ValidationError("image exceeds the 5 MiB limit").
			WithContext("size", len(data)).
			Build()
	}
	mime, ok := media.Classify(data)
	if !ok {
		s.recorder.IncUpload("unknown", false)
		return nil, foundationerrors.ValidationError("unsupported image type").
			WithContext("file", fileName).
			Build()
	}
	if mime == media.SVG {
		if err := media.CheckSVG(data); err != nil {
			s.recorder.IncUpload(string(mime), false)
			return nil, err
		}
	}

	unlock := s.store.Lock(content.PostKey(key))
	if !s.store.PostExists(key) {
		unlock()
		return nil, postNotFound(rawSlug)
	}
	name, err := media.UniqueName(s.store.Paths().PostDir(key), fileName, mime.Extension())
	if err == nil {
		err = s.store.SaveAsset(key, name, data)
	}
	unlock()
	if err != nil {
		if _, ok := foundationerrors.AsClassified(err); ok {
			return nil, err
		}
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "store image").
			WithContext("slug", key).
			Build()
	}
	s.recorder.IncUpload(string(mime), true)
	s.logger.Info("Post image uploaded", logfields.Slug(key), logfields.File(name))

	img := &UploadedImage{
		FileName: name,
		URL:      "/blog/" + key + "/" + name,
		Markdown: "![" + strings.TrimSuffix(name, "."+mime.Extension()) + "](./" + name + ")",
	}
	if err := s.rebuild(ctx, "slug", key); err != nil {
		return img, err
	}
	s.syncPost(ctx, key, "upload image")
	return img, nil
}
