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

// ProjectInput is the create/update payload for a project.
type ProjectInput struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Description     string      `json:"description"`
	LongDescription string      `json:"longDescription"`
	Image           string      `json:"image"`
	Category        string      `json:"category"`
	Technologies    []string    `json:"technologies"`
	Featured        *bool       `json:"featured,omitempty"`
	Links           *LinksInput `json:"links,omitempty"`
	Highlights      []string    `json:"highlights"`
	Date            string      `json:"date"`
}

// LinksInput holds the optional project links. Empty strings mean no link.
type LinksInput struct {
	Live   *string `json:"live"`
	GitHub *string `json:"github"`
}

func (in ProjectInput) normalize() ProjectInput {
	in.ID = slug.NormalizeProjectID(in.ID)
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.LongDescription = strings.TrimSpace(in.LongDescription)
	in.Image = strings.TrimSpace(in.Image)
	in.Category = strings.TrimSpace(in.Category)
	in.Date = strings.TrimSpace(in.Date)
	in.Technologies = cleanList(in.Technologies)
	in.Highlights = cleanList(in.Highlights)
	return in
}

func (in ProjectInput) validate() error {
	var fe fieldErrors
	if !slug.Valid(in.ID) {
		fe.add("id", "must be lowercase letters, numbers and hyphens")
	}
	fe.length("id", in.ID, 1, 100)
	fe.length("title", in.Title, 5, 200)
	fe.length("description", in.Description, 10, 500)
	fe.length("longDescription", in.LongDescription, 50, 5000)
	fe.url("image", in.Image)
	fe.maxLength("image", in.Image, 2048)
	fe.length("category", in.Category, 2, 50)
	if n := len(in.Technologies); n < 1 || n > 20 {
		fe.add("technologies", "must contain between 1 and 20 entries")
	}
	for _, t := range in.Technologies {
		fe.length("technologies", t, 1, 50)
	}
	if n := len(in.Highlights); n < 1 || n > 10 {
		fe.add("highlights", "must contain between 1 and 10 entries")
	}
	for _, h := range in.Highlights {
		fe.length("highlights", h, 1, 200)
	}
	fe.date("date", in.Date)
	live, github := in.links()
	if live != nil {
		fe.url("links.live", *live)
		fe.maxLength("links.live", *live, 2048)
	}
	if github != nil {
		fe.url("links.github", *github)
		fe.maxLength("links.github", *github, 2048)
	}
	return fe.err("invalid project")
}

func (in ProjectInput) links() (live, github *string) {
	if in.Links == nil {
		return nil, nil
	}
	return optionalLink(in.Links.Live), optionalLink(in.Links.GitHub)
}

func optionalLink(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// project builds the stored record. featured falls back to prevFeatured.
func (in ProjectInput) project(prevFeatured bool) content.Project {
	live, github := in.links()
	p := content.Project{
		ID:              in.ID,
		Title:           in.Title,
		Description:     in.Description,
		LongDescription: in.LongDescription,
		Image:           in.Image,
		Category:        in.Category,
		Technologies:    in.Technologies,
		Featured:        prevFeatured,
		Links:           content.ProjectLinks{Live: live, GitHub: github},
		Highlights:      in.Highlights,
		Date:            in.Date,
	}
	if in.Featured != nil {
		p.Featured = *in.Featured
	}
	return p
}

// ListProjects returns all projects, newest first.
func (s *Service) ListProjects(_ context.Context) ([]content.Project, error) {
	projects, err := s.store.ReadProjects()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(projects, func(a, b content.Project) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return projects, nil
}

// GetProject returns one project.
func (s *Service) GetProject(_ context.Context, rawID string) (*content.Project, error) {
	projects, err := s.store.ReadProjects()
	if err != nil {
		return nil, err
	}
	i := content.FindProject(projects, slug.NormalizeProjectID(rawID))
	if i < 0 {
		return nil, projectNotFound(rawID)
	}
	return &projects[i], nil
}

// CreateProject appends a project. The id must be unused.
func (s *Service) CreateProject(ctx context.Context, in ProjectInput) (*content.Project, error) {
	ctx = context.WithoutCancel(ctx)
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	project := in.project(false)

	err := s.mutateProjects(func(projects []content.Project) ([]content.Project, error) {
		if content.FindProject(projects, project.ID) >= 0 {
			return nil, foundationerrors.ConflictError(`project with ID "` + project.ID + `" already exists`).
				WithContext("id", project.ID).
				Build()
		}
		return append(projects, project), nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Project created", logfields.ProjectID(project.ID))

	if err := s.rebuild(ctx, "id", project.ID); err != nil {
		return &project, err
	}
	return &project, nil
}

// UpdateProject replaces the project rawID. The payload id must name the
// same project; ids never change.
func (s *Service) UpdateProject(ctx context.Context, rawID string, in ProjectInput) (*content.Project, error) {
	ctx = context.WithoutCancel(ctx)
	id := slug.NormalizeProjectID(rawID)
	if slug.NormalizeProjectID(in.ID) != id {
		return nil, foundationerrors.ValidationError("project ID cannot be changed").
			WithContext("id", rawID).
			WithContext("payloadId", in.ID).
			Build()
	}
	in = in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	var project content.Project
	err := s.mutateProjects(func(projects []content.Project) ([]content.Project, error) {
		i := content.FindProject(projects, id)
		if i < 0 {
			return nil, projectNotFound(rawID)
		}
		project = in.project(projects[i].Featured)
		projects[i] = project
		return projects, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Project updated", logfields.ProjectID(id))

	if err := s.rebuild(ctx, "id", id); err != nil {
		return &project, err
	}
	return &project, nil
}

// DeleteProject removes the project rawID. A missing id leaves the array
// untouched.
func (s *Service) DeleteProject(ctx context.Context, rawID string) error {
	ctx = context.WithoutCancel(ctx)
	id := slug.NormalizeProjectID(rawID)

	err := s.mutateProjects(func(projects []content.Project) ([]content.Project, error) {
		i := content.FindProject(projects, id)
		if i < 0 {
			return nil, projectNotFound(rawID)
		}
		return slices.Delete(projects, i, i+1), nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("Project deleted", logfields.ProjectID(id))
	return s.rebuild(ctx, "id", id)
}

// mutateProjects runs a read-modify-write of projects.json under the
// projects lock. Nothing is written when fn fails.
func (s *Service) mutateProjects(fn func([]content.Project) ([]content.Project, error)) error {
	unlock := s.store.Lock(content.ProjectsKey)
	defer unlock()

	projects, err := s.store.ReadProjects()
	if err != nil {
		return err
	}
	next, err := fn(projects)
	if err != nil {
		return err
	}
	return s.store.WriteProjects(next)
}

func projectNotFound(raw string) error {
	return foundationerrors.NotFoundError(`project with ID "` + raw + `" not found`).
		WithContext("id", raw).
		Build()
}
