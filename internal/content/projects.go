package content

import (
	"encoding/json"
	"errors"
	"os"

	foundationerrors "git.home.luguber.info/inful/portfolio/internal/foundation/errors"
)

// ReadProjects returns the whole projects array. A missing file is an empty array.
func (s *Store) ReadProjects() ([]Project, error) {
	data, err := os.ReadFile(s.paths.ContentProjectsPath)
	if errors.Is(err, os.ErrNotExist) {
		return []Project{}, nil
	}
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "read projects").Build()
	}
	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "decode projects.json").
			WithContext("path", s.paths.ContentProjectsPath).
			Build()
	}
	if projects == nil {
		projects = []Project{}
	}
	return projects, nil
}

// WriteProjects replaces the whole projects array.
func (s *Store) WriteProjects(projects []Project) error {
	if projects == nil {
		projects = []Project{}
	}
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "encode projects").Build()
	}
	if err := os.MkdirAll(s.paths.ContentDir, dirPerm); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "create content directory").Build()
	}
	if err := writeFileAtomic(s.paths.ContentProjectsPath, append(data, '\n'), filePerm); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "write projects").Build()
	}
	return nil
}

// FindProject returns the index of id in projects, or -1.
func FindProject(projects []Project, id string) int {
	for i := range projects {
		if projects[i].ID == id {
			return i
		}
	}
	return -1
}

// ReadSkills returns the raw skills document.
func (s *Store) ReadSkills() (json.RawMessage, error) {
	data, err := os.ReadFile(s.paths.ContentSkillsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, foundationerrors.NotFoundError("skills not found").Build()
	}
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "read skills").Build()
	}
	if !json.Valid(data) {
		return nil, foundationerrors.InternalError("skills.json is not valid JSON").Build()
	}
	return json.RawMessage(data), nil
}
