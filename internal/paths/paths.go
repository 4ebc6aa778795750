// Package paths locates the repository root and derives the fixed locations
// of source content and generated output beneath it.
package paths

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the set of repository locations shared by the content store, the
// build pipeline and the HTTP layer. Build one at startup and pass it down.
type Paths struct {
	Root string

	ContentDir          string
	ContentBlogDir      string
	ContentProjectsPath string
	ContentSkillsPath   string

	GeneratedDir           string
	GeneratedBlogDir       string
	GeneratedBlogIndexPath string
	GeneratedProjectsPath  string
	GeneratedSkillsPath    string
}

// New derives every location from root.
func New(root string) Paths {
	content := filepath.Join(root, "content")
	generated := filepath.Join(root, "generated")
	return Paths{
		Root:                   root,
		ContentDir:             content,
		ContentBlogDir:         filepath.Join(content, "blog"),
		ContentProjectsPath:    filepath.Join(content, "projects.json"),
		ContentSkillsPath:      filepath.Join(content, "skills.json"),
		GeneratedDir:           generated,
		GeneratedBlogDir:       filepath.Join(generated, "blog"),
		GeneratedBlogIndexPath: filepath.Join(generated, "blog-index.json"),
		GeneratedProjectsPath:  filepath.Join(generated, "projects.json"),
		GeneratedSkillsPath:    filepath.Join(generated, "skills.json"),
	}
}

// PostDir is the source directory of a post.
func (p Paths) PostDir(slug string) string {
	return filepath.Join(p.ContentBlogDir, slug)
}

// PostFile is the markdown document of a post.
func (p Paths) PostFile(slug string) string {
	return filepath.Join(p.ContentBlogDir, slug, "index.md")
}

// Rebase returns a copy whose generated locations live under dir instead of
// the real generated directory. The build pipeline writes into a rebased
// copy and promotes it afterwards.
func (p Paths) Rebase(dir string) Paths {
	p.GeneratedDir = dir
	p.GeneratedBlogDir = filepath.Join(dir, "blog")
	p.GeneratedBlogIndexPath = filepath.Join(dir, "blog-index.json")
	p.GeneratedProjectsPath = filepath.Join(dir, "projects.json")
	p.GeneratedSkillsPath = filepath.Join(dir, "skills.json")
	return p
}

// Discover walks upward from start until it finds a directory holding a
// workspace marker: a package.json with a "workspaces" array, or a go.work
// file. When none is found the parent of start is used.
func Discover(start string) (Paths, error) {
	abs, err := filepath.Abs(start)
	if err != nil {
		return Paths{}, fmt.Errorf("resolve start directory: %w", err)
	}

	for dir := abs; ; {
		if isWorkspaceRoot(dir) {
			return New(dir), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return New(filepath.Dir(abs)), nil
}

// Resolve returns the paths rooted at override when set, otherwise Discover
// from the working directory.
func Resolve(override string) (Paths, error) {
	if override != "" {
		abs, err := filepath.Abs(override)
		if err != nil {
			return Paths{}, fmt.Errorf("resolve root: %w", err)
		}
		return New(abs), nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return Paths{}, fmt.Errorf("get working directory: %w", err)
	}
	return Discover(wd)
}

func isWorkspaceRoot(dir string) bool {
	if fi, err := os.Stat(filepath.Join(dir, "go.work")); err == nil && !fi.IsDir() {
		return true
	}
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return false
	}
	var pkg struct {
		Workspaces json.RawMessage `json:"workspaces"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return false
	}
	var list []any
	return json.Unmarshal(pkg.Workspaces, &list) == nil && list != nil
}
