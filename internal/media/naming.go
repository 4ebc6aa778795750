package media

import (
	"fmt"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/portfolio/internal/slug"
)

const maxNameProbes = 10000

// UniqueName returns the first of base.ext, base-2.ext, base-3.ext, ... that
// does not exist in dir. base is sanitized first, so any client file name
// may be passed.
func UniqueName(dir, base, ext string) (string, error) {
	base = slug.FileBase(base)
	for i := 1; i <= maxNameProbes; i++ {
		name := base + "." + ext
		if i > 1 {
			name = fmt.Sprintf("%s-%d.%s", base, i, ext)
		}
		_, err := os.Lstat(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			return name, nil
		}
		if err != nil {
			return "", fmt.Errorf("probe %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("no free file name for %q in %s", base, dir)
}
