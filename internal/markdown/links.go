package markdown

import (
	"net/url"
	"strings"

	gmast "github.com/yuin/goldmark/ast"
)

// localAssets lists the relative image and link destinations in doc, in
// document order and without duplicates. Absolute URLs, root-relative paths
// and in-page anchors are not assets.
func localAssets(doc gmast.Node, _ []byte) []string {
	seen := map[string]bool{}
	assets := []string{}

	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		var dest string
		switch node := n.(type) {
		case *gmast.Image:
			dest = string(node.Destination)
		case *gmast.Link:
			dest = string(node.Destination)
		default:
			return gmast.WalkContinue, nil
		}
		if name, ok := localAsset(dest); ok && !seen[name] {
			seen[name] = true
			assets = append(assets, name)
		}
		return gmast.WalkContinue, nil
	})
	return assets
}

func localAsset(dest string) (string, bool) {
	dest = strings.TrimSpace(dest)
	if dest == "" || strings.HasPrefix(dest, "#") || strings.HasPrefix(dest, "/") {
		return "", false
	}
	u, err := url.Parse(dest)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "", false
	}
	name := strings.TrimPrefix(u.Path, "./")
	if name == "" || strings.HasPrefix(name, "../") {
		return "", false
	}
	return name, true
}
