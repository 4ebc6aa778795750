package build

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StaticRoutes are the frontend pages listed in every sitemap.
var StaticRoutes = []string{"/", "/projects", "/blog", "/about", "/contact"}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (p *Pipeline) stageSitemap(_ context.Context, st *buildState) error {
	sitemap, err := Sitemap(p.siteURL, st.index, p.now())
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(st.staging, "sitemap.xml"), sitemap, 0o644); err != nil {
		return fmt.Errorf("write sitemap: %w", err)
	}
	if err := os.WriteFile(filepath.Join(st.staging, "robots.txt"), []byte(RobotsTxt(p.siteURL)), 0o644); err != nil {
		return fmt.Errorf("write robots.txt: %w", err)
	}
	return nil
}

// Sitemap lists the static routes (last modified at now) followed by every
// published post. A post whose date cannot be parsed has no lastmod.
func Sitemap(siteURL string, index []IndexEntry, now time.Time) ([]byte, error) {
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	stamp := now.UTC().Format(time.RFC3339)
	for _, route := range StaticRoutes {
		set.URLs = append(set.URLs, sitemapURL{Loc: siteURL + route, LastMod: stamp})
	}
	for _, e := range index {
		if !e.Published {
			continue
		}
		u := sitemapURL{Loc: siteURL + "/blog/" + e.Slug}
		if t, ok := parseDate(e.Date); ok {
			u.LastMod = t.UTC().Format(time.RFC3339)
		}
		set.URLs = append(set.URLs, u)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, fmt.Errorf("encode sitemap: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RobotsTxt allows everything and points crawlers at the sitemap.
func RobotsTxt(siteURL string) string {
	return "User-agent: *\nAllow: /\n\nSitemap: " + siteURL + "/sitemap.xml\n"
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
