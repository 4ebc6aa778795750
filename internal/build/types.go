package build

import "git.home.luguber.info/inful/portfolio/internal/markdown"

// IndexEntry is one element of generated/blog-index.json.
type IndexEntry struct {
	Title       string   `json:"title"`
	Slug        string   `json:"slug"`
	Date        string   `json:"date"`
	Tags        []string `json:"tags"`
	Excerpt     string   `json:"excerpt"`
	Published   bool     `json:"published"`
	Featured    bool     `json:"featured"`
	CoverImage  string   `json:"coverImage,omitempty"`
	ReadingTime string   `json:"readingTime"`
	WordCount   int      `json:"wordCount"`
}

// PostDocument is generated/blog/<slug>/index.json.
type PostDocument struct {
	Meta    IndexEntry          `json:"meta"`
	Content string              `json:"content"`
	TOC     []markdown.TOCEntry `json:"toc"`
}
