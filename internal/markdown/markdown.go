// Package markdown renders post bodies to HTML and derives the metadata the
// generated documents carry: table of contents, word count and reading time.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// DefaultStyle is the chroma style used for highlighted code.
const DefaultStyle = "github-dark"

// Result is everything derived from one Markdown body.
type Result struct {
	HTML        string
	TOC         []TOCEntry
	Words       int
	ReadingTime string
	Assets      []string
	// Warnings lists recoverable problems, such as code blocks that fell back
	// to plain rendering.
	Warnings []string
}

// Renderer converts Markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	style string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithStyle selects the chroma style for code blocks.
func WithStyle(name string) Option {
	return func(r *Renderer) {
		if name != "" {
			r.style = name
		}
	}
}

// NewRenderer returns a renderer with GitHub flavoured Markdown, hard line
// breaks and raw HTML passthrough.
func NewRenderer(opts ...Option) *Renderer {
	r := &Renderer{style: DefaultStyle}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render converts source and computes its metadata. The TOC and word count
// come from the raw Markdown, not from the rendered HTML.
func (r *Renderer) Render(source []byte) (Result, error) {
	code := newCodeBlockRenderer(r.style)
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(
			gmhtml.WithHardWraps(),
			gmhtml.WithUnsafe(),
			// Fenced and indented code take this renderer over the default one.
			renderer.WithNodeRenderers(util.Prioritized(code, 100)),
		),
	)

	ctx := parser.NewContext(parser.WithIDs(headingIDs{}))
	doc := md.Parser().Parse(text.NewReader(source), parser.WithContext(ctx))

	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, source, doc); err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}

	words := CountWords(source)
	return Result{
		HTML:        buf.String(),
		TOC:         ExtractTOC(source),
		Words:       words,
		ReadingTime: ReadingTimeText(words),
		Assets:      localAssets(doc, source),
		Warnings:    code.warnings,
	}, nil
}

// headingIDs makes rendered heading ids match the ids ExtractTOC computes.
// Duplicates are not suffixed, so both stay in agreement.
type headingIDs struct{}

// Generate receives the raw heading source, the same text ExtractTOC sees.
func (headingIDs) Generate(value []byte, _ gmast.NodeKind) []byte {
	return []byte(headingID(string(value)))
}

func (headingIDs) Put([]byte) {}
