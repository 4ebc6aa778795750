package markdown

import (
	"bytes"
	"fmt"
	"html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// codeBlockRenderer highlights fenced and indented code with chroma. A block
// whose language is unknown, or whose highlighting fails, is written as a
// plain escaped <pre><code> block and noted in warnings.
type codeBlockRenderer struct {
	style     *chroma.Style
	formatter *chromahtml.Formatter
	warnings  []string
}

func newCodeBlockRenderer(style string) *codeBlockRenderer {
	return &codeBlockRenderer{
		style:     styles.Get(style),
		formatter: chromahtml.New(chromahtml.WithClasses(false), chromahtml.PreventSurroundingPre(false)),
	}
}

func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(gmast.KindFencedCodeBlock, r.renderCode)
	reg.Register(gmast.KindCodeBlock, r.renderCode)
}

func (r *codeBlockRenderer) renderCode(w util.BufWriter, source []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if !entering {
		return gmast.WalkContinue, nil
	}

	var lang string
	if fenced, ok := node.(*gmast.FencedCodeBlock); ok {
		if l := fenced.Language(source); l != nil {
			lang = string(l)
		}
	}

	var code strings.Builder
	lines := node.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	out, err := r.highlight(code.String(), lang)
	if err != nil {
		r.warnings = append(r.warnings, fmt.Sprintf("code block %q not highlighted: %v", lang, err))
		out = "<pre><code>" + html.EscapeString(code.String()) + "</code></pre>\n"
	}
	_, _ = w.WriteString(out)
	return gmast.WalkSkipChildren, nil
}

func (r *codeBlockRenderer) highlight(code, lang string) (string, error) {
	lexer := lexers.Get("plaintext")
	if lang != "" {
		lexer = lexers.Get(lang)
		if lexer == nil {
			return "", fmt.Errorf("unsupported language")
		}
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.style, iterator); err != nil {
		return "", err
	}
	return buf.String(), nil
}
