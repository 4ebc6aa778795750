package frontmatter

import (
	"fmt"
	"strconv"
	"strings"
)

// Field is one key of an emitted frontmatter block. Value must be a string,
// a bool or a []string; fields are written in the order given.
type Field struct {
	Key   string
	Value any
}

// Emit renders a document in the fixed shape the content store writes:
//
//	---
//	title: "Hello"
//	tags: ["go", "web"]
//	published: true
//	---
//
//	<trimmed body>
//
// Strings are always double-quoted with backslash escaping, so the output
// parses back through Split and ParseYAML to the same values.
func Emit(fields []Field, body string) ([]byte, error) {
	var b strings.Builder
	b.WriteString("---\n")
	for _, f := range fields {
		v, err := scalar(f.Value)
		if err != nil {
			return nil, fmt.Errorf("frontmatter field %q: %w", f.Key, err)
		}
		b.WriteString(f.Key)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteByte('\n')
	}
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimSpace(body))
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

func scalar(v any) (string, error) {
	switch vv := v.(type) {
	case string:
		return Quote(vv), nil
	case bool:
		return strconv.FormatBool(vv), nil
	case []string:
		quoted := make([]string, len(vv))
		for i, s := range vv {
			quoted[i] = Quote(s)
		}
		return "[" + strings.Join(quoted, ", ") + "]", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

// Quote returns s as a YAML double-quoted scalar. Go's escape sequences are a
// subset of YAML's except \xNN for invalid UTF-8, which YAML reads as a code
// point; invalid bytes are therefore replaced with U+FFFD first.
func Quote(s string) string {
	return strconv.Quote(strings.ToValidUTF8(s, "\uFFFD"))
}
