package detx

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const (
	xmlDeclaration = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`
	indentUnit     = "  "
)

type attr struct {
	name  string
	value string
}

// xmlWriter emits pretty-printed elements and keeps the first write error.
type xmlWriter struct {
	w     *bufio.Writer
	depth int
	n     int64
	err   error
}

func newXMLWriter(w io.Writer) *xmlWriter {
	return &xmlWriter{w: bufio.NewWriter(w)}
}

func (x *xmlWriter) raw(s string) {
	if x.err != nil {
		return
	}
	n, err := x.w.WriteString(s)
	x.n += int64(n)
	x.err = err
}

func (x *xmlWriter) indent() {
	x.raw(strings.Repeat(indentUnit, x.depth))
}

func (x *xmlWriter) startTag(name string, attrs []attr) {
	x.raw("<" + name)
	for _, a := range attrs {
		x.raw(" " + a.name + `="`)
		x.raw(escape(a.value, true))
		x.raw(`"`)
	}
}

// open writes a start tag on its own line and descends one level.
func (x *xmlWriter) open(name string, attrs ...attr) {
	x.indent()
	x.startTag(name, attrs)
	x.raw(">\n")
	x.depth++
}

func (x *xmlWriter) close(name string) {
	x.depth--
	x.indent()
	x.raw("</" + name + ">\n")
}

// empty writes a self-closing element.
func (x *xmlWriter) empty(name string, attrs ...attr) {
	x.indent()
	x.startTag(name, attrs)
	x.raw("/>\n")
}

// text writes an element holding character data. Empty text still produces
// an explicit start and end tag.
func (x *xmlWriter) text(name, value string, attrs ...attr) {
	x.indent()
	x.startTag(name, attrs)
	x.raw(">")
	x.raw(escape(value, false))
	x.raw("</" + name + ">\n")
}

func (x *xmlWriter) flush() error {
	if x.err != nil {
		return x.err
	}
	return x.w.Flush()
}

// WriteTo serializes the document as UTF-8 XML with two-space indentation.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	if d == nil {
		return 0, fmt.Errorf("write detx: nil document")
	}
	x := newXMLWriter(w)
	x.raw(xmlDeclaration + "\n")
	x.open("detx", attr{"copyright", d.Copyright})

	x.open("header")
	x.empty("cappella", attr{"version", d.Header.Cappella.Version})
	x.text("title", d.Header.Title)
	x.text("title2", d.Header.Title2)
	x.empty("episode", attr{"number", d.Header.Episode.Number})
	x.text("videofile", d.Header.VideoFile.Path, attr{"timestamp", d.Header.VideoFile.Timestamp})
	x.text("audiofile", d.Header.AudioFile.Path)
	x.close("header")

	if len(d.Roles) == 0 {
		x.empty("roles")
	} else {
		x.open("roles")
		for _, role := range d.Roles {
			x.empty("role",
				attr{"color", role.Color},
				attr{"description", role.Description},
				attr{"gender", role.Gender},
				attr{"id", role.ID},
				attr{"name", role.Name},
			)
		}
		x.close("roles")
	}

	if len(d.Lines) == 0 {
		x.empty("body")
	} else {
		x.open("body")
		for _, line := range d.Lines {
			x.open("line", attr{"role", line.Role}, attr{"track", line.Track})
			x.empty("lipsync", attr{"timecode", line.Open().Timecode}, attr{"type", line.Open().Type})
			x.text("text", line.Text)
			x.empty("lipsync", attr{"timecode", line.Close().Timecode}, attr{"type", line.Close().Type})
			x.close("line")
		}
		x.close("body")
	}

	x.close("detx")
	if err := x.flush(); err != nil {
		return x.n, fmt.Errorf("write detx: %w", err)
	}
	return x.n, nil
}

// Bytes serializes the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// escape replaces XML-reserved characters with entities. Characters outside
// the XML character range become U+FFFD so the output stays well-formed.
func escape(s string, attribute bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			if attribute {
				b.WriteString("&apos;")
			} else {
				b.WriteRune(r)
			}
		case '\n':
			if attribute {
				b.WriteString("&#xA;")
			} else {
				b.WriteRune(r)
			}
		case '\r':
			b.WriteString("&#xD;")
		case '\t':
			if attribute {
				b.WriteString("&#x9;")
			} else {
				b.WriteRune(r)
			}
		default:
			if !inCharacterRange(r) {
				b.WriteRune(utf8.RuneError)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

func inCharacterRange(r rune) bool {
	return r == 0x09 ||
		r == 0x0A ||
		r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}
