package cues

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// Delimiter separates fields within a row.
	Delimiter = '|'
	// Quote wraps fields that contain delimiters; a doubled quote escapes itself.
	Quote = '"'

	maxLineBytes = 1 << 20
)

// RawRow holds the trimmed fields of one physical input line.
type RawRow []string

// Blank reports whether every field is empty after trimming.
func (r RawRow) Blank() bool {
	for _, field := range r {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// Cue is one timed line of dialogue. Start and End keep the source
// `HH:MM:SS,mmm` form; conversion to frames happens when the document is built.
type Cue struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Text  string `json:"text"`
}

// ErrLineTooLong marks a physical line longer than the reader accepts. The line
// is skipped and reading resumes at the next one.
var ErrLineTooLong = fmt.Errorf("line exceeds %d bytes", maxLineBytes)

// RowError describes a row the reader could not parse cleanly. A row with bad
// quoting is still produced with its content taken literally; an overlong row
// (ErrLineTooLong) is skipped.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Stats summarizes what a Reader consumed.
type Stats struct {
	Rows      int `json:"rows"`
	Cues      int `json:"cues"`
	Dropped   int `json:"dropped"`
	RowErrors int `json:"row_errors"`
}

// ReaderOption customizes a Reader.
type ReaderOption func(*Reader)

// WithWarningHandler registers fn to receive every per-row parse problem.
func WithWarningHandler(fn func(*RowError)) ReaderOption {
	return func(r *Reader) {
		r.warn = fn
	}
}

// Reader is a lazy, single-pass sequence of rows read from a transcript.
type Reader struct {
	src       *bufio.Reader
	line      int
	sawHeader bool
	warn      func(*RowError)
	stats     Stats
	err       error
}

// NewReader wraps r. A leading byte order mark selects UTF-8 or UTF-16
// decoding; input without one is read as UTF-8.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := &Reader{src: bufio.NewReaderSize(decoded, 64*1024)}
	for _, opt := range opts {
		opt(reader)
	}
	return reader
}

// Next returns the next non-blank data row. The header row is skipped. At the
// end of input Next returns io.EOF; any other error is terminal.
func (r *Reader) Next() (RawRow, error) {
	if r.err != nil {
		return nil, r.err
	}
	for {
		line, tooLong, err := r.readLine()
		if errors.Is(err, io.EOF) {
			r.err = io.EOF
			return nil, io.EOF
		}
		if err != nil {
			r.err = fmt.Errorf("read subtitles at line %d: %w", r.line+1, err)
			return nil, r.err
		}
		r.line++
		if tooLong {
			if !r.sawHeader {
				r.sawHeader = true
				continue
			}
			r.report(&RowError{Line: r.line, Err: ErrLineTooLong})
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !r.sawHeader {
			r.sawHeader = true
			continue
		}
		row := r.split(line)
		if row.Blank() {
			continue
		}
		r.stats.Rows++
		return row, nil
	}
}

// readLine returns the next physical line without its terminator. A line over
// maxLineBytes is consumed up to its newline and returned empty with tooLong
// set. io.EOF is returned only when no bytes remain.
func (r *Reader) readLine() (line string, tooLong bool, err error) {
	var (
		buf  []byte
		read int
	)
	for {
		chunk, readErr := r.src.ReadSlice('\n')
		read += len(chunk)
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes+len("\r\n") {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		switch {
		case readErr == nil:
			return trimEOL(buf), tooLong, nil
		case errors.Is(readErr, bufio.ErrBufferFull):
			continue
		case errors.Is(readErr, io.EOF):
			if read == 0 {
				return "", false, io.EOF
			}
			return trimEOL(buf), tooLong, nil
		default:
			return "", false, readErr
		}
	}
}

func trimEOL(b []byte) string {
	return strings.TrimRight(string(b), "\r\n")
}

func (r *Reader) report(rowErr *RowError) {
	r.stats.RowErrors++
	if r.warn != nil {
		r.warn(rowErr)
	}
}

// NextCue returns the next row that carries all three cue fields. Rows missing
// a field are counted as dropped and skipped.
func (r *Reader) NextCue() (Cue, error) {
	for {
		row, err := r.Next()
		if err != nil {
			return Cue{}, err
		}
		cue, ok := CueFromRow(row)
		if !ok {
			r.stats.Dropped++
			continue
		}
		r.stats.Cues++
		return cue, nil
	}
}

// Rows ranges over the remaining data rows. Check Err afterwards.
func (r *Reader) Rows() iter.Seq[RawRow] {
	return func(yield func(RawRow) bool) {
		for {
			row, err := r.Next()
			if err != nil || !yield(row) {
				return
			}
		}
	}
}

// Cues ranges over the remaining cues. Check Err afterwards.
func (r *Reader) Cues() iter.Seq[Cue] {
	return func(yield func(Cue) bool) {
		for {
			cue, err := r.NextCue()
			if err != nil || !yield(cue) {
				return
			}
		}
	}
}

// Err returns the terminal read error, or nil when input ended normally.
func (r *Reader) Err() error {
	if r.err == nil || errors.Is(r.err, io.EOF) {
		return nil
	}
	return r.err
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() Stats {
	return r.stats
}

func (r *Reader) split(line string) RawRow {
	fields, err := parseFields(line, false)
	if err == nil {
		return trimFields(fields)
	}
	// A quote inside an unquoted field is allowed by the dialect.
	if errors.Is(err, csv.ErrBareQuote) {
		if fields, lazyErr := parseFields(line, true); lazyErr == nil {
			return trimFields(fields)
		}
	}
	r.report(&RowError{Line: r.line, Err: err})
	return literalFields(line)
}

func parseFields(line string, lazy bool) ([]string, error) {
	reader := csv.NewReader(strings.NewReader(line))
	reader.Comma = Delimiter
	reader.LazyQuotes = lazy
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return reader.Read()
}

// literalFields splits on every delimiter, keeping quotes as text except for a
// single pair wrapping a whole field.
func literalFields(line string) RawRow {
	parts := strings.Split(line, string(Delimiter))
	row := make(RawRow, 0, len(parts))
	for _, part := range parts {
		field := strings.TrimSpace(part)
		if len(field) >= 2 && field[0] == Quote && field[len(field)-1] == Quote {
			field = strings.ReplaceAll(field[1:len(field)-1], `""`, `"`)
		}
		row = append(row, field)
	}
	return row
}

func trimFields(fields []string) RawRow {
	row := make(RawRow, len(fields))
	for i, field := range fields {
		row[i] = strings.TrimSpace(field)
	}
	return row
}

// CueFromRow builds a cue from the first three fields of row. It reports false
// when a field is missing or empty after trimming. Directives are stripped
// after that check, so a directive-only text yields a cue with empty text.
func CueFromRow(row RawRow) (Cue, bool) {
	if len(row) < 3 {
		return Cue{}, false
	}
	start := strings.TrimSpace(row[0])
	end := strings.TrimSpace(row[1])
	text := strings.TrimSpace(row[2])
	if start == "" || end == "" || text == "" {
		return Cue{}, false
	}
	return Cue{Start: start, End: end, Text: StripDirectives(text)}, true
}

// ReadAll drains r into a cue slice.
func ReadAll(r io.Reader, opts ...ReaderOption) ([]Cue, Stats, error) {
	reader := NewReader(r, opts...)
	var out []Cue
	for cue := range reader.Cues() {
		out = append(out, cue)
	}
	return out, reader.Stats(), reader.Err()
}
