// Package streaming implements the Hadoop streaming record contract:
// tab-separated key/value lines on stdin and stdout.
package streaming

import (
	"bufio"
	"io"
	"strings"
)

// KV is one streaming record.
type KV struct {
	Key   string
	Value string
}

// ParseRecord splits a line at its first tab. A line without a tab is a key
// with an empty value.
func ParseRecord(line string) KV {
	parts := strings.SplitN(line, "\t", 2)
	if len(parts) == 1 {
		return KV{Key: parts[0]}
	}
	return KV{Key: parts[0], Value: parts[1]}
}

// EncodeKVs renders records as streaming lines.
func EncodeKVs(kvs []KV) string {
	if len(kvs) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(len(kvs) * 24)
	for i := range kvs {
		b.WriteString(kvs[i].Key)
		b.WriteByte('\t')
		b.WriteString(kvs[i].Value)
		b.WriteByte('\n')
	}
	return b.String()
}

// DecodeKVs is the inverse of EncodeKVs. Empty lines are skipped.
func DecodeKVs(raw string) []KV {
	raw = strings.TrimRight(raw, "\r\n")
	if raw == "" {
		return nil
	}
	lines := strings.Split(raw, "\n")
	out := make([]KV, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		out = append(out, ParseRecord(line))
	}
	return out
}

// Writer emits records one line at a time.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Emit writes key, a tab, value and a newline in a single write.
func (w *Writer) Emit(key, value string) error {
	_, err := io.WriteString(w.w, key+"\t"+value+"\n")
	return err
}

// LineReader yields the lines of a stream without the terminator and
// without a length limit. A final line with no newline is still returned.
type LineReader struct {
	br   *bufio.Reader
	text string
	line int
	err  error
	done bool
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{br: bufio.NewReader(r)}
}

// Next advances to the next line.
func (lr *LineReader) Next() bool {
	if lr.done {
		return false
	}
	s, err := lr.br.ReadString('\n')
	if err != nil {
		lr.done = true
		if err != io.EOF {
			lr.err = err
			return false
		}
		if s == "" {
			return false
		}
	}
	lr.line++
	lr.text = strings.TrimSuffix(s, "\n")
	return true
}

// Text is the current line.
func (lr *LineReader) Text() string { return lr.text }

// Line is the 1-based number of the current line.
func (lr *LineReader) Line() int { return lr.line }

// Err returns the first non-EOF read error.
func (lr *LineReader) Err() error { return lr.err }

// Reader iterates records, skipping blank lines.
type Reader struct {
	lr  *LineReader
	rec KV
}

func NewReader(r io.Reader) *Reader {
	return &Reader{lr: NewLineReader(r)}
}

func (r *Reader) Next() bool {
	for r.lr.Next() {
		text := strings.TrimSuffix(r.lr.Text(), "\r")
		if text == "" {
			continue
		}
		r.rec = ParseRecord(text)
		return true
	}
	return false
}

func (r *Reader) Record() KV { return r.rec }

func (r *Reader) Line() int { return r.lr.Line() }

func (r *Reader) Err() error { return r.lr.Err() }
