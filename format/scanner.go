package format

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// tokenScanner is a minimal forward token reader over a DIMACS-family
// stream: whitespace-separated tokens, comment lines starting with 'c'
// skipped whole. It plays the role of gbdc's StreamBuffer, stripped down to
// what a bufio.Scanner already gives us for free.
type tokenScanner struct {
	sc        *bufio.Scanner
	buf       []string
	pos       int
	commentOf string // comment-line prefixes for nextToken's implicit line skipping
}

func newTokenScanner(r io.Reader) *tokenScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	sc.Split(bufio.ScanLines)
	return &tokenScanner{sc: sc}
}

// nextLine returns the next non-comment, non-empty line's fields, or false
// at EOF. commentPrefixes lists the leading bytes that mark a whole line as
// a comment (DIMACS uses "c", QDIMACS and OPB sometimes use "*").
func (t *tokenScanner) nextLine(commentPrefixes string) ([]string, bool) {
	for t.sc.Scan() {
		line := t.sc.Text()
		fields := splitFields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields[0]) > 0 && containsByte(commentPrefixes, fields[0][0]) {
			continue
		}
		return fields, true
	}
	return nil, false
}

// nextToken returns the next whitespace-separated token from the stream,
// transparently skipping whole lines that start with one of commentPrefixes
// and advancing across line boundaries — clauses in DIMACS-family formats
// may legally span multiple lines before their terminating 0.
func (t *tokenScanner) nextToken(commentPrefixes string) (string, bool) {
	for {
		if t.pos < len(t.buf) {
			tok := t.buf[t.pos]
			t.pos++
			return tok, true
		}
		fields, ok := t.nextLine(commentPrefixes)
		if !ok {
			return "", false
		}
		t.buf = fields
		t.pos = 0
	}
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

func splitFields(line string) []string {
	var fields []string
	start := -1
	for i := 0; i <= len(line); i++ {
		isSpace := i == len(line) || line[i] == ' ' || line[i] == '\t' || line[i] == '\r'
		if isSpace {
			if start >= 0 {
				fields = append(fields, line[start:i])
				start = -1
			}
		} else if start < 0 {
			start = i
		}
	}
	return fields
}

func parseInt32(tok string) (int32, error) {
	n, err := strconv.ParseInt(tok, 10, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "format: invalid integer token %q", tok)
	}
	return int32(n), nil
}

func parseFloat64(tok string) (float64, error) {
	n, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "format: invalid numeric token %q", tok)
	}
	return n, nil
}
