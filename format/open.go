package format

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"

	"github.com/cnfsuite/xpool/engine"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Open opens path, transparently decompressing gzip or zstd streams
// (content-sniffed by magic bytes, not by extension), detects which of the
// four supported formats the content is, and parses it with b as the
// growth-accounting budget.
//
// Grounded on the teacher's transitive reliance on klauspost/compress
// (pulled in by its S3/minio client stack) for gzip/zstd codecs — elevated
// here to the package's own direct decompression path.
func Open(path string, b *engine.Budget) (*Formula, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "format: open %s", path)
	}
	defer file.Close()

	r, err := Decompress(file)
	if err != nil {
		return nil, err
	}

	kind, r, err := Sniff(r)
	if err != nil {
		return nil, err
	}

	switch kind {
	case Kind(0).CNF():
		return ParseCNF(r, b)
	case Kind(0).WCNF():
		return ParseWCNF(r, b)
	case Kind(0).OPB():
		return ParseOPB(r, b)
	case Kind(0).QDIMACS():
		return ParseQDIMACS(r, b)
	default:
		return nil, errors.Errorf("format: could not classify %s", path)
	}
}

// Decompress wraps r in a gzip or zstd reader if its leading bytes match
// the corresponding magic number, otherwise returns r unchanged.
func Decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "format: peek stream header")
	}

	switch {
	case len(head) >= 2 && head[0] == gzipMagic[0] && head[1] == gzipMagic[1]:
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "format: open gzip stream")
		}
		return gz, nil
	case len(head) >= 4 && equalBytes(head, zstdMagic):
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "format: open zstd stream")
		}
		return zr.IOReadCloser(), nil
	default:
		return br, nil
	}
}

func equalBytes(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// sniffLookahead bounds how many leading non-comment lines Sniff reads
// before giving up on finding a QDIMACS quantifier block and falling back
// to plain CNF; a quantifier prefix is always contiguous right after the
// header, so a handful of lines is always enough.
const sniffLookahead = 8

// Sniff classifies a decompressed stream by its leading non-comment
// content, returning a reader that still yields every byte (the examined
// prefix is pushed back in front of the remaining stream).
func Sniff(r io.Reader) (Kind, io.Reader, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	var prefix strings.Builder
	var nonComment []string
	for len(nonComment) < sniffLookahead {
		line, err := br.ReadString('\n')
		prefix.WriteString(line)
		if trimmed := strings.TrimSpace(line); trimmed != "" && trimmed[0] != 'c' {
			nonComment = append(nonComment, line)
		}
		if err != nil {
			break
		}
	}

	rest := io.MultiReader(strings.NewReader(prefix.String()), br)
	if len(nonComment) == 0 {
		return 0, nil, errors.New("format: empty stream, cannot classify")
	}
	return classifyLines(nonComment), rest, nil
}

// classifyLines looks at a formula's leading non-comment lines: the header
// line decides CNF vs WCNF vs OPB outright; for a "p cnf" header, any
// quantifier block line ('a'/'e') before the first plain clause promotes
// the classification to QDIMACS.
func classifyLines(lines []string) Kind {
	header := splitFields(strings.TrimSpace(lines[0]))
	if len(header) == 0 {
		return Kind(0).CNF()
	}

	switch {
	case strings.HasPrefix(lines[0], "*") && strings.Contains(lines[0], "#variable="):
		return Kind(0).OPB()
	case header[0] == "p" && len(header) >= 2 && header[1] == "wcnf":
		return Kind(0).WCNF()
	case header[0] == "h":
		return Kind(0).WCNF()
	case looksLikeOPBTerm(header):
		return Kind(0).OPB()
	case header[0] == "p" && len(header) >= 2 && header[1] == "cnf":
		for _, line := range lines[1:] {
			f := splitFields(strings.TrimSpace(line))
			if len(f) == 0 {
				continue
			}
			if f[0] == "a" || f[0] == "e" {
				return Kind(0).QDIMACS()
			}
			break // first non-quantifier line after the header is the matrix
		}
		return Kind(0).CNF()
	default:
		return Kind(0).CNF()
	}
}

// looksLikeOPBTerm reports whether fields looks like an OPB objective or
// constraint opener ("min:", "max:", or a bare "+1 x1 ...") rather than a
// plain signed-literal CNF clause.
func looksLikeOPBTerm(fields []string) bool {
	if fields[0] == "min:" || fields[0] == "max:" {
		return true
	}
	if len(fields) >= 2 && strings.HasPrefix(fields[1], "x") {
		return true
	}
	return false
}
