package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"

	"github.com/leapstack-labs/leapsheet/pkg/column"
)

// ErrUnsupportedFormat is returned for file extensions without a codec.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Format describes a delimited-text dialect.
type Format struct {
	Ext   string
	Comma rune
}

var formats = map[string]Format{
	".csv": {Ext: ".csv", Comma: ','},
	".tsv": {Ext: ".tsv", Comma: '\t'},
	".tab": {Ext: ".tab", Comma: '\t'},
}

// FormatFor returns the codec for a path by extension.
func FormatFor(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	f, ok := formats[ext]
	if !ok {
		if ext == "" {
			ext = "(none)"
		}
		return Format{}, fmt.Errorf("%w: %s (supported: .csv, .tsv)", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// Open loads a delimited file into a frame backed by a FileStore at path.
func Open(path string) (*Frame, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	f, err := Decode(filepath.Base(path), raw, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	f.SetSaver(NewFileStore(path))
	return f, nil
}

// Decode parses delimited text. UTF-8 (with or without BOM) is tried first,
// then GB18030.
func Decode(name string, raw []byte, format Format) (*Frame, error) {
	text, err := decodeText(raw)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = format.Comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return New(name), nil
	}

	headers := uniqueHeaders(records[0])
	f := New(name, headers...)
	body := records[1:]
	f.AppendRows(len(body))

	for ci, col := range headers {
		cells := make([]string, len(body))
		for ri, rec := range body {
			if ci < len(rec) {
				cells[ri] = rec[ci]
			}
		}
		values, kind := inferColumn(cells)
		if err := f.SetValues(col, values, kind); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func decodeText(raw []byte) (string, error) {
	if text, err := decodeWith(unicode.UTF8BOM, raw); err == nil && utf8.Valid(raw) {
		return text, nil
	}
	out, err := decodeWith(simplifiedchinese.GB18030, raw)
	if err != nil {
		return "", fmt.Errorf("unrecognised text encoding: %w", err)
	}
	return out, nil
}

func decodeWith(enc encoding.Encoding, raw []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// uniqueHeaders fills blank headers with letter codes and suffixes duplicates.
func uniqueHeaders(in []string) []string {
	out := make([]string, len(in))
	seen := make(map[string]bool, len(in))
	for i, h := range in {
		h = strings.TrimSpace(h)
		if h == "" {
			h = column.Letters(i)
		}
		name := h
		for n := 2; seen[name]; n++ {
			name = h + "_" + strconv.Itoa(n)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

// inferColumn types a column: all integers, then all numbers, else text. A
// cell counts as a number only when it is already in the form Row writes back
// ("02134", "1.50" and "+3" stay text), so saving never rewrites it.
func inferColumn(raw []string) ([]any, Kind) {
	values := make([]any, len(raw))
	nonEmpty := 0
	allInt, allNum := true, true
	for _, s := range raw {
		if strings.TrimSpace(s) == "" {
			continue
		}
		nonEmpty++
		if _, ok := canonicalInt(s); !ok {
			allInt = false
		}
		if _, ok := canonicalFloat(s); !ok {
			allNum = false
		}
	}
	if nonEmpty == 0 {
		return values, KindEmpty
	}

	for i, s := range raw {
		switch {
		case strings.TrimSpace(s) == "":
			values[i] = nil
		case allInt:
			values[i], _ = canonicalInt(s)
		case allNum:
			values[i], _ = canonicalFloat(s)
		default:
			values[i] = s
		}
	}
	if allInt || allNum {
		return values, KindNumeric
	}
	return values, KindText
}

func canonicalInt(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil && strconv.FormatInt(n, 10) == s
}

func canonicalFloat(s string) (float64, bool) {
	n, err := strconv.ParseFloat(s, 64)
	return n, err == nil && strconv.FormatFloat(n, 'f', -1, 64) == s
}

// Encode writes the frame as UTF-8 with a leading BOM.
func Encode(w io.Writer, f *Frame, format Format) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.Comma = format.Comma
	if err := cw.Write(f.Columns()); err != nil {
		return err
	}
	for r := 0; r < f.Len(); r++ {
		if err := cw.Write(f.Row(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
