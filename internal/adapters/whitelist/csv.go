// Package whitelist loads the set of identifiers allowed to become graduates.
package whitelist

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vncsmyrnk/gradgate/internal/core/domain"
	"github.com/vncsmyrnk/gradgate/internal/core/ports"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const DefaultColumn = "cedula"

var (
	errMissingColumn = errors.New("header column not found")
	errEmpty         = errors.New("no identifiers to authorize")
)

// Parse reads a header-first CSV and returns the normalized values of column.
// A UTF-8 or UTF-16 byte order mark is honoured and the header lookup ignores
// case and surrounding whitespace. Both comma and semicolon separated files
// are accepted.
func Parse(r io.Reader, column string) (domain.WhitelistSet, error) {
	if strings.TrimSpace(column) == "" {
		column = DefaultColumn
	}

	br := bufio.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader := csv.NewReader(br)
	reader.Comma = sniffDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errEmpty
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := -1
	want := normalizeHeader(column)
	for i, name := range header {
		if normalizeHeader(name) == want {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", errMissingColumn, column)
	}

	set := make(domain.WhitelistSet)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if idx >= len(row) {
			continue
		}
		if id := domain.NormalizeIdentifier(row[idx]); id != "" {
			set[id] = struct{}{}
		}
	}

	if len(set) == 0 {
		return nil, errEmpty
	}
	return set, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// sniffDelimiter picks ';' when the header line has semicolons but no commas.
func sniffDelimiter(br *bufio.Reader) rune {
	line, _ := br.Peek(br.Size())
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	if bytes.IndexByte(line, ';') >= 0 && bytes.IndexByte(line, ',') < 0 {
		return ';'
	}
	return ','
}

type fileLoader struct {
	path   string
	column string
}

// NewFileLoader reads the whitelist from path on every Load, so edits to the
// file take effect on the next sync run.
func NewFileLoader(path, column string) ports.WhitelistSource {
	return &fileLoader{path: path, column: column}
}

func (l *fileLoader) Load(ctx context.Context) (domain.WhitelistSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, &domain.ConfigError{Source: l.path, Err: err}
	}
	defer f.Close()

	set, err := Parse(f, l.column)
	if err != nil {
		return nil, &domain.ConfigError{Source: l.path, Err: err}
	}
	return set, nil
}
