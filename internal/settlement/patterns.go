package settlement

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed patterns.yaml
var defaultPatternsYAML []byte

// ErrEmptyTable is returned when a pattern table has no entries
var ErrEmptyTable = errors.New("pattern table is empty")

// Pattern is one compiled penalty phrase
type Pattern struct {
	Expr string
	re   *regexp.Regexp
}

// Table is an ordered, read-only list of penalty phrase patterns.
// Earlier patterns take priority. A Table is safe for concurrent use.
type Table struct {
	patterns []Pattern
}

type tableFile struct {
	Patterns []string `yaml:"patterns"`
}

// NewTable compiles exprs in order. Every expression must contain exactly
// one capturing group for the numeral; matching is always case-insensitive.
func NewTable(exprs []string) (*Table, error) {
	if len(exprs) == 0 {
		return nil, ErrEmptyTable
	}

	patterns := make([]Pattern, 0, len(exprs))
	for i, expr := range exprs {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return nil, fmt.Errorf("compiling pattern %d %q: %w", i, expr, err)
		}
		if re.NumSubexp() != 1 {
			return nil, fmt.Errorf("pattern %d %q: want exactly one capture group, got %d", i, expr, re.NumSubexp())
		}
		patterns = append(patterns, Pattern{Expr: expr, re: re})
	}

	return &Table{patterns: patterns}, nil
}

// ParseTable reads a YAML document with a top-level "patterns" list
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshaling pattern table: %w", err)
	}
	return NewTable(f.Patterns)
}

// LoadTable reads a pattern table from a YAML file
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pattern table: %w", err)
	}
	return ParseTable(data)
}

// DefaultTable returns the built-in penalty phrase table
func DefaultTable() *Table {
	t, err := ParseTable(defaultPatternsYAML)
	if err != nil {
		panic(fmt.Sprintf("built-in pattern table: %v", err))
	}
	return t
}

// Len returns the number of patterns
func (t *Table) Len() int {
	return len(t.patterns)
}

// Exprs returns the source expressions in priority order
func (t *Table) Exprs() []string {
	exprs := make([]string, len(t.patterns))
	for i, p := range t.patterns {
		exprs[i] = p.Expr
	}
	return exprs
}
