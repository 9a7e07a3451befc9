package settlement

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var reNonNumeral = regexp.MustCompile(`[^\d.,]`)

var errEmptyNumeral = errors.New("numeral is empty after cleanup")

// Recoverer finds a single settlement amount in extracted document text
type Recoverer struct {
	table  *Table
	logger *slog.Logger
}

// NewRecoverer creates a Recoverer over table. A nil logger uses slog.Default.
func NewRecoverer(table *Table, logger *slog.Logger) *Recoverer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recoverer{table: table, logger: logger}
}

// Recover scans text with each pattern in priority order and returns the
// first numeral that parses. A match whose numeral does not parse is
// skipped in favour of the next pattern.
func (r *Recoverer) Recover(text string) (decimal.Decimal, bool) {
	if text == "" {
		return decimal.Decimal{}, false
	}

	for i, p := range r.table.patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}

		amount, err := ParseAmount(m[1])
		if err != nil {
			r.logger.Debug("pattern matched unparsable numeral",
				"pattern", i,
				"numeral", m[1],
				"error", err,
			)
			continue
		}

		r.logger.Info("Found settlement amount", "amount", amount.StringFixed(2), "pattern", i)
		return amount, true
	}

	r.logger.Warn("No settlement amount found", "preview", Preview(text, 500))
	return decimal.Decimal{}, false
}

// ParseAmount repairs and parses a captured numeral. S and s are read as 5,
// everything except digits, commas and periods is dropped, and commas are
// treated as thousands separators.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer("S", "5", "s", "5").Replace(s)
	s = reNonNumeral.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Decimal{}, errEmptyNumeral
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing numeral %q: %w", raw, err)
	}
	return d, nil
}

// Preview flattens text onto one line and caps it at max runes
func Preview(text string, max int) string {
	flat := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if max <= 0 || utf8.RuneCountInString(flat) <= max {
		return flat
	}
	return string([]rune(flat)[:max]) + "..."
}
