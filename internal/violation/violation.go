package violation

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultPlaintiff is the agency that brings every order this tool reads
	DefaultPlaintiff = "Iowa Department of Natural Resources"
	// TypeEnvironmental is the only violation type recorded today
	TypeEnvironmental = "environmental"
)

var (
	// ErrNotFound is returned when no violation has the requested ID
	ErrNotFound = errors.New("violation not found")
	// ErrDuplicate is returned when a violation with the same defendant,
	// year and link is already stored
	ErrDuplicate = errors.New("violation already exists")
	// ErrNoText is returned when no text could be extracted from a document
	ErrNoText = errors.New("no text extracted from document")
)

// Violation is one enforcement order and the penalty it imposes
type Violation struct {
	ID            string           `json:"id"`
	Defendant     string           `json:"defendant"`
	Plaintiff     string           `json:"plaintiff"`
	Year          int              `json:"year"`
	Settlement    *decimal.Decimal `json:"settlement"` // nil when no amount was recovered
	ViolationType string           `json:"violation_type"`
	DataSource    string           `json:"data_source"`
	Link          string           `json:"link"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// Key identifies a violation for deduplication
func (v *Violation) Key() string {
	return Key(v.Defendant, v.Year, v.Link)
}

// Key builds the deduplication key for a defendant, year and link
func Key(defendant string, year int, link string) string {
	return strings.Join([]string{strings.TrimSpace(defendant), strconv.Itoa(year), strings.TrimSpace(link)}, "\x00")
}

// Document is a search result pointing at an order to process
type Document struct {
	URL       string `json:"url" yaml:"url"`
	Defendant string `json:"defendant" yaml:"defendant"`
	Year      int    `json:"year" yaml:"year"`
	Notes     string `json:"notes,omitempty" yaml:"notes"`
}

// Summary tallies the outcome of saving a batch
type Summary struct {
	Total           int `json:"total"`
	Saved           int `json:"saved"`
	Existing        int `json:"existing"`
	Failed          int `json:"failed"`
	NullSettlements int `json:"null_settlements"`
}
