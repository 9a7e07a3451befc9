package violation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zombor/penalty-tracker/internal/extraction"
	"github.com/zombor/penalty-tracker/internal/settlement"
)

// DefaultDataSource is the document search the orders are listed on
const DefaultDataSource = "https://programs.iowadnr.gov/documentsearch/Home/Search"

// previewLength bounds the text logged for each processed document
const previewLength = 500

// Extractor turns a document URL into text
type Extractor interface {
	Extract(ctx context.Context, url string) *extraction.Result
}

// AmountRecoverer finds the penalty amount in document text
type AmountRecoverer interface {
	Recover(text string) (decimal.Decimal, bool)
}

// IDGenerator generates unique IDs for violations
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now().UTC()
}

// Service turns documents into stored violations
type Service struct {
	db          DB
	extractor   Extractor
	recoverer   AmountRecoverer
	dataSource  string
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with UUID IDs and the wall clock
func NewService(db DB, extractor Extractor, recoverer AmountRecoverer, dataSource string) *Service {
	return NewServiceWithDeps(db, extractor, recoverer, dataSource, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor Extractor, recoverer AmountRecoverer, dataSource string, idGen IDGenerator, timeSrc TimeSource) *Service {
	if dataSource == "" {
		dataSource = DefaultDataSource
	}
	return &Service{
		db:          db,
		extractor:   extractor,
		recoverer:   recoverer,
		dataSource:  dataSource,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// ProcessDocument extracts the text of doc and builds a violation from it.
// A document without text is an ErrNoText error; a document without a
// recognizable amount yields a violation with a nil Settlement.
func (s *Service) ProcessDocument(ctx context.Context, doc Document) (*Violation, error) {
	doc.URL = strings.TrimSpace(doc.URL)
	if doc.URL == "" {
		return nil, errors.New("document url is required")
	}

	slog.Info("Processing document", "defendant", doc.Defendant, "url", doc.URL)

	res := s.extractor.Extract(ctx, doc.URL)
	if res == nil {
		slog.Error("Failed to extract text from PDF", "defendant", doc.Defendant, "url", doc.URL)
		return nil, fmt.Errorf("%w: %s", ErrNoText, doc.URL)
	}

	// a missed amount usually means the pattern table needs a new phrase
	slog.Info("Extracted text preview",
		"defendant", doc.Defendant,
		"method", res.Method,
		"preview", settlement.Preview(res.Text, previewLength),
	)

	v := &Violation{
		ID:            s.idGenerator.Generate(),
		Defendant:     strings.TrimSpace(doc.Defendant),
		Plaintiff:     DefaultPlaintiff,
		Year:          doc.Year,
		ViolationType: TypeEnvironmental,
		DataSource:    s.dataSource,
		Link:          doc.URL,
		Notes:         strings.TrimSpace(doc.Notes),
		CreatedAt:     s.timeSource.Now(),
	}

	if amount, ok := s.recoverer.Recover(res.Text); ok {
		v.Settlement = &amount
		slog.Info("Found settlement", "defendant", v.Defendant, "settlement", amount.StringFixed(2))
	} else {
		slog.Warn("No settlement found", "defendant", v.Defendant)
	}

	return v, nil
}

// SaveRecords stores every violation whose key is not already taken. A
// failure on one record is logged and does not stop the batch.
func (s *Service) SaveRecords(violations []*Violation) Summary {
	summary := Summary{Total: len(violations)}

	for _, v := range violations {
		exists, err := s.db.Exists(v.Key())
		if err != nil {
			slog.Error("Error saving violation", "defendant", v.Defendant, "error", err)
			summary.Failed++
			continue
		}
		if exists {
			slog.Info("Existing record", "defendant", v.Defendant)
			summary.Existing++
			continue
		}

		if err := s.db.Save(v); err != nil {
			if errors.Is(err, ErrDuplicate) {
				slog.Info("Existing record", "defendant", v.Defendant)
				summary.Existing++
				continue
			}
			slog.Error("Error saving violation", "defendant", v.Defendant, "error", err)
			summary.Failed++
			continue
		}

		if v.Settlement == nil {
			summary.NullSettlements++
			slog.Warn("NULL SETTLEMENT", "defendant", v.Defendant, "link", v.Link)
		} else {
			slog.Info("VALID SETTLEMENT", "defendant", v.Defendant, "settlement", v.Settlement.StringFixed(2))
		}
		summary.Saved++
	}

	slog.Info("Summary",
		"total", summary.Total,
		"saved", summary.Saved,
		"existing", summary.Existing,
		"failed", summary.Failed,
		"null_settlements", summary.NullSettlements,
	)
	return summary
}

// Record processes doc and stores the result, failing with ErrDuplicate
// when the violation is already stored
func (s *Service) Record(ctx context.Context, doc Document) (*Violation, error) {
	exists, err := s.db.Exists(Key(doc.Defendant, doc.Year, doc.URL))
	if err != nil {
		return nil, fmt.Errorf("checking for existing violation: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s (%d)", ErrDuplicate, doc.Defendant, doc.Year)
	}

	v, err := s.ProcessDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := s.db.Save(v); err != nil {
		return nil, fmt.Errorf("saving violation: %w", err)
	}
	return v, nil
}

// PreviewResult is the extracted text and recovered amount of a document
// that was not stored
type PreviewResult struct {
	URL        string           `json:"url"`
	Method     string           `json:"method"`
	Text       string           `json:"text"`
	Settlement *decimal.Decimal `json:"settlement"`
}

// Preview extracts url and recovers its amount without storing anything
func (s *Service) Preview(ctx context.Context, url string) (*PreviewResult, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("document url is required")
	}

	res := s.extractor.Extract(ctx, url)
	if res == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoText, url)
	}

	out := &PreviewResult{URL: url, Method: res.Method, Text: res.Text}
	if amount, ok := s.recoverer.Recover(res.Text); ok {
		out.Settlement = &amount
	}
	return out, nil
}

// Get retrieves a violation by ID
func (s *Service) Get(id string) (*Violation, error) {
	v, err := s.db.Get(id)
	if err != nil {
		return nil, fmt.Errorf("getting violation: %w", err)
	}
	return v, nil
}

// List returns all violations
func (s *Service) List() ([]*Violation, error) {
	violations, err := s.db.List()
	if err != nil {
		return nil, fmt.Errorf("listing violations: %w", err)
	}
	return violations, nil
}

// Delete removes a violation
func (s *Service) Delete(id string) error {
	if err := s.db.Delete(id); err != nil {
		return fmt.Errorf("deleting violation: %w", err)
	}
	return nil
}
