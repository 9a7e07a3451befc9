package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/zombor/penalty-tracker/internal/extraction"
	"github.com/zombor/penalty-tracker/internal/scanning"
	"github.com/zombor/penalty-tracker/internal/settlement"
	"github.com/zombor/penalty-tracker/internal/violation"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

type engineFlags struct {
	kind         string
	tesseractBin string
	language     string
	tessdataDir  string
	scratchDir   string
	geminiKey    string
	geminiModel  string
	ollamaURL    string
	ollamaModel  string
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("penalty-tracker")
	var (
		manifest    = fs.StringLong("manifest", "", "YAML file listing documents to process")
		defendant   = fs.StringLong("defendant", "", "Defendant for documents given as arguments")
		year        = fs.IntLong("year", time.Now().Year(), "Year for documents given as arguments")
		limit       = fs.IntLong("limit", violation.DefaultLimit, "Maximum documents to process (-1 for all)")
		concurrency = fs.IntLong("concurrency", 2, "Documents processed at once")
		timeout     = fs.DurationLong("timeout", 5*time.Minute, "Deadline for each document")
		dbPath      = fs.StringLong("db", "penalty-tracker.db", "Database file path")
		patterns    = fs.StringLong("patterns", "", "YAML file overriding the penalty pattern table")
		dataSource  = fs.StringLong("data-source", violation.DefaultDataSource, "Data source recorded on each violation")
		threshold   = fs.IntLong("threshold", extraction.DefaultThreshold, "Characters a method must exceed to be accepted")
		dpi         = fs.IntLong("dpi", extraction.DefaultDPI, "Render resolution for OCR")
		ocrWorkers  = fs.IntLong("ocr-workers", extraction.DefaultWorkers, "Pages recognized at once per document")
		preview     = fs.BoolLong("preview", "Print extracted text and amount for each document without saving")
		serve       = fs.BoolLong("serve", "Run the HTTP API instead of a batch")
		port        = fs.IntLong("port", 8080, "HTTP server port")
		authUser    = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass    = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion = fs.BoolLong("version", "Show version information")

		engineKind   = fs.StringLong("ocr-engine", "tesseract", "OCR engine: 'tesseract', 'gemini' or 'ollama'")
		tesseractBin = fs.StringLong("tesseract-bin", "tesseract", "Tesseract binary")
		language     = fs.StringLong("tesseract-lang", "eng", "Tesseract language")
		tessdataDir  = fs.StringLong("tessdata-dir", "", "Tesseract tessdata directory (optional)")
		scratchDir   = fs.StringLong("scratch-dir", "", "Directory for temporary page images (default: system temp)")
		geminiKey    = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel  = fs.StringLong("gemini-model", "gemini-2.5-flash", "Google Gemini model name")
		ollamaURL    = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel  = fs.StringLong("ollama-model", "qwen2.5vl", "Ollama vision model name")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("PENALTY_TRACKER"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, options{
		manifest:    *manifest,
		urls:        fs.GetArgs(),
		defendant:   *defendant,
		year:        *year,
		limit:       *limit,
		concurrency: *concurrency,
		timeout:     *timeout,
		dbPath:      *dbPath,
		patterns:    *patterns,
		dataSource:  *dataSource,
		threshold:   *threshold,
		dpi:         *dpi,
		ocrWorkers:  *ocrWorkers,
		preview:     *preview,
		serve:       *serve,
		port:        *port,
		auth:        violation.BasicAuth{Username: *authUser, Password: *authPass},
		engine: engineFlags{
			kind:         *engineKind,
			tesseractBin: *tesseractBin,
			language:     *language,
			tessdataDir:  *tessdataDir,
			scratchDir:   *scratchDir,
			geminiKey:    *geminiKey,
			geminiModel:  *geminiModel,
			ollamaURL:    *ollamaURL,
			ollamaModel:  *ollamaModel,
		},
	})
	if errors.Is(err, errNoDocuments) {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err != nil {
		slog.Error("penalty-tracker failed", "error", err)
		os.Exit(1)
	}
}

var errNoDocuments = errors.New("no documents; pass --manifest or document URLs")

type options struct {
	manifest    string
	urls        []string
	defendant   string
	year        int
	limit       int
	concurrency int
	timeout     time.Duration
	dbPath      string
	patterns    string
	dataSource  string
	threshold   int
	dpi         int
	ocrWorkers  int
	preview     bool
	serve       bool
	port        int
	auth        violation.BasicAuth
	engine      engineFlags
}

// run wires the components and executes the selected mode. Everything it
// opens is closed before it returns.
func run(ctx context.Context, opts options) error {
	// Load the pattern table
	table := settlement.DefaultTable()
	if opts.patterns != "" {
		var err error
		table, err = settlement.LoadTable(opts.patterns)
		if err != nil {
			return fmt.Errorf("loading pattern table %s: %w", opts.patterns, err)
		}
	}
	slog.Info("Loaded pattern table", "patterns", table.Len())

	// Initialize the OCR engine
	engine, err := newEngine(opts.engine)
	if err != nil {
		return fmt.Errorf("initializing %s engine: %w", opts.engine.kind, err)
	}
	defer engine.Close()

	cfg := extraction.DefaultConfig()
	cfg.Threshold = opts.threshold
	cfg.DPI = float64(opts.dpi)
	cfg.Workers = opts.ocrWorkers
	extractor := extraction.NewExtractor(cfg,
		extraction.NewHTTPFetcher(nil),
		extraction.PDFReader{},
		extraction.FitzRasterizer{},
		engine,
		slog.Default(),
	)
	recoverer := settlement.NewRecoverer(table, slog.Default())

	// Initialize database
	slog.Info("Initializing database...")
	db, err := violation.NewBoltDB(opts.dbPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	service := violation.NewService(db, extractor, recoverer, opts.dataSource)

	if opts.serve {
		return runServer(ctx, service, opts.port, opts.auth, opts.timeout)
	}

	docs, err := collectDocuments(opts.manifest, opts.urls, opts.defendant, opts.year)
	if err != nil {
		return fmt.Errorf("reading documents: %w", err)
	}
	if len(docs) == 0 {
		return errNoDocuments
	}

	if opts.preview {
		runPreview(ctx, service, docs, opts.timeout)
		return nil
	}

	slog.Info("Starting run...")
	violations := service.ProcessBatch(ctx, docs, violation.BatchOptions{
		Limit:       opts.limit,
		Concurrency: opts.concurrency,
		Timeout:     opts.timeout,
	})
	if len(violations) > 0 {
		service.SaveRecords(violations)
	}
	slog.Info("Run completed")
	return nil
}

// newEngine builds the OCR engine selected by flags
func newEngine(ef engineFlags) (scanning.Engine, error) {
	switch ef.kind {
	case "tesseract":
		scratch, err := scanning.NewLocalScratch(ef.scratchDir)
		if err != nil {
			return nil, fmt.Errorf("creating scratch directory: %w", err)
		}
		slog.Info("Initializing tesseract...", "binary", ef.tesseractBin, "language", ef.language)
		return scanning.NewTesseract(scanning.TesseractConfig{
			Binary:      ef.tesseractBin,
			Language:    ef.language,
			TessdataDir: ef.tessdataDir,
		}, scratch, slog.Default()), nil
	case "gemini":
		apiKey := ef.geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required; set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini...", "model", ef.geminiModel)
		return scanning.NewGemini(apiKey, ef.geminiModel)
	case "ollama":
		slog.Info("Initializing Ollama...", "url", ef.ollamaURL, "model", ef.ollamaModel)
		return scanning.NewOllama(ef.ollamaURL, ef.ollamaModel)
	default:
		return nil, fmt.Errorf("invalid engine %q, valid: tesseract, gemini or ollama", ef.kind)
	}
}

// collectDocuments merges the manifest with documents given as arguments
func collectDocuments(manifest string, urls []string, defendant string, year int) ([]violation.Document, error) {
	var docs []violation.Document
	if manifest != "" {
		loaded, err := violation.LoadManifest(manifest)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	for _, u := range urls {
		docs = append(docs, violation.Document{URL: u, Defendant: defendant, Year: year})
	}
	return docs, nil
}

func runPreview(ctx context.Context, service *violation.Service, docs []violation.Document, timeout time.Duration) {
	for _, doc := range docs {
		dctx, cancel := violation.WithDeadline(ctx, timeout)
		p, err := service.Preview(dctx, doc.URL)
		cancel()
		if err != nil {
			slog.Error("Preview failed", "url", doc.URL, "error", err)
			continue
		}

		amount := "none"
		if p.Settlement != nil {
			amount = p.Settlement.StringFixed(2)
		}
		fmt.Printf("== %s\nmethod: %s\nsettlement: %s\n\n%s\n\n", p.URL, p.Method, amount, p.Text)
	}
}

func runServer(ctx context.Context, service *violation.Service, port int, auth violation.BasicAuth, timeout time.Duration) error {
	server := violation.NewServer(service, auth)
	server.SetDocumentTimeout(timeout)

	addr := fmt.Sprintf(":%d", port)
	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))
	if auth.Username != "" || auth.Password != "" {
		slog.Info("Basic auth enabled", "user", auth.Username)
	}

	if err := server.Start(ctx, addr); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	slog.Info("Shut down")
	return nil
}
