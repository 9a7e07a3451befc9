package scanning

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strconv"
)

// TesseractConfig configures the tesseract command line engine
type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Language    string // default "eng"
	OEM         int    // engine mode; 3 = default (LSTM when available)
	TessdataDir string
}

// Tesseract implements the Engine interface by running the tesseract binary.
// Each page is written to scratch for the duration of one run.
type Tesseract struct {
	cfg     TesseractConfig
	runner  Runner
	scratch Scratch
	logger  *slog.Logger
}

// NewTesseract creates a Tesseract engine that writes page images to scratch
func NewTesseract(cfg TesseractConfig, scratch Scratch, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	return NewTesseractWithRunner(cfg, scratch, execRunner{logger: logger}, logger)
}

// NewTesseractWithRunner creates a Tesseract engine with a custom command runner for testing
func NewTesseractWithRunner(cfg TesseractConfig, scratch Scratch, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.OEM == 0 {
		cfg.OEM = 3
	}
	return &Tesseract{cfg: cfg, runner: runner, scratch: scratch, logger: logger}
}

// Recognize writes img to scratch, runs tesseract on it and returns stdout.
// The page file is removed before returning on every path.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, opts Options) (string, error) {
	data, err := encodePNG(img)
	if err != nil {
		return "", err
	}

	path, err := t.scratch.Save("page-*.png", data)
	if err != nil {
		return "", fmt.Errorf("saving page image: %w", err)
	}
	defer func() {
		if err := t.scratch.Delete(path); err != nil {
			t.logger.Warn("Failed to delete page image", "path", path, "error", err)
		}
	}()

	// tesseract <file> stdout -l <lang> --oem N --psm N -c key=value ...
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, t.args(path, opts)...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 512))
	}
	return string(out), nil
}

func (t *Tesseract) args(path string, opts Options) []string {
	args := []string{path, "stdout", "-l", t.cfg.Language, "--oem", strconv.Itoa(t.cfg.OEM)}
	if opts.PageSegMode > 0 {
		args = append(args, "--psm", strconv.Itoa(opts.PageSegMode))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args,
		"-c", "preserve_interword_spaces="+boolFlag(opts.PreserveInterwordSpaces),
		"-c", "tessedit_do_invert="+boolFlag(opts.Invert),
	)
	if opts.Blacklist != "" {
		args = append(args, "-c", "tessedit_char_blacklist="+opts.Blacklist)
	}
	return args
}

// Close releases the scratch directory
func (t *Tesseract) Close() error {
	return t.scratch.Close()
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
