package scanning

import (
	"fmt"
	"os"
)

// Scratch defines the interface for short-lived on-disk artifacts
type Scratch interface {
	// Save writes data to a new uniquely named file and returns its path.
	// pattern follows os.CreateTemp.
	Save(pattern string, data []byte) (string, error)

	// Delete removes a file created by Save
	Delete(path string) error

	// Close removes the scratch directory and anything left in it
	Close() error
}

// LocalScratch implements Scratch in a private directory on the local filesystem
type LocalScratch struct {
	basePath string
	owned    bool
}

// NewLocalScratch creates a LocalScratch rooted at basePath. An empty
// basePath creates a fresh temporary directory that Close removes.
func NewLocalScratch(basePath string) (*LocalScratch, error) {
	if basePath == "" {
		dir, err := os.MkdirTemp("", "penalty-ocr-*")
		if err != nil {
			return nil, fmt.Errorf("creating scratch directory: %w", err)
		}
		return &LocalScratch{basePath: dir, owned: true}, nil
	}

	if err := os.MkdirAll(basePath, 0o700); err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	return &LocalScratch{basePath: basePath}, nil
}

// Dir returns the scratch directory
func (l *LocalScratch) Dir() string {
	return l.basePath
}

// Save writes data to a new file in the scratch directory
func (l *LocalScratch) Save(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(l.basePath, pattern)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing file: %w", err)
	}
	return f.Name(), nil
}

// Delete removes a file from the scratch directory
func (l *LocalScratch) Delete(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Close removes the directory if this LocalScratch created it
func (l *LocalScratch) Close() error {
	if !l.owned {
		return nil
	}
	if err := os.RemoveAll(l.basePath); err != nil {
		return fmt.Errorf("removing scratch directory: %w", err)
	}
	return nil
}
