package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okuznetsov/foldpack/internal/config"
)

// Receipt records a successfully installed artifact.
type Receipt struct {
	// Architecture is the identifier the artifact was fetched for.
	Architecture string `json:"architecture"`
	// Version is the release tag of the installed binary.
	Version string `json:"version"`
	// URL is where the artifact was downloaded from.
	URL string `json:"url"`
	// SHA256 is the verified digest of the installed artifact, lowercase hex.
	SHA256 string `json:"sha256"`
	// InstalledAt is when the artifact was committed to its destination.
	InstalledAt time.Time `json:"installed_at"`
}

// Repository defines persistence operations for install receipts.
type Repository interface {
	Load(ctx context.Context) (*Receipt, error)
	Save(ctx context.Context, r *Receipt) error
}

// FileRepository persists the receipt to a JSON file next to the artifact.
type FileRepository struct {
	// path is the filesystem location of the JSON receipt file.
	path string
	// mu protects concurrent access to the receipt file.
	mu sync.Mutex
}

// ErrNotFound is returned when no receipt has been written yet.
var ErrNotFound = errors.New("receipt not found")

// PathFor returns the receipt path for an artifact destination.
func PathFor(artifactPath string) string {
	return artifactPath + ".receipt.json"
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the receipt from disk.
func (r *FileRepository) Load(_ context.Context) (*Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read receipt file: %w", err)
	}

	var rec Receipt
	if err = json.Unmarshal(contents, &rec); err != nil {
		return nil, fmt.Errorf("decode receipt file: %w", err)
	}

	return &rec, nil
}

// Save writes the receipt to disk.
func (r *FileRepository) Save(_ context.Context, rec *Receipt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode receipt: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write receipt file: %w", err)
	}

	return nil
}
