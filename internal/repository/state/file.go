package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/app-updater/internal/config"
	"github.com/oshokin/app-updater/internal/domain/release"
)

// Repository defines persistence operations for the last check.
type Repository interface {
	Load(ctx context.Context) (*release.Check, error)
	Save(ctx context.Context, check *release.Check) error
}

// FileRepository persists the last check to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the YAML state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when the state file does not exist yet.
var ErrNotFound = errors.New("state not found")

// checkFile is the on-disk shape of release.Check.
type checkFile struct {
	CheckedAt      time.Time `yaml:"checked_at"`
	Channel        string    `yaml:"channel"`
	FeedURL        string    `yaml:"feed_url"`
	RunningVersion string    `yaml:"running_version"`
	FoundVersion   string    `yaml:"found_version,omitempty"`
	Outcome        string    `yaml:"outcome"`
	Error          string    `yaml:"error,omitempty"`
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the location of the state file.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the last check from disk.
func (r *FileRepository) Load(_ context.Context) (*release.Check, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var stored checkFile
	if err = yaml.Unmarshal(contents, &stored); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return fromFile(&stored)
}

// Save writes the check to disk, creating the parent directory if needed.
func (r *FileRepository) Save(_ context.Context, check *release.Check) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(toFile(check))
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	return nil
}

// fromFile converts the stored shape into the domain Check.
func fromFile(stored *checkFile) (*release.Check, error) {
	check := &release.Check{
		CheckedAt: stored.CheckedAt,
		Channel:   release.ParseMode(stored.Channel),
		FeedURL:   stored.FeedURL,
		Outcome:   release.Outcome(stored.Outcome),
		Error:     stored.Error,
	}

	var err error

	if stored.RunningVersion != "" {
		if check.RunningVersion, err = release.ParseVersion(stored.RunningVersion); err != nil {
			return nil, fmt.Errorf("decode running version: %w", err)
		}
	}

	if stored.FoundVersion != "" {
		if check.FoundVersion, err = release.ParseVersion(stored.FoundVersion); err != nil {
			return nil, fmt.Errorf("decode found version: %w", err)
		}
	}

	return check, nil
}

// toFile converts the domain Check into its stored shape.
func toFile(check *release.Check) *checkFile {
	stored := &checkFile{
		CheckedAt:      check.CheckedAt,
		Channel:        check.Channel.String(),
		FeedURL:        check.FeedURL,
		RunningVersion: check.RunningVersion.String(),
		Outcome:        string(check.Outcome),
		Error:          check.Error,
	}

	if !check.FoundVersion.IsZero() {
		stored.FoundVersion = check.FoundVersion.String()
	}

	return stored
}
