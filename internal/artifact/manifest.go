package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrManifestNotFound is returned when manifest.json is missing.
var ErrManifestNotFound = errors.New("artifact manifest not found")

// ManifestFile describes one artifact file.
type ManifestFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// WordStats records the corpus a word was trained on.
type WordStats struct {
	Sentences int     `json:"sentences"`
	Sense1    int     `json:"sense1"`
	Sense2    int     `json:"sense2"`
	Features  int     `json:"features"`
	Accuracy  float64 `json:"cv_accuracy,omitempty"`
}

// Manifest mirrors manifest.json written next to the artifacts.
type Manifest struct {
	RunID     string               `json:"run_id"`
	CreatedAt string               `json:"created_at"`
	Words     map[string]WordStats `json:"words"`
	Files     []ManifestFile       `json:"files"`
}

func manifestPath(dir string) string {
	return filepath.Join(dir, "manifest.json")
}

// NewManifest starts a manifest for a fresh training run.
func NewManifest() Manifest {
	return Manifest{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Words:     make(map[string]WordStats),
	}
}

// AddFiles hashes each file (relative to dir) and records it.
func (m *Manifest) AddFiles(dir string, names ...string) error {
	for _, name := range names {
		sum, size, err := hashFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		m.Files = append(m.Files, ManifestFile{Path: filepath.ToSlash(name), SHA256: sum, Size: size})
	}
	return nil
}

// ReplaceFiles drops any existing entries for names, then hashes and records
// them again.
func (m *Manifest) ReplaceFiles(dir string, names ...string) error {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[filepath.ToSlash(name)] = true
	}
	kept := m.Files[:0]
	for _, f := range m.Files {
		if !drop[f.Path] {
			kept = append(kept, f)
		}
	}
	m.Files = kept
	return m.AddFiles(dir, names...)
}

// SaveManifest writes <dir>/manifest.json atomically.
func SaveManifest(dir string, m Manifest) error {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return errors.New("artifact dir is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	return writeFileAtomic(manifestPath(dir), data)
}

// LoadManifest reads <dir>/manifest.json.
func LoadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(manifestPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, ErrManifestNotFound
		}
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// VerifyManifest re-hashes every file listed in <dir>/manifest.json.
func VerifyManifest(dir string) (Manifest, error) {
	m, err := LoadManifest(dir)
	if err != nil {
		return Manifest{}, err
	}
	for _, f := range m.Files {
		local, err := resolveArtifactPath(dir, filepath.FromSlash(f.Path))
		if err != nil {
			return m, fmt.Errorf("resolve path %s: %w", f.Path, err)
		}
		sum, size, err := hashFile(local)
		if err != nil {
			return m, err
		}
		if f.Size > 0 && size != f.Size {
			return m, fmt.Errorf("size mismatch for %s: expected %d got %d", f.Path, f.Size, size)
		}
		if f.SHA256 != "" && !strings.EqualFold(sum, f.SHA256) {
			return m, fmt.Errorf("sha256 mismatch for %s: expected %s got %s", f.Path, f.SHA256, sum)
		}
	}
	return m, nil
}

// resolveArtifactPath joins rel onto dir, rejecting absolute paths and
// anything that escapes dir.
func resolveArtifactPath(dir, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute path %q not allowed", rel)
	}
	clean := filepath.Clean(rel)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes artifact dir", rel)
	}
	return filepath.Join(dir, clean), nil
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
