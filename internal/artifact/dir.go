package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/straja-ai/wsd/internal/sense"
)

const fileExt = ".msgpack"

// DirStore keeps artifacts as files under one directory:
// <dir>/<word>_vectorizer.msgpack and <dir>/<word>_model.msgpack.
type DirStore struct {
	dir string
}

var (
	_ Store  = (*DirStore)(nil)
	_ Writer = (*DirStore)(nil)
)

// NewDirStore returns a store rooted at dir. The directory does not need
// to exist until the first Load or Save.
func NewDirStore(dir string) (*DirStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("artifact dir is empty")
	}
	return &DirStore{dir: dir}, nil
}

// Dir is the root directory.
func (s *DirStore) Dir() string { return s.dir }

// Path returns the file holding word's blob for role.
func (s *DirStore) Path(word sense.Word, role string) string {
	return filepath.Join(s.dir, BlobName(word, role)+fileExt)
}

func (s *DirStore) Load(ctx context.Context, word sense.Word) (Pair, error) {
	if err := checkWord(word); err != nil {
		return Pair{}, err
	}
	if err := ctx.Err(); err != nil {
		return Pair{}, err
	}

	vecData, err := s.read(word, RoleVectorizer)
	if err != nil {
		return Pair{}, err
	}
	modelData, err := s.read(word, RoleModel)
	if err != nil {
		return Pair{}, err
	}

	pair, err := decodePair(vecData, modelData, s.dir)
	if err != nil {
		return Pair{}, fmt.Errorf("load %s artifacts: %w", word, err)
	}
	return pair, nil
}

func (s *DirStore) read(word sense.Word, role string) ([]byte, error) {
	path := s.Path(word, role)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s file %s: %w", role, path, sense.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("read %s file %s: %w", role, path, err)
	}
	return data, nil
}

// Save writes both blobs atomically (temp file + rename per blob).
func (s *DirStore) Save(ctx context.Context, word sense.Word, pair Pair) error {
	if err := checkWord(word); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	vecData, modelData, err := encodePair(pair)
	if err != nil {
		return fmt.Errorf("save %s artifacts: %w", word, err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := writeFileAtomic(s.Path(word, RoleVectorizer), vecData); err != nil {
		return err
	}
	return writeFileAtomic(s.Path(word, RoleModel), modelData)
}

// Files lists the artifact file names (relative to Dir) for word.
func (s *DirStore) Files(word sense.Word) []string {
	return []string{
		BlobName(word, RoleVectorizer) + fileExt,
		BlobName(word, RoleModel) + fileExt,
	}
}

func writeFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", base, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file for %s: %w", base, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file for %s: %w", base, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file for %s: %w", base, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", base, err)
	}
	return nil
}
