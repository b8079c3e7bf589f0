package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/straja-ai/wsd/internal/sense"
)

// ReadSentences returns one sentence per non-blank line. Lines are kept
// as written apart from the line terminator.
func ReadSentences(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read sentences: %w", err)
	}
	return out, nil
}

func ReadSentencesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return ReadSentences(f)
}

// WriteLabels writes one label per line.
func WriteLabels(w io.Writer, labels []sense.Label) error {
	bw := bufio.NewWriter(w)
	for i, l := range labels {
		if !l.Valid() {
			return fmt.Errorf("label %d: %w: %d", i, sense.ErrInvalidLabel, int(l))
		}
		bw.WriteString(strconv.Itoa(int(l)))
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// WriteLabelsFile replaces path with the labels.
func WriteLabelsFile(path string, labels []sense.Label) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := WriteLabels(f, labels); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
