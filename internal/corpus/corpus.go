package corpus

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/straja-ai/wsd/internal/sense"
)

const maxLine = 1 << 20

// Corpus is a labeled training file for one target word.
type Corpus struct {
	Title     string
	Glosses   map[sense.Label]string
	Sentences []string
	Labels    []sense.Label
}

// Len returns the number of labeled sentences.
func (c *Corpus) Len() int { return len(c.Sentences) }

// Counts returns how many sentences carry each sense.
func (c *Corpus) Counts() (one, two int) {
	for _, l := range c.Labels {
		switch l {
		case sense.One:
			one++
		case sense.Two:
			two++
		}
	}
	return one, two
}

// Subset returns the sentences at idx as a new corpus sharing title and
// glosses.
func (c *Corpus) Subset(idx []int) *Corpus {
	out := &Corpus{
		Title:     c.Title,
		Glosses:   c.Glosses,
		Sentences: make([]string, 0, len(idx)),
		Labels:    make([]sense.Label, 0, len(idx)),
	}
	for _, i := range idx {
		out.Sentences = append(out.Sentences, c.Sentences[i])
		out.Labels = append(out.Labels, c.Labels[i])
	}
	return out
}

// Parse reads the training format: an optional title, gloss lines
// "1 <text>" and "2 <text>", then sections opened by a line that is
// exactly "1" or "2". Lines are trimmed; blank lines are skipped. Gloss
// shaped lines are skipped wherever they appear.
func Parse(r io.Reader) (*Corpus, error) {
	c := &Corpus{Glosses: make(map[sense.Label]string)}
	current := sense.None

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		switch line {
		case "1":
			current = sense.One
			continue
		case "2":
			current = sense.Two
			continue
		}

		if label, gloss, ok := glossLine(line); ok {
			if current == sense.None {
				c.Glosses[label] = gloss
			}
			continue
		}

		if current == sense.None {
			if c.Title == "" {
				c.Title = line
			}
			continue
		}
		c.Sentences = append(c.Sentences, line)
		c.Labels = append(c.Labels, current)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read corpus line %d: %w", lineNo+1, err)
	}
	if len(c.Sentences) == 0 {
		return nil, fmt.Errorf("%w: no labeled sentences", sense.ErrMalformedCorpus)
	}
	return c, nil
}

// ParseFile parses the corpus at path.
func ParseFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func glossLine(line string) (sense.Label, string, bool) {
	switch {
	case strings.HasPrefix(line, "1 "):
		return sense.One, strings.TrimSpace(line[2:]), true
	case strings.HasPrefix(line, "2 "):
		return sense.Two, strings.TrimSpace(line[2:]), true
	}
	return sense.None, "", false
}
