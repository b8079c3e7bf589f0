package corpus

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/straja-ai/wsd/internal/sense"
)

const sample = `Overtime
1 time worked beyond normal hours
2 extra period of play

1
The staff worked overtime all month.

   Unpaid overtime is common here.   
2
The game went into overtime.
1 this looks like a gloss and is skipped

They scored early in overtime.
`

func TestParse(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, "Overtime", c.Title)
	assert.Equal(t, "time worked beyond normal hours", c.Glosses[sense.One])
	assert.Equal(t, "extra period of play", c.Glosses[sense.Two])
	assert.Equal(t, []string{
		"The staff worked overtime all month.",
		"Unpaid overtime is common here.",
		"The game went into overtime.",
		"They scored early in overtime.",
	}, c.Sentences)
	assert.Equal(t, []sense.Label{sense.One, sense.One, sense.Two, sense.Two}, c.Labels)

	one, two := c.Counts()
	assert.Equal(t, 2, one)
	assert.Equal(t, 2, two)
}

func TestParseIgnoresLinesBeforeFirstHeader(t *testing.T) {
	c, err := Parse(strings.NewReader("Title\nstray line\n2\nonly sentence\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"only sentence"}, c.Sentences)
	assert.Equal(t, []sense.Label{sense.Two}, c.Labels)
}

func TestParseEmpty(t *testing.T) {
	for _, in := range []string{"", "Title\n1 gloss\n2 gloss\n", "1\n\n2\n"} {
		_, err := Parse(strings.NewReader(in))
		assert.ErrorIs(t, err, sense.ErrMalformedCorpus, in)
	}
}

func TestSubset(t *testing.T) {
	c, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	sub := c.Subset([]int{3, 0})
	assert.Equal(t, []string{"They scored early in overtime.", "The staff worked overtime all month."}, sub.Sentences)
	assert.Equal(t, []sense.Label{sense.Two, sense.One}, sub.Labels)
	assert.Equal(t, 4, c.Len())
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overtime.txt")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	c, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Len())

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestReadSentencesSkipsBlankLines(t *testing.T) {
	got, err := ReadSentences(strings.NewReader("first one\n\n   \n  indented stays  \r\nlast"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first one", "  indented stays  ", "last"}, got)
}

func TestWriteLabels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteLabels(&buf, []sense.Label{sense.One, sense.Two, sense.Two}))
	assert.Equal(t, "1\n2\n2\n", buf.String())

	buf.Reset()
	assert.ErrorIs(t, WriteLabels(&buf, []sense.Label{sense.None}), sense.ErrInvalidLabel)
}

func TestLabelsFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "result.txt")
	require.NoError(t, WriteLabelsFile(path, []sense.Label{sense.Two, sense.One}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2\n1\n", string(data))

	lines, err := ReadSentencesFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, lines)
}
