package speech

import (
	"context"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"scribio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paragraph(text string) models.ContentBlock {
	return models.ContentBlock{
		Type: models.BlockTypeParagraph,
		Data: map[string]interface{}{"text": text},
	}
}

func content(blocks ...models.ContentBlock) models.PostContent {
	return models.PostContent{Blocks: blocks}
}

func TestNarrationText_JoinsBlocksWithSentenceBreaks(t *testing.T) {
	got := narrationText(content(
		models.ContentBlock{Type: models.BlockTypeHeader, Data: map[string]interface{}{"text": "Title"}},
		paragraph("First"),
		paragraph("Second"),
	))
	assert.Equal(t, "Title. First. Second.", got)
}

func TestNarrationText_QuoteSpeaksCaption(t *testing.T) {
	got := narrationText(content(models.ContentBlock{
		Type: models.BlockTypeQuote,
		Data: map[string]interface{}{"text": "Stay hungry", "caption": "Jobs"},
	}))
	assert.Equal(t, "Stay hungry. Jobs.", got)
}

func TestNarrationText_SkipsCodeAndStripsMarkup(t *testing.T) {
	got := narrationText(content(
		paragraph("<b>Bold</b> &amp; plain"),
		models.ContentBlock{Type: models.BlockTypeCode, Data: map[string]interface{}{"code": "x := 1"}},
	))
	assert.Equal(t, "Bold & plain.", got)
}

func TestChunks_EmptyContent(t *testing.T) {
	assert.Nil(t, Chunks(content()))
	assert.Nil(t, Chunks(content(models.ContentBlock{Type: models.BlockTypeCode, Data: map[string]interface{}{"code": "x"}})))
}

func TestChunks_SplitsAtLimit(t *testing.T) {
	// "Title. " prefix plus the long paragraph and trailing "." pushes the
	// text past two chunk lengths
	long := strings.Repeat("a", 2*ChunkSize)
	chunks := Chunks(content(
		models.ContentBlock{Type: models.BlockTypeHeader, Data: map[string]interface{}{"text": "Title"}},
		paragraph(long),
	))

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], ChunkSize)
	assert.Len(t, chunks[1], ChunkSize)
	assert.NotEmpty(t, chunks[2])
	assert.Equal(t, "Title. "+long+".", strings.Join(chunks, ""))
}

func TestChunks_ShortTextIsSingleChunk(t *testing.T) {
	chunks := Chunks(content(paragraph("hello world")))
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world.", chunks[0])
}

func TestChunks_NeverSplitsARune(t *testing.T) {
	// Three-byte runes put the 5000-byte mark inside a character, so the
	// cut has to back up to the rune start.
	long := strings.Repeat("世", 2000)
	source := content(paragraph(long))
	chunks := Chunks(source)

	require.Len(t, chunks, 2)
	for _, chunk := range chunks {
		assert.True(t, utf8.ValidString(chunk))
		assert.LessOrEqual(t, len(chunk), ChunkSize)
	}
	assert.Equal(t, long+".", strings.Join(chunks, ""))
}

type synthStub struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (s *synthStub) Synthesize(_ context.Context, text string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []byte("[" + text + "]"), nil
}

func TestNarrate_ConcatenatesChunksInOrder(t *testing.T) {
	synth := &synthStub{}
	svc := NewService(synth)

	long := strings.Repeat("b", ChunkSize+100)
	source := content(paragraph(long))
	chunks := Chunks(source)
	require.Len(t, chunks, 2)

	audio, err := svc.Narrate(context.Background(), source)
	require.NoError(t, err)
	assert.Len(t, synth.calls, 2)
	assert.Equal(t, "["+chunks[0]+"]["+chunks[1]+"]", string(audio))
}

func TestNarrate_NoSpeakableText(t *testing.T) {
	synth := &synthStub{}
	svc := NewService(synth)

	audio, err := svc.Narrate(context.Background(), content())
	require.NoError(t, err)
	assert.Nil(t, audio)
	assert.Empty(t, synth.calls)
}

func TestNarrate_PropagatesSynthesisError(t *testing.T) {
	synth := &synthStub{err: assert.AnError}
	svc := NewService(synth)

	_, err := svc.Narrate(context.Background(), content(paragraph("hello")))
	assert.Error(t, err)
}
