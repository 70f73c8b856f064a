// Package speech renders post content into spoken audio.
package speech

import (
	"context"
	"html"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	appconfig "scribio/internal/config"
	"scribio/internal/models"
	"scribio/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// ChunkSize is the per-request character limit of the synthesis API.
const ChunkSize = 5000

var tagRegex = regexp.MustCompile(`<[^>]*>`)

// Synthesizer converts one chunk of plain text into MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// PollySynthesizer speaks text through AWS Polly.
type PollySynthesizer struct {
	client *polly.Client
	voice  string
}

func NewPollySynthesizer(ctx context.Context, cfg *appconfig.Config) (*PollySynthesizer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, err
	}
	voice := cfg.PollyVoice
	if voice == "" {
		voice = "Joanna"
	}
	return &PollySynthesizer{client: polly.NewFromConfig(awsCfg), voice: voice}, nil
}

func (p *PollySynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	out, err := p.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		OutputFormat: types.OutputFormatMp3,
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(p.voice),
		Engine:       types.EngineNeural,
	})
	if err != nil {
		return nil, models.NewUpstreamError("Failed to synthesize speech", err)
	}
	defer func() { _ = out.AudioStream.Close() }()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, models.NewUpstreamError("Failed to read synthesized audio", err)
	}
	return audio, nil
}

// Service narrates whole posts by chunking their text and concatenating the
// synthesized audio in order.
type Service struct {
	synth Synthesizer
}

func NewService(synth Synthesizer) *Service {
	return &Service{synth: synth}
}

// Narrate returns the full MP3 narration for the content, or nil when the
// content has no speakable text.
func (s *Service) Narrate(ctx context.Context, content models.PostContent) ([]byte, error) {
	chunks := Chunks(content)
	observability.SpeechChunks.Observe(float64(len(chunks)))
	if len(chunks) == 0 {
		return nil, nil
	}

	// Synthesize the chunks concurrently, then stitch in index order.
	parts := make([][]byte, len(chunks))
	errs := make(chan error, len(chunks))
	for i, chunk := range chunks {
		go func(i int, chunk string) {
			part, err := s.synth.Synthesize(ctx, chunk)
			parts[i] = part
			errs <- err
		}(i, chunk)
	}

	var first error
	for range chunks {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	if first != nil {
		return nil, first
	}

	var audio []byte
	for _, part := range parts {
		audio = append(audio, part...)
	}
	return audio, nil
}

// Chunks extracts the narration text from the content blocks and splits it
// into synthesis-sized pieces.
func Chunks(content models.PostContent) []string {
	text := narrationText(content)
	if text == "" {
		return nil
	}

	var chunks []string
	for len(text) > ChunkSize {
		// Back up to a rune start so a multi-byte character never splits
		// across two synthesis requests.
		cut := ChunkSize
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return append(chunks, text)
}

// narrationText joins the speakable block texts with sentence breaks so the
// voice pauses between blocks. Quotes speak their caption too.
func narrationText(content models.PostContent) string {
	var b strings.Builder
	for _, block := range content.Blocks {
		switch block.Type {
		case models.BlockTypeParagraph, models.BlockTypeHeader:
			b.WriteString(block.Text())
			b.WriteString(". ")
		case models.BlockTypeQuote:
			b.WriteString(block.Text())
			b.WriteString(". ")
			b.WriteString(block.Caption())
			b.WriteString(". ")
		}
	}
	return strings.TrimSpace(stripHTML(b.String()))
}

func stripHTML(s string) string {
	return html.UnescapeString(tagRegex.ReplaceAllString(s, ""))
}
