package service

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"scribio/internal/models"
)

const (
	previewFillThreshold = 150
	previewMaxLength     = 180
	wordsPerMinute       = 200
)

var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// PreviewContent builds the teaser shown in listings: paragraph texts are
// appended while the preview is still short, then the result is cut to the
// maximum length and stripped of markup.
func PreviewContent(content models.PostContent) string {
	var preview string
	for _, block := range content.Blocks {
		if block.Type == models.BlockTypeParagraph && len(preview) <= previewFillThreshold {
			preview += block.Text()
		}
	}

	if runes := []rune(preview); len(runes) > previewMaxLength {
		preview = string(runes[:previewMaxLength])
	}
	return strings.TrimSpace(stripMarkup(preview))
}

// TimeToRead estimates reading time at 200 words per minute. Partial minutes
// under 30 seconds display as "30 sec", anything longer rounds up to the
// next full minute; past five minutes the seconds are dropped entirely.
func TimeToRead(content models.PostContent) string {
	words := 0
	for _, block := range content.Blocks {
		switch block.Type {
		case models.BlockTypeParagraph, models.BlockTypeHeader, models.BlockTypeQuote:
			words += len(strings.Fields(block.Text()))
		case models.BlockTypeCode:
			words += len(strings.Fields(block.Code()))
		}
	}

	minutes := words / wordsPerMinute
	remainderSeconds := float64(words%wordsPerMinute) / wordsPerMinute * 60
	halfMinute := remainderSeconds < 30
	if !halfMinute {
		minutes++
	}

	switch {
	case minutes == 0:
		return "30 sec"
	case minutes < 5 && halfMinute:
		return fmt.Sprintf("%d min 30 sec", minutes)
	default:
		return fmt.Sprintf("%d min", minutes)
	}
}

func stripMarkup(s string) string {
	return html.UnescapeString(htmlTagRegex.ReplaceAllString(s, ""))
}
