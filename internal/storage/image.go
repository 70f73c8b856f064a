package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	_ "image/gif"
	_ "image/png"

	"scribio/internal/models"

	xdraw "golang.org/x/image/draw"
)

// Maximum widths per upload purpose. Anything narrower is kept as is.
const (
	MaxWidthAvatar    = 170
	MaxWidthThumbnail = 350
	MaxWidthEditor    = 750
)

const (
	jpegQuality        = 82
	placeholderWidth   = 8
	placeholderQuality = 20
)

// ProcessedImage is a JPEG ready for upload together with its display metadata.
type ProcessedImage struct {
	Data        []byte
	Width       int
	Height      int
	Placeholder string
}

// ProcessImage decodes raw image bytes, scales them down to maxWidth when
// necessary and re-encodes as JPEG. It also renders the tiny base64 placeholder
// clients blur-up while the real image loads.
func ProcessImage(raw []byte, maxWidth int) (*ProcessedImage, error) {
	if len(raw) == 0 {
		return nil, models.NewValidationError("No file uploaded")
	}
	detectedType := http.DetectContentType(raw)
	if !strings.HasPrefix(detectedType, "image/") {
		return nil, models.NewValidationError("Invalid image type")
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	scaled := resizeToWidth(decoded, maxWidth)
	data, err := encodeJPEG(scaled, jpegQuality)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	placeholder, err := renderPlaceholder(scaled)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	b := scaled.Bounds()
	return &ProcessedImage{
		Data:        data,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Placeholder: placeholder,
	}, nil
}

// DownloadImage fetches an image from an external URL, e.g. a generated avatar
// or a Google profile picture.
func DownloadImage(url string) ([]byte, error) {
	resp, err := http.Get(url) // #nosec G107: URLs come from trusted providers
	if err != nil {
		return nil, models.NewUpstreamError("Failed to download image", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, models.NewUpstreamError(fmt.Sprintf("Image download returned status %d", resp.StatusCode), nil)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, models.NewUpstreamError("Failed to read image body", err)
	}
	return buf.Bytes(), nil
}

func resizeToWidth(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 || w <= maxWidth {
		return src
	}

	scale := float64(maxWidth) / float64(w)
	newH := int(float64(h) * scale)
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

// renderPlaceholder shrinks the image to a few pixels and returns it as a
// base64 JPEG data URI.
func renderPlaceholder(src image.Image) (string, error) {
	tiny := resizeToWidth(src, placeholderWidth)
	data, err := encodeJPEG(tiny, placeholderQuality)
	if err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
