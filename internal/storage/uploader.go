package storage

import (
	"context"
	"fmt"

	"scribio/internal/models"
	"scribio/internal/observability"

	"github.com/google/uuid"
)

// Uploader turns raw user uploads into stored media records.
type Uploader struct {
	store ObjectStore
}

func NewUploader(store ObjectStore) *Uploader {
	return &Uploader{store: store}
}

// UploadImage processes the raw bytes and stores the resulting JPEG under a
// fresh key inside the given folder.
func (u *Uploader) UploadImage(ctx context.Context, raw []byte, folder string, maxWidth int) (models.ImageData, error) {
	processed, err := ProcessImage(raw, maxWidth)
	if err != nil {
		return models.ImageData{}, err
	}

	key := fmt.Sprintf("%s/%s.jpg", folder, uuid.NewString())
	url, err := u.store.Put(ctx, key, "image/jpeg", processed.Data)
	if err != nil {
		observability.UploadFailures.WithLabelValues("image").Inc()
		return models.ImageData{}, err
	}

	return models.ImageData{
		URL:         url,
		Key:         key,
		Width:       processed.Width,
		Height:      processed.Height,
		Placeholder: processed.Placeholder,
	}, nil
}

// UploadAudio stores an already encoded MP3 stream.
func (u *Uploader) UploadAudio(ctx context.Context, mp3 []byte, folder string) (models.AudioData, error) {
	key := fmt.Sprintf("%s/%s.mp3", folder, uuid.NewString())
	url, err := u.store.Put(ctx, key, "audio/mpeg", mp3)
	if err != nil {
		observability.UploadFailures.WithLabelValues("audio").Inc()
		return models.AudioData{}, err
	}
	return models.AudioData{URL: url, Key: key}, nil
}

// Remove deletes a stored object. A blank key is a no-op so callers can pass
// records that never had media attached.
func (u *Uploader) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return u.store.Delete(ctx, key)
}
