package service

import (
	"context"
	"log/slog"
	"strings"

	"scribio/internal/middleware"
	"scribio/internal/models"
	"scribio/internal/repository"
	"scribio/internal/storage"
)

// Narrator produces the MP3 narration of post content. Implemented by
// speech.Service; stubbed in tests.
type Narrator interface {
	Narrate(ctx context.Context, content models.PostContent) ([]byte, error)
}

// MediaUploader is the subset of storage.Uploader the post service uses.
type MediaUploader interface {
	UploadImage(ctx context.Context, raw []byte, folder string, maxWidth int) (models.ImageData, error)
	UploadAudio(ctx context.Context, mp3 []byte, folder string) (models.AudioData, error)
	Remove(ctx context.Context, key string) error
}

// PostService provides post publishing and listing business logic.
type PostService struct {
	postRepo   repository.PostRepository
	userRepo   repository.UserRepository
	engagement *EngagementService
	uploader   MediaUploader
	narrator   Narrator
}

// NewPostService returns a new PostService.
func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	engagement *EngagementService,
	uploader MediaUploader,
	narrator Narrator,
) *PostService {
	return &PostService{
		postRepo:   postRepo,
		userRepo:   userRepo,
		engagement: engagement,
		uploader:   uploader,
		narrator:   narrator,
	}
}

// CreatePostInput carries a new post. Thumbnail holds the raw uploaded image
// bytes and may be empty.
type CreatePostInput struct {
	Title     string
	Content   models.PostContent
	Thumbnail []byte
}

// UpdatePostInput carries a post edit. Nil Content keeps the existing body;
// empty Thumbnail keeps the existing image.
type UpdatePostInput struct {
	Title     string
	Content   *models.PostContent
	Thumbnail []byte
}

// Create publishes a post: derives the preview and read-time, uploads the
// thumbnail and synthesized narration, snapshots the author and bumps the
// author's post counter.
func (s *PostService) Create(ctx context.Context, authorID uint, in CreatePostInput) (*models.Post, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Content.Blocks) == 0 {
		return nil, models.NewValidationError("Content is required")
	}

	author, err := s.userRepo.GetByID(ctx, authorID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:          in.Title,
		Content:        in.Content,
		PreviewContent: PreviewContent(in.Content),
		TimeToRead:     TimeToRead(in.Content),
		Author:         author.Snapshot(),
	}

	err = fanOut(ctx,
		func(ctx context.Context) error {
			if len(in.Thumbnail) == 0 {
				return nil
			}
			thumbnail, err := s.uploader.UploadImage(ctx, in.Thumbnail, "thumbnails", storage.MaxWidthThumbnail)
			if err != nil {
				return err
			}
			post.Thumbnail = thumbnail
			return nil
		},
		func(ctx context.Context) error {
			audio, err := s.synthesizeNarration(ctx, in.Content)
			if err != nil {
				return err
			}
			post.Audio = audio
			return nil
		},
	)
	if err != nil {
		return nil, err
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}
	bumpUserCounter(ctx, s.userRepo, authorID, repository.CounterPosts, 1)
	return post, nil
}

// Update edits an owned post. A changed body re-derives the preview,
// read-time and narration; the previous narration file is dropped.
func (s *PostService) Update(ctx context.Context, userID, postID uint, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.Author.UserID != userID {
		return nil, models.NewForbiddenError("You can only edit your own posts")
	}

	if strings.TrimSpace(in.Title) != "" {
		post.Title = in.Title
	}

	if in.Content != nil {
		if len(in.Content.Blocks) == 0 {
			return nil, models.NewValidationError("Content is required")
		}
		post.Content = *in.Content
		post.PreviewContent = PreviewContent(*in.Content)
		post.TimeToRead = TimeToRead(*in.Content)

		oldAudioKey := post.Audio.Key
		audio, err := s.synthesizeNarration(ctx, *in.Content)
		if err != nil {
			return nil, err
		}
		post.Audio = audio
		s.removeMedia(ctx, oldAudioKey)
	}

	if len(in.Thumbnail) > 0 {
		oldThumbKey := post.Thumbnail.Key
		thumbnail, err := s.uploader.UploadImage(ctx, in.Thumbnail, "thumbnails", storage.MaxWidthThumbnail)
		if err != nil {
			return nil, err
		}
		post.Thumbnail = thumbnail
		s.removeMedia(ctx, oldThumbKey)
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Get returns a single post with its full content.
func (s *PostService) Get(ctx context.Context, postID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID)
}

// List returns one page of posts, newest first, optionally filtered by a
// free-text search over title and preview.
func (s *PostService) List(ctx context.Context, page int, search string) (Page[*models.Post], error) {
	limit, offset := pageWindow(page)

	var posts []*models.Post
	var err error
	if strings.TrimSpace(search) != "" {
		posts, err = s.postRepo.Search(ctx, strings.TrimSpace(search), limit, offset)
	} else {
		posts, err = s.postRepo.List(ctx, limit, offset, repository.SortNewer)
	}
	if err != nil {
		return Page[*models.Post]{}, err
	}
	return trimPage(posts, page), nil
}

// ListByAuthor returns one page of a user's posts in the requested order.
func (s *PostService) ListByAuthor(ctx context.Context, authorID uint, page int, sort string) (Page[*models.Post], error) {
	limit, offset := pageWindow(page)
	posts, err := s.postRepo.ListByAuthor(ctx, authorID, limit, offset, sort)
	if err != nil {
		return Page[*models.Post]{}, err
	}
	return trimPage(posts, page), nil
}

// IDs returns every post id, newest first.
func (s *PostService) IDs(ctx context.Context) ([]uint, error) {
	return s.postRepo.IDs(ctx)
}

// IDsByAuthor returns the ids of a user's posts.
func (s *PostService) IDsByAuthor(ctx context.Context, authorID uint) ([]uint, error) {
	return s.postRepo.IDsByAuthor(ctx, authorID)
}

// Delete removes an owned post, then fans out the cleanup: author post
// counter, appreciations, saves and stored media. History entries stay so
// readers keep their log. Cleanup failures are logged, never rolled back.
func (s *PostService) Delete(ctx context.Context, userID, postID uint) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.Author.UserID != userID {
		return models.NewForbiddenError("You can only delete your own posts")
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	return fanOut(ctx,
		func(ctx context.Context) error {
			bumpUserCounter(ctx, s.userRepo, post.Author.UserID, repository.CounterPosts, -1)
			return nil
		},
		func(ctx context.Context) error {
			s.engagement.CleanupPost(ctx, postID)
			return nil
		},
		func(ctx context.Context) error {
			s.removeMedia(ctx, post.Thumbnail.Key)
			s.removeMedia(ctx, post.Audio.Key)
			return nil
		},
	)
}

// UploadEditorImage stores an image embedded in the editor body.
func (s *PostService) UploadEditorImage(ctx context.Context, raw []byte) (models.ImageData, error) {
	return s.uploader.UploadImage(ctx, raw, "images", storage.MaxWidthEditor)
}

// UploadEditorImageByURL imports an external image into our storage.
func (s *PostService) UploadEditorImageByURL(ctx context.Context, url string) (models.ImageData, error) {
	raw, err := storage.DownloadImage(url)
	if err != nil {
		return models.ImageData{}, err
	}
	return s.uploader.UploadImage(ctx, raw, "images", storage.MaxWidthEditor)
}

// synthesizeNarration renders and stores the audio version of the content.
// Content with no speakable text yields an empty AudioData.
func (s *PostService) synthesizeNarration(ctx context.Context, content models.PostContent) (models.AudioData, error) {
	mp3, err := s.narrator.Narrate(ctx, content)
	if err != nil {
		return models.AudioData{}, err
	}
	if len(mp3) == 0 {
		return models.AudioData{}, nil
	}
	return s.uploader.UploadAudio(ctx, mp3, "audio")
}

// removeMedia drops a stored object, logging instead of failing. The post
// mutation it follows has already been committed.
func (s *PostService) removeMedia(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.uploader.Remove(ctx, key); err != nil {
		middleware.Logger.ErrorContext(ctx, "Failed to remove stored media",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}
