// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"scribio/internal/models"
	"scribio/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
}

// Seeder builds demo users, posts and engagement data.
type Seeder struct {
	db   *gorm.DB
	rand *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{
		db:   db,
		rand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Seed populates the database with test data. Denormalized counters are set
// from the generated engagement rows so the database starts consistent.
func (s *Seeder) Seed(opts Options) error {
	log.Printf("Seeding %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := s.ClearAll(); err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
	}

	users, err := s.createUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	posts, err := s.createPosts(users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("created %d posts", len(posts))

	if err := s.createEngagement(users, posts); err != nil {
		return fmt.Errorf("failed to create engagement: %w", err)
	}
	if err := s.createFollows(users); err != nil {
		return fmt.Errorf("failed to create follows: %w", err)
	}

	log.Println("seeding complete; all users have the password: password123")
	return nil
}

// ClearAll truncates all seedable tables.
func (s *Seeder) ClearAll() error {
	log.Println("clearing existing data...")
	sql := `TRUNCATE TABLE appreciations, saves, history_items, follows, posts, users RESTART IDENTITY CASCADE;`
	return s.db.Exec(sql).Error
}

func (s *Seeder) createUsers(n int) ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), i)
		user := &models.User{
			Username:     username,
			Email:        fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			Password:     string(hash),
			Description:  gofakeit.Sentence(12),
			RegisterDate: s.pastTime(365),
			Avatar: models.ImageData{
				URL: fmt.Sprintf("https://api.dicebear.com/7.x/identicon/svg?seed=%s", username),
			},
		}
		if err := s.db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) createPosts(users []*models.User, n int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.rand.Intn(len(users))]
		content := s.buildContent()

		post := &models.Post{
			Title:          gofakeit.Sentence(5),
			Content:        content,
			PreviewContent: service.PreviewContent(content),
			TimeToRead:     service.TimeToRead(content),
			Author:         author.Snapshot(),
			CreatedAt:      s.pastTime(90),
			Thumbnail: models.ImageData{
				URL: fmt.Sprintf("https://picsum.photos/seed/%s/700/400", gofakeit.UUID()),
			},
		}
		if err := s.db.Create(post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}

	// project the denormalized post counters onto the authors
	for _, u := range users {
		err := s.db.Model(&models.User{}).Where("id = ?", u.ID).
			Update("posts", s.db.Model(&models.Post{}).
				Select("count(*)").Where("author_user_id = ?", u.ID)).Error
		if err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *Seeder) buildContent() models.PostContent {
	blocks := []models.ContentBlock{
		{
			ID:   gofakeit.LetterN(10),
			Type: models.BlockTypeHeader,
			Data: map[string]interface{}{"text": gofakeit.Sentence(4), "level": 2},
		},
	}
	for i := 0; i < 2+s.rand.Intn(6); i++ {
		blocks = append(blocks, models.ContentBlock{
			ID:   gofakeit.LetterN(10),
			Type: models.BlockTypeParagraph,
			Data: map[string]interface{}{"text": gofakeit.Paragraph(1, 4, 10, " ")},
		})
	}
	if s.rand.Intn(3) == 0 {
		blocks = append(blocks, models.ContentBlock{
			ID:   gofakeit.LetterN(10),
			Type: models.BlockTypeQuote,
			Data: map[string]interface{}{
				"text":    gofakeit.Quote(),
				"caption": gofakeit.Name(),
			},
		})
	}
	return models.PostContent{
		Time:    time.Now().UnixMilli(),
		Version: "2.28.2",
		Blocks:  blocks,
	}
}

func (s *Seeder) createEngagement(users []*models.User, posts []*models.Post) error {
	for _, post := range posts {
		var likes, dislikes, saves int64
		views := int64(s.rand.Intn(500))

		for _, user := range users {
			if s.rand.Intn(4) != 0 {
				continue
			}
			kind := models.KindLike
			if s.rand.Intn(5) == 0 {
				kind = models.KindDislike
			}
			appr := &models.Appreciation{
				UserID:     user.ID,
				TargetID:   post.ID,
				TargetType: models.TargetPost,
				Kind:       kind,
			}
			if err := s.db.Create(appr).Error; err != nil {
				return err
			}
			if kind == models.KindLike {
				likes++
			} else {
				dislikes++
			}

			if s.rand.Intn(3) == 0 {
				save := &models.Save{UserID: user.ID, PostID: post.ID}
				if err := s.db.Create(save).Error; err != nil {
					return err
				}
				saves++
			}
		}

		err := s.db.Model(&models.Post{}).Where("id = ?", post.ID).
			Updates(map[string]interface{}{
				"likes":    likes,
				"dislikes": dislikes,
				"saves":    saves,
				"views":    views,
			}).Error
		if err != nil {
			return err
		}

		err = s.db.Model(&models.User{}).
			Where("id = ?", post.Author.UserID).
			Update("total_views", gorm.Expr("total_views + ?", views)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) createFollows(users []*models.User) error {
	for _, follower := range users {
		var count int64
		for _, following := range users {
			if follower.ID == following.ID || s.rand.Intn(6) != 0 {
				continue
			}
			follow := &models.Follow{
				Follower:  follower.Snapshot(),
				Following: following.Snapshot(),
			}
			if err := s.db.Create(follow).Error; err != nil {
				return err
			}
			count++
		}
		_ = count
	}

	// project follower counts from the edges
	for _, u := range users {
		err := s.db.Model(&models.User{}).Where("id = ?", u.ID).
			Update("followers", s.db.Model(&models.Follow{}).
				Select("count(*)").Where("following_user_id = ?", u.ID)).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) pastTime(maxDays int) time.Time {
	daysBack := s.rand.Intn(maxDays)
	hoursBack := s.rand.Intn(24)
	return time.Now().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)
}
