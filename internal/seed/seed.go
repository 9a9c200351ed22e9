// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumAuthors  int
	NumReaders  int
	NumPosts    int
	ShouldClean bool
}

var categoryNames = []string{
	"technology", "programming", "science", "travel", "food",
	"books", "music", "film", "fitness", "finance", "design",
}

var tagNames = []string{
	"golang", "tutorial", "opinion", "review", "deep-dive",
	"beginner", "career", "productivity", "open-source", "ai",
}

// Seed populates the database with demo data: an admin account, authors
// with published posts, readers with comments, likes and subscriptions.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding database: %d authors, %d readers, %d posts...",
		opts.NumAuthors, opts.NumReaders, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway")
		}
	}

	f := NewFactory(db)

	admin, err := f.CreateUser(models.RoleAdmin, func(u *models.User) {
		u.Name = "Site Admin"
		u.Username = "admin"
		u.Email = "admin@inkwell.local"
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	for _, name := range categoryNames {
		if err := db.Create(&models.Category{Name: name}).Error; err != nil {
			return fmt.Errorf("create category %q: %w", name, err)
		}
	}
	for _, name := range tagNames {
		if err := db.Create(&models.Tag{Name: name}).Error; err != nil {
			return fmt.Errorf("create tag %q: %w", name, err)
		}
	}

	authors := []*models.User{admin}
	for i := 0; i < opts.NumAuthors; i++ {
		author, err := f.CreateUser(models.RoleAuthor)
		if err != nil {
			return fmt.Errorf("create author: %w", err)
		}
		authors = append(authors, author)
	}

	var readers []*models.User
	for i := 0; i < opts.NumReaders; i++ {
		reader, err := f.CreateUser(models.RoleUser)
		if err != nil {
			return fmt.Errorf("create reader: %w", err)
		}
		readers = append(readers, reader)
	}

	var posts []*models.Post
	for i := 0; i < opts.NumPosts; i++ {
		author := authors[rand.Intn(len(authors))]
		post, err := f.CreatePost(author)
		if err != nil {
			return fmt.Errorf("create post: %w", err)
		}
		posts = append(posts, post)
	}

	everyone := append(append([]*models.User{}, authors...), readers...)
	for _, post := range posts {
		f.EngagePost(post, everyone)
	}

	for _, reader := range readers {
		f.SubscribeRandomly(reader, authors)
	}

	log.Printf("Seeding complete: %d users, %d posts", len(everyone), len(posts))
	return nil
}

func clearData(db *gorm.DB) error {
	tables := []string{
		"subscriptions", "likes", "comments", "posts",
		"categories", "tags", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db *gorm.DB
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{db: db}
}

// CreateUser persists a user with the given role. All seeded accounts share
// the password "password123".
func (f *Factory) CreateUser(role string, overrides ...func(*models.User)) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:     gofakeit.Name(),
		Username: fmt.Sprintf("%s%d", gofakeit.Username(), gofakeit.Number(10, 9999)),
		Email:    gofakeit.Email(),
		Password: string(hashed),
		Bio:      gofakeit.Sentence(12),
		Role:     role,
		IsActive: true,
	}
	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists a published post for the author with a unique slug and
// a realistic created_at spread over the last 90 days.
func (f *Factory) CreatePost(author *models.User, overrides ...func(*models.Post)) (*models.Post, error) {
	title := gofakeit.Sentence(gofakeit.Number(4, 9))

	post := &models.Post{
		Title:      title,
		Slug:       fmt.Sprintf("%s-%s", validation.Slugify(title), gofakeit.LetterN(6)),
		Content:    gofakeit.Paragraph(3, 5, 12, "\n\n"),
		CoverImage: fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", gofakeit.UUID()),
		Categories: pickSome(categoryNames, 1, 2),
		Tags:       pickSome(tagNames, 1, 3),
		AuthorID:   author.ID,
		Status:     models.PostStatusPublished,
		ViewCount:  int64(gofakeit.Number(0, 5000)),
		CreatedAt:  gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
	}
	for _, override := range overrides {
		override(post)
	}

	if err := f.db.Create(post).Error; err != nil {
		return nil, err
	}
	return post, nil
}

// EngagePost attaches random comments and likes from the given users.
func (f *Factory) EngagePost(post *models.Post, users []*models.User) {
	for _, user := range users {
		if gofakeit.Bool() {
			f.db.Create(&models.Like{UserID: user.ID, PostID: post.ID})
		}
		if gofakeit.Number(0, 3) == 0 {
			f.db.Create(&models.Comment{
				Content: gofakeit.Sentence(gofakeit.Number(5, 20)),
				UserID:  user.ID,
				PostID:  post.ID,
			})
		}
	}
}

// SubscribeRandomly gives the reader a handful of author and category
// subscriptions.
func (f *Factory) SubscribeRandomly(reader *models.User, authors []*models.User) {
	for _, author := range authors {
		if author.ID != reader.ID && gofakeit.Number(0, 2) == 0 {
			f.db.Create(&models.Subscription{UserID: reader.ID, AuthorID: &author.ID})
		}
	}
	for _, name := range pickSome(categoryNames, 0, 2) {
		category := name
		f.db.Create(&models.Subscription{UserID: reader.ID, Category: &category})
	}
}

func pickSome(pool []string, min, max int) []string {
	n := gofakeit.Number(min, max)
	if n == 0 {
		return nil
	}
	shuffled := append([]string{}, pool...)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if n > len(shuffled) {
		n = len(shuffled)
	}
	return shuffled[:n]
}
