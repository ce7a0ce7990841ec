// Package library persists what signed-in users keep around the catalog:
// profiles, favorites, the watchlist and page comments.
package library

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

var (
	ErrDuplicate = errors.New("library: already exists")
	ErrNotFound  = errors.New("library: not found")
)

// InputError is a rejected input. Msg is safe to show to the client.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

const (
	maxCommentLength  = 1000
	maxUsernameLength = 50

	defaultRecentLimit = 10
	maxRecentLimit     = 50
)

// Store is the gorm-backed library. It is safe for concurrent use.
type Store struct {
	db       *gorm.DB
	validate *validator.Validate
}

// Open connects to the database for driver ("sqlite" or "postgres") and
// migrates the schema. SQL logging goes to log at warn level.
func Open(driver, dsn string, log *logrus.Entry) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("library: unsupported driver %q", driver)
	}

	cfg := &gorm.Config{TranslateError: true, Logger: gormlogger.Discard}
	if log != nil {
		cfg.Logger = gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	}
	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("library: open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// Every pooled connection to ":memory:" would see its own database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return New(db)
}

// New wraps an open gorm connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&User{}, &Favorite{}, &WatchlistItem{}, &Comment{}); err != nil {
		return nil, fmt.Errorf("library: migrate: %w", err)
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return &Store{db: db, validate: v}, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// check runs struct validation and converts the first failure to an InputError.
func (s *Store) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return &InputError{Msg: fe.Field() + " is required"}
	case "oneof":
		return &InputError{Msg: fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))}
	case "max":
		return &InputError{Msg: fmt.Sprintf("%s is too long (max %s characters)", fe.Field(), fe.Param())}
	}
	return &InputError{Msg: fe.Field() + " is invalid"}
}

// UserInput is the profile payload sent on sign-in.
type UserInput struct {
	ID              string `json:"id" validate:"required,max=128"`
	Email           string `json:"email" validate:"omitempty,email,max=320"`
	DisplayName     string `json:"displayName" validate:"max=100"`
	ProfileImageURL string `json:"profileImageUrl" validate:"omitempty,url,max=1024"`
}

// UpsertUser creates the user or refreshes its profile fields.
func (s *Store) UpsertUser(ctx context.Context, in UserInput) (*User, error) {
	in.ID = strings.TrimSpace(in.ID)
	if err := s.check(in); err != nil {
		return nil, err
	}
	u := &User{ID: in.ID, Email: in.Email, DisplayName: in.DisplayName, ProfileImageURL: in.ProfileImageURL}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "profile_image_url", "updated_at"}),
	}).Create(u).Error
	if err != nil {
		return nil, fmt.Errorf("library: upsert user: %w", err)
	}
	return s.GetUser(ctx, in.ID)
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("library: get user: %w", err)
	}
	return &u, nil
}

// MediaInput identifies a title for the favorites and watchlist collections.
type MediaInput struct {
	UserID     string `json:"userId" validate:"required,max=128"`
	MediaID    int64  `json:"mediaId" validate:"required,gt=0"`
	MediaType  string `json:"mediaType" validate:"required,oneof=movie tv"`
	Title      string `json:"title" validate:"required,max=300"`
	PosterPath string `json:"posterPath" validate:"max=300"`
}

func (s *Store) ListFavorites(ctx context.Context, userID string) ([]Favorite, error) {
	return listMedia[Favorite](ctx, s.db, userID)
}

// AddFavorite stores a favorite, returning ErrDuplicate when the user
// already holds it.
func (s *Store) AddFavorite(ctx context.Context, in MediaInput) (*Favorite, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	f := &Favorite{UserID: in.UserID, MediaID: in.MediaID, MediaType: in.MediaType, Title: in.Title, PosterPath: in.PosterPath}
	if err := addMedia(ctx, s.db, f, in); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) RemoveFavorite(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	return removeMedia[Favorite](ctx, s.db, userID, mediaID, mediaType)
}

func (s *Store) ListWatchlist(ctx context.Context, userID string) ([]WatchlistItem, error) {
	return listMedia[WatchlistItem](ctx, s.db, userID)
}

// AddToWatchlist stores a watchlist entry, returning ErrDuplicate when the
// user already holds it.
func (s *Store) AddToWatchlist(ctx context.Context, in MediaInput) (*WatchlistItem, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	w := &WatchlistItem{UserID: in.UserID, MediaID: in.MediaID, MediaType: in.MediaType, Title: in.Title, PosterPath: in.PosterPath}
	if err := addMedia(ctx, s.db, w, in); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) RemoveFromWatchlist(ctx context.Context, userID string, mediaID int64, mediaType string) error {
	return removeMedia[WatchlistItem](ctx, s.db, userID, mediaID, mediaType)
}

func listMedia[T any](ctx context.Context, db *gorm.DB, userID string) ([]T, error) {
	out := make([]T, 0)
	err := db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("library: list: %w", err)
	}
	return out, nil
}

func addMedia[T any](ctx context.Context, db *gorm.DB, row *T, in MediaInput) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		err := tx.Model(new(T)).
			Where("user_id = ? AND media_id = ? AND media_type = ?", in.UserID, in.MediaID, in.MediaType).
			Count(&n).Error
		if err != nil {
			return fmt.Errorf("library: lookup: %w", err)
		}
		if n > 0 {
			return ErrDuplicate
		}
		if err := tx.Create(row).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicate
			}
			return fmt.Errorf("library: create: %w", err)
		}
		return nil
	})
}

func removeMedia[T any](ctx context.Context, db *gorm.DB, userID string, mediaID int64, mediaType string) error {
	res := db.WithContext(ctx).
		Where("user_id = ? AND media_id = ? AND media_type = ?", userID, mediaID, mediaType).
		Delete(new(T))
	if res.Error != nil {
		return fmt.Errorf("library: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CommentInput is a new comment as posted from a media page.
type CommentInput struct {
	MediaID    int64  `json:"mediaId" validate:"required,gt=0"`
	MediaType  string `json:"mediaType" validate:"required,oneof=movie tv"`
	Username   string `json:"username"`
	Content    string `json:"content"`
	Title      string `json:"title" validate:"max=300"`
	PosterPath string `json:"posterPath" validate:"max=300"`
}

// CreateComment trims and validates the comment before storing it.
func (s *Store) CreateComment(ctx context.Context, in CommentInput) (*Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	in.Username = strings.TrimSpace(in.Username)
	switch {
	case in.Content == "":
		return nil, &InputError{Msg: "Comment content cannot be empty"}
	case in.Username == "":
		return nil, &InputError{Msg: "Username cannot be empty"}
	case len([]rune(in.Content)) > maxCommentLength:
		return nil, &InputError{Msg: fmt.Sprintf("Comment content is too long (max %d characters)", maxCommentLength)}
	case len([]rune(in.Username)) > maxUsernameLength:
		return nil, &InputError{Msg: fmt.Sprintf("Username is too long (max %d characters)", maxUsernameLength)}
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	c := &Comment{
		MediaID:    in.MediaID,
		MediaType:  in.MediaType,
		Username:   in.Username,
		Content:    in.Content,
		Title:      in.Title,
		PosterPath: in.PosterPath,
	}
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, fmt.Errorf("library: create comment: %w", err)
	}
	return c, nil
}

// ListComments returns a page's comments, newest first.
func (s *Store) ListComments(ctx context.Context, mediaID int64, mediaType string) ([]Comment, error) {
	out := make([]Comment, 0)
	err := s.db.WithContext(ctx).
		Where("media_id = ? AND media_type = ?", mediaID, mediaType).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("library: list comments: %w", err)
	}
	return out, nil
}

func (s *Store) CountComments(ctx context.Context, mediaID int64, mediaType string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Comment{}).
		Where("media_id = ? AND media_type = ?", mediaID, mediaType).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("library: count comments: %w", err)
	}
	return n, nil
}

// RecentComments returns the newest comments across all pages. limit is
// clamped to 1..50; zero or negative means 10.
func (s *Store) RecentComments(ctx context.Context, limit int) ([]Comment, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	limit = min(limit, maxRecentLimit)

	out := make([]Comment, 0, limit)
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("library: recent comments: %w", err)
	}
	return out, nil
}
