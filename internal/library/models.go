package library

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Media types accepted for favorites, watchlist entries and comments.
const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

// User is a profile synced from the identity provider on sign-in.
type User struct {
	ID              string    `gorm:"primaryKey;size:128" json:"id"`
	Email           string    `gorm:"index;size:320" json:"email"`
	DisplayName     string    `gorm:"size:100" json:"displayName"`
	ProfileImageURL string    `gorm:"size:1024" json:"profileImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Favorite is a title the user marked as a favorite. A user can hold each
// (mediaId, mediaType) pair once.
type Favorite struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string    `gorm:"not null;size:128;uniqueIndex:idx_favorites_user_media" json:"userId"`
	MediaID    int64     `gorm:"not null;uniqueIndex:idx_favorites_user_media" json:"mediaId"`
	MediaType  string    `gorm:"not null;size:10;uniqueIndex:idx_favorites_user_media" json:"mediaType"`
	Title      string    `gorm:"not null;size:300" json:"title"`
	PosterPath string    `gorm:"size:300" json:"posterPath,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

func (f *Favorite) BeforeCreate(*gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// WatchlistItem is a title the user wants to watch later.
type WatchlistItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string    `gorm:"not null;size:128;uniqueIndex:idx_watchlist_user_media" json:"userId"`
	MediaID    int64     `gorm:"not null;uniqueIndex:idx_watchlist_user_media" json:"mediaId"`
	MediaType  string    `gorm:"not null;size:10;uniqueIndex:idx_watchlist_user_media" json:"mediaType"`
	Title      string    `gorm:"not null;size:300" json:"title"`
	PosterPath string    `gorm:"size:300" json:"posterPath,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
}

func (w *WatchlistItem) BeforeCreate(*gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Comment is a public comment on a movie or series page.
type Comment struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MediaID    int64     `gorm:"not null;index:idx_comments_media" json:"mediaId"`
	MediaType  string    `gorm:"not null;size:10;index:idx_comments_media" json:"mediaType"`
	Username   string    `gorm:"not null;size:50" json:"username"`
	Content    string    `gorm:"not null;type:text" json:"content"`
	Title      string    `gorm:"size:300" json:"title"`
	PosterPath string    `gorm:"size:300" json:"posterPath,omitempty"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (c *Comment) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
