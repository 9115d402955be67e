package domain

import (
	"time"
)

// AccountModel is the GORM model for accounts table.
type AccountModel struct {
	ID           string    `gorm:"type:varchar(36);primaryKey"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `gorm:"type:varchar(255);not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (AccountModel) TableName() string {
	return "accounts"
}

func (m *AccountModel) ToDomain() *Account {
	return &Account{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func AccountToModel(a *Account) *AccountModel {
	return &AccountModel{
		ID:           a.ID,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

// ProfileModel is the GORM model for profiles table.
type ProfileModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Username  string    `gorm:"type:varchar(50);not null;default:''"`
	College   string    `gorm:"type:varchar(120);not null;default:''"`
	AvatarURL string    `gorm:"type:varchar(512);not null;default:''"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}

func (m *ProfileModel) ToDomain() *Profile {
	return &Profile{
		ID:        m.ID,
		Username:  m.Username,
		College:   m.College,
		AvatarURL: m.AvatarURL,
		CreatedAt: m.CreatedAt,
	}
}

func ProfileToModel(p *Profile) *ProfileModel {
	return &ProfileModel{
		ID:        p.ID,
		Username:  p.Username,
		College:   p.College,
		AvatarURL: p.AvatarURL,
		CreatedAt: p.CreatedAt,
	}
}

// ThreadModel is the GORM model for threads table.
type ThreadModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Title     string    `gorm:"type:varchar(120);uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ThreadModel) TableName() string {
	return "threads"
}

func (m *ThreadModel) ToDomain() *Thread {
	return &Thread{
		ID:        m.ID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
	}
}

// PostModel is the GORM model for posts table.
type PostModel struct {
	ID        string        `gorm:"type:varchar(36);primaryKey"`
	AuthorID  string        `gorm:"type:varchar(36);index;not null"`
	ThreadID  string        `gorm:"type:varchar(36);index;not null"`
	Content   string        `gorm:"type:text;not null"`
	CreatedAt time.Time     `gorm:"autoCreateTime;index"`
	Author    *ProfileModel `gorm:"foreignKey:AuthorID;references:ID"`
}

func (PostModel) TableName() string {
	return "posts"
}

func (m *PostModel) ToDomain() *Post {
	p := &Post{
		ID:        m.ID,
		AuthorID:  m.AuthorID,
		ThreadID:  m.ThreadID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.Author != nil {
		p.Author = m.Author.ToDomain()
	}
	return p
}

func PostToModel(p *Post) *PostModel {
	return &PostModel{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		ThreadID:  p.ThreadID,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
	}
}

// CommentModel is the GORM model for comments table.
type CommentModel struct {
	ID        string        `gorm:"type:varchar(36);primaryKey"`
	PostID    string        `gorm:"type:varchar(36);index;not null"`
	AuthorID  string        `gorm:"type:varchar(36);index;not null"`
	Content   string        `gorm:"type:text;not null"`
	CreatedAt time.Time     `gorm:"autoCreateTime"`
	Author    *ProfileModel `gorm:"foreignKey:AuthorID;references:ID"`
}

func (CommentModel) TableName() string {
	return "comments"
}

func (m *CommentModel) ToDomain() *Comment {
	c := &Comment{
		ID:        m.ID,
		PostID:    m.PostID,
		AuthorID:  m.AuthorID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.Author != nil {
		c.Author = m.Author.ToDomain()
	}
	return c
}

func CommentToModel(c *Comment) *CommentModel {
	return &CommentModel{
		ID:        c.ID,
		PostID:    c.PostID,
		AuthorID:  c.AuthorID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
	}
}

// Models lists every table for auto-migration.
func Models() []interface{} {
	return []interface{}{
		&AccountModel{},
		&ProfileModel{},
		&ThreadModel{},
		&PostModel{},
		&CommentModel{},
	}
}
