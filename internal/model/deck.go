// internal/model/deck.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Deck はカードをまとめる学習デッキを表します
type Deck struct {
	DeckID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"deck_id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"-"`
	Name          string         `gorm:"not null" json:"name"`
	Description   string         `json:"description"`
	LastStudiedAt *time.Time     `gorm:"index" json:"last_studied_at,omitempty"` // セッション完了時に更新
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"` // 論理削除用

	// 関連 (Preload用)
	Cards []Card `gorm:"foreignKey:DeckID;references:DeckID" json:"-"`
}

func (Deck) TableName() string {
	return "decks"
}

// デッキ作成リクエストDTO
type CreateDeckRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"omitempty,max=500"`
}

// デッキ更新（部分）リクエストDTO
type UpdateDeckRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}
