// internal/model/card.go
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Card はフラッシュカード1枚（表面と裏面）を表します
type Card struct {
	CardID    uuid.UUID      `gorm:"type:uuid;primaryKey" json:"card_id"`
	DeckID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"deck_id"`
	Front     string         `gorm:"not null" json:"front"` // 問題面
	Back      string         `gorm:"not null" json:"back"`  // 解答面
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"` // 論理削除用

	// 関連 (Preload用)
	Deck *Deck `gorm:"foreignKey:DeckID;references:DeckID" json:"-"`
}

func (Card) TableName() string {
	return "cards"
}

// カード作成リクエストDTO
type CreateCardRequest struct {
	Front string `json:"front" validate:"required,min=1"`
	Back  string `json:"back" validate:"required,min=1"`
}

// カード更新（部分）リクエストDTO
type UpdateCardRequest struct {
	Front *string `json:"front,omitempty" validate:"omitempty,min=1"`
	Back  *string `json:"back,omitempty" validate:"omitempty,min=1"`
}
