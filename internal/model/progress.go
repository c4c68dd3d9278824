// internal/model/progress.go
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Rating はカード復習時の自己評価
type Rating string

const (
	RatingEasy  Rating = "easy"
	RatingHard  Rating = "hard"
	RatingAgain Rating = "again"
)

// ParseRating は入力文字列を Rating に解決します（大文字小文字を区別しない）
func ParseRating(s string) (Rating, bool) {
	switch Rating(strings.ToLower(s)) {
	case RatingEasy:
		return RatingEasy, true
	case RatingHard:
		return RatingHard, true
	case RatingAgain:
		return RatingAgain, true
	default:
		return "", false
	}
}

// MasteryLevel はカードの習熟度分類
type MasteryLevel string

const (
	MasteryNew      MasteryLevel = "new"      // 進捗行が存在しないカード（読み取り側で判定）
	MasteryLearning MasteryLevel = "learning" // 復習済みだが未習得
	MasteryMastered MasteryLevel = "mastered" // EASY連続 MasteryThreshold 回以上
)

// MasteryThreshold は MASTERED 判定に必要な連続EASY回数
const MasteryThreshold = 3

// CardProgress はカードごとの学習進捗を表します。
// 不変条件: TotalReviews == TotalEasy + TotalHard + TotalAgain
type CardProgress struct {
	ProgressID           uuid.UUID    `gorm:"type:uuid;primaryKey" json:"progress_id"`
	UserID               uuid.UUID    `gorm:"type:uuid;not null;index:idx_user_card,unique" json:"-"` // 複合ユニークインデックスの一部
	CardID               uuid.UUID    `gorm:"type:uuid;not null;index:idx_user_card,unique" json:"card_id"`
	ConsecutiveEasyCount int          `gorm:"not null;default:0" json:"consecutive_easy_count"`
	TotalReviews         int          `gorm:"not null;default:0" json:"total_reviews"`
	TotalEasy            int          `gorm:"not null;default:0" json:"total_easy"`
	TotalHard            int          `gorm:"not null;default:0" json:"total_hard"`
	TotalAgain           int          `gorm:"not null;default:0" json:"total_again"`
	LastRating           *Rating      `gorm:"type:varchar(10)" json:"last_rating,omitempty"`
	LastReviewedAt       *time.Time   `json:"last_reviewed_at,omitempty"`
	MasteryLevel         MasteryLevel `gorm:"type:varchar(20);not null;default:learning" json:"mastery_level"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`

	// 関連 (Preload用)
	Card *Card `gorm:"foreignKey:CardID;references:CardID" json:"-"`
}

func (CardProgress) TableName() string {
	return "card_progress"
}

// ReviewRequest はライブ復習送信リクエストのDTO
type ReviewRequest struct {
	CardID     uuid.UUID  `json:"card_id" validate:"required"`
	Rating     string     `json:"rating" validate:"required"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"` // 省略時はサーバ時刻
}
