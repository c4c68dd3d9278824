// internal/model/session.go
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionType は学習セッションの種別
type SessionType string

const (
	SessionTypeLearn  SessionType = "learn"
	SessionTypeReview SessionType = "review"
	SessionTypeTest   SessionType = "test"
)

// ParseSessionType は入力文字列を既知のセッション種別に解決します
func ParseSessionType(s string) (SessionType, bool) {
	switch SessionType(strings.ToLower(s)) {
	case SessionTypeLearn:
		return SessionTypeLearn, true
	case SessionTypeReview:
		return SessionTypeReview, true
	case SessionTypeTest:
		return SessionTypeTest, true
	default:
		return "", false
	}
}

// StudySession は完了した学習セッションの記録
type StudySession struct {
	SessionID       uuid.UUID   `gorm:"type:uuid;primaryKey" json:"session_id"`
	UserID          uuid.UUID   `gorm:"type:uuid;not null;index" json:"-"`
	DeckID          uuid.UUID   `gorm:"type:uuid;not null;index" json:"deck_id"`
	SessionType     SessionType `gorm:"type:varchar(20);not null" json:"session_type"`
	StartedAt       time.Time   `gorm:"not null" json:"started_at"`
	CompletedAt     time.Time   `gorm:"not null" json:"completed_at"`
	CardsStudied    int         `gorm:"not null;default:0" json:"cards_studied"`
	EasyCount       int         `gorm:"not null;default:0" json:"easy_count"`
	HardCount       int         `gorm:"not null;default:0" json:"hard_count"`
	AgainCount      int         `gorm:"not null;default:0" json:"again_count"`
	DurationMinutes int         `gorm:"not null;default:0" json:"duration_minutes"`
	CreatedAt       time.Time   `json:"created_at"`

	// 関連 (Preload用)
	Deck *Deck `gorm:"foreignKey:DeckID;references:DeckID" json:"-"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}

// SessionCompletionRequest はライブセッション完了リクエストのDTO
type SessionCompletionRequest struct {
	DeckID          uuid.UUID `json:"deck_id" validate:"required"`
	SessionType     string    `json:"session_type" validate:"required"`
	CardsStudied    int       `json:"cards_studied" validate:"gte=0"`
	EasyCount       int       `json:"easy_count" validate:"gte=0"`
	HardCount       int       `json:"hard_count" validate:"gte=0"`
	AgainCount      int       `json:"again_count" validate:"gte=0"`
	DurationMinutes int       `json:"duration_minutes" validate:"gte=1"`
	Timezone        string    `json:"timezone,omitempty"` // IANA ID。省略時はUTC
}
