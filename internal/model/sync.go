// internal/model/sync.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// SyncReviewInput はオフライン同期で送信される復習1件
type SyncReviewInput struct {
	CardID     uuid.UUID `json:"cardId" validate:"required"`
	Rating     string    `json:"rating" validate:"required"`
	ReviewedAt time.Time `json:"reviewedAt" validate:"required"`
}

// SyncSessionInput はオフライン同期で送信されるセッション1件
type SyncSessionInput struct {
	ClientSessionID string            `json:"clientSessionId" validate:"required"`
	DeckID          uuid.UUID         `json:"deckId" validate:"required"`
	SessionType     string            `json:"sessionType" validate:"required"`
	StartedAt       time.Time         `json:"startedAt" validate:"required"`
	CompletedAt     time.Time         `json:"completedAt" validate:"required"`
	Reviews         []SyncReviewInput `json:"reviews" validate:"dive"`
}

// SyncRequest は /sync/study-progress のリクエストボディ。
// オフラインクライアント向けの同期APIのみキーが camelCase である点に注意。
type SyncRequest struct {
	ClientID string             `json:"clientId" validate:"required"`
	Sessions []SyncSessionInput `json:"sessions" validate:"dive"`
}

// 同期アイテムの処理結果ステータス
const (
	SyncStatusSynced  = "synced"
	SyncStatusSkipped = "skipped"
	SyncStatusFailed  = "failed"
)

// SyncSessionResult はセッション1件分の処理結果。
// バリデーション失敗はエラーではなく、この構造体の FAILED として返す。
type SyncSessionResult struct {
	ClientSessionID string     `json:"clientSessionId"`
	Status          string     `json:"status"`
	ServerSessionID *uuid.UUID `json:"serverSessionId,omitempty"`
	ReviewsSynced   int        `json:"reviewsSynced"`
	Error           string     `json:"error,omitempty"`
}

// SyncSummary はバッチ全体の集計
type SyncSummary struct {
	Total   int `json:"total"`
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SyncResponse は /sync/study-progress のレスポンスボディ。
// アイテム単位の失敗があってもHTTPとしては常に成功で返す。
type SyncResponse struct {
	SyncedAt time.Time           `json:"syncedAt"`
	Results  []SyncSessionResult `json:"results"`
	Summary  SyncSummary         `json:"summary"`
}
