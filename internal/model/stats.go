// internal/model/stats.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout は集計テーブルに保存するカレンダー日付の書式
const DateLayout = "2006-01-02"

// UserStatistics はユーザーごとの累計学習統計（1ユーザー1行、遅延作成）
type UserStatistics struct {
	UserID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CurrentStreak         int       `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak         int       `gorm:"not null;default:0" json:"longest_streak"` // 単調非減少
	LastStudyDate         *string   `gorm:"type:date" json:"last_study_date,omitempty"`
	TotalCardsStudied     int       `gorm:"not null;default:0" json:"total_cards_studied"`
	TotalStudyTimeMinutes int       `gorm:"not null;default:0" json:"total_study_time_minutes"`
	TotalSessions         int       `gorm:"not null;default:0" json:"total_sessions"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (UserStatistics) TableName() string {
	return "user_statistics"
}

// DailyStudyStats は (ユーザー, 日付) ごとの学習集計。
// 同日の完了セッションは同じ行に加算される（上書きではない）。
type DailyStudyStats struct {
	UserID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	StudyDate         string    `gorm:"type:date;primaryKey" json:"study_date"` // セッションのタイムゾーンでの暦日
	CardsStudied      int       `gorm:"not null;default:0" json:"cards_studied"`
	TimeMinutes       int       `gorm:"not null;default:0" json:"time_minutes"`
	SessionsCompleted int       `gorm:"not null;default:0" json:"sessions_completed"`
	EasyCount         int       `gorm:"not null;default:0" json:"easy_count"`
	HardCount         int       `gorm:"not null;default:0" json:"hard_count"`
	AgainCount        int       `gorm:"not null;default:0" json:"again_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (DailyStudyStats) TableName() string {
	return "daily_study_stats"
}

// --- 読み取りDTO（統計APIはキーが camelCase） ---

// StreakInfo は連続学習日数の計算結果
type StreakInfo struct {
	Current       int     `json:"current"`
	Longest       int     `json:"longest"`
	LastStudyDate *string `json:"lastStudyDate,omitempty"`
}

// DailyStatsEntry は日次集計のレスポンス表現（行が無い日はゼロ埋め）
type DailyStatsEntry struct {
	Date              string `json:"date"`
	CardsStudied      int    `json:"cardsStudied"`
	TimeMinutes       int    `json:"timeMinutes"`
	SessionsCompleted int    `json:"sessionsCompleted"`
	EasyCount         int    `json:"easyCount"`
	HardCount         int    `json:"hardCount"`
	AgainCount        int    `json:"againCount"`
}

// AllTimeTotals は累計集計のレスポンス表現
type AllTimeTotals struct {
	CardsStudied     int `json:"cardsStudied"`
	StudyTimeMinutes int `json:"studyTimeMinutes"`
	Sessions         int `json:"sessions"`
}

// MasteryBreakdown は習熟度別のカード数。New = Total - Learning - Mastered
type MasteryBreakdown struct {
	New      int `json:"new"`
	Learning int `json:"learning"`
	Mastered int `json:"mastered"`
	Total    int `json:"total"`
}

// AccuracyTrend の取りうる値
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// AccuracyInfo は期間内の正答率と前期間比のトレンド。
// Rate はレビュー0件の期間では null（0/0 を 0 とはみなさない）。
type AccuracyInfo struct {
	Rate       *float64 `json:"rate"`
	Trend      *string  `json:"trend"`
	EasyCount  int      `json:"easyCount"`
	HardCount  int      `json:"hardCount"`
	AgainCount int      `json:"againCount"`
	PeriodDays int      `json:"periodDays"`
}

// AccuracyCounts は日付範囲の評価別集計（リポジトリのスキャン先）
type AccuracyCounts struct {
	EasyCount  int
	HardCount  int
	AgainCount int
}

// TopDeck は最終学習日時順のデッキランキング1件
type TopDeck struct {
	DeckID          uuid.UUID  `json:"deckId"`
	Name            string     `json:"name"`
	LastStudiedAt   *time.Time `json:"lastStudiedAt,omitempty"`
	TotalCards      int        `json:"totalCards"`
	MasteredCards   int        `json:"masteredCards"`
	ProgressPercent int        `json:"progressPercent"` // floor(mastered*100/total)、total==0 なら 0
}

// Overview は統計レポートエンドポイントの読み取りモデル
type Overview struct {
	Streak       StreakInfo        `json:"streak"`
	Today        DailyStatsEntry   `json:"today"`
	Week         []DailyStatsEntry `json:"week"` // 7日分、日付昇順
	AllTime      AllTimeTotals     `json:"allTime"`
	CardProgress MasteryBreakdown  `json:"cardProgress"`
	Accuracy     AccuracyInfo      `json:"accuracy"`
	TopDecks     []TopDeck         `json:"topDecks"`
}

// InvalidTimezoneResponse はタイムゾーン検証エラーのレスポンス形式
type InvalidTimezoneResponse struct {
	Error        string `json:"error"`
	ValidExample string `json:"validExample"`
}
