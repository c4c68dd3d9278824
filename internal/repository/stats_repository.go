//go:generate mockery --name StatsRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go_5_flash_keep/internal/middleware"
	"go_5_flash_keep/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StatsRepository interface {
	// IncrementUserTotals は全期間累計へセッション1件分を加算します（UPSERT）。
	IncrementUserTotals(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cards, minutes int, studyDate string) error
	// AccumulateDaily は日次集計行へセッション1件分を加算します（UPSERT）。
	AccumulateDaily(ctx context.Context, tx *gorm.DB, entry *model.DailyStudyStats) error
	UpdateStreaks(ctx context.Context, tx *gorm.DB, userID uuid.UUID, current, longest int) error
	FindUserStatistics(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*model.UserStatistics, error)
	// DistinctStudyDates は学習実績のある日付を降順（新しい順）で返します。
	DistinctStudyDates(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]string, error)
	FindDailyRange(ctx context.Context, db *gorm.DB, userID uuid.UUID, from, to string) ([]*model.DailyStudyStats, error)
	AccuracyCounts(ctx context.Context, db *gorm.DB, userID uuid.UUID, from, to string) (*model.AccuracyCounts, error)
	TopDecksByLastStudied(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.TopDeck, error)
}

type gormStatsRepository struct{}

func NewGormStatsRepository() StatsRepository {
	return &gormStatsRepository{}
}

func (r *gormStatsRepository) IncrementUserTotals(ctx context.Context, tx *gorm.DB, userID uuid.UUID, cards, minutes int, studyDate string) error {
	logger := middleware.GetLogger(ctx)
	stats := &model.UserStatistics{
		UserID:                userID,
		TotalCardsStudied:     cards,
		TotalStudyTimeMinutes: minutes,
		TotalSessions:         1,
		LastStudyDate:         &studyDate,
	}
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"total_cards_studied":      gorm.Expr("total_cards_studied + ?", cards),
			"total_study_time_minutes": gorm.Expr("total_study_time_minutes + ?", minutes),
			"total_sessions":           gorm.Expr("total_sessions + 1"),
			// 同期では過去日のセッションが後から届くため、後退させない。
			"last_study_date": gorm.Expr(
				"CASE WHEN last_study_date IS NULL OR last_study_date < ? THEN ? ELSE last_study_date END",
				studyDate, studyDate,
			),
			"updated_at": time.Now(),
		}),
	}).Create(stats)
	if result.Error != nil {
		logger.Error("Error incrementing user totals in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return fmt.Errorf("gormStatsRepository.IncrementUserTotals: %w", result.Error)
	}
	return nil
}

func (r *gormStatsRepository) AccumulateDaily(ctx context.Context, tx *gorm.DB, entry *model.DailyStudyStats) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "study_date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"cards_studied":      gorm.Expr("cards_studied + ?", entry.CardsStudied),
			"time_minutes":       gorm.Expr("time_minutes + ?", entry.TimeMinutes),
			"sessions_completed": gorm.Expr("sessions_completed + ?", entry.SessionsCompleted),
			"easy_count":         gorm.Expr("easy_count + ?", entry.EasyCount),
			"hard_count":         gorm.Expr("hard_count + ?", entry.HardCount),
			"again_count":        gorm.Expr("again_count + ?", entry.AgainCount),
			"updated_at":         time.Now(),
		}),
	}).Create(entry)
	if result.Error != nil {
		logger.Error("Error accumulating daily stats in DB",
			"error", result.Error,
			"user_id", entry.UserID.String(),
			"study_date", entry.StudyDate,
		)
		return fmt.Errorf("gormStatsRepository.AccumulateDaily: %w", result.Error)
	}
	return nil
}

func (r *gormStatsRepository) UpdateStreaks(ctx context.Context, tx *gorm.DB, userID uuid.UUID, current, longest int) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).
		Model(&model.UserStatistics{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"current_streak": current,
			// 過去の日次行が整理されても longest は後退させない。
			"longest_streak": gorm.Expr("CASE WHEN longest_streak > ? THEN longest_streak ELSE ? END", longest, longest),
		})
	if result.Error != nil {
		logger.Error("Error updating streaks in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return fmt.Errorf("gormStatsRepository.UpdateStreaks: %w", result.Error)
	}
	return nil
}

func (r *gormStatsRepository) FindUserStatistics(ctx context.Context, db *gorm.DB, userID uuid.UUID) (*model.UserStatistics, error) {
	logger := middleware.GetLogger(ctx)
	var stats model.UserStatistics
	result := db.WithContext(ctx).Where("user_id = ?", userID).First(&stats)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding user statistics in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormStatsRepository.FindUserStatistics: %w", result.Error)
	}
	return &stats, nil
}

func (r *gormStatsRepository) DistinctStudyDates(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]string, error) {
	logger := middleware.GetLogger(ctx)
	var dates []string
	err := db.WithContext(ctx).
		Model(&model.DailyStudyStats{}).
		Where("user_id = ?", userID).
		Order("study_date DESC").
		Pluck("study_date", &dates).Error
	if err != nil {
		logger.Error("Error fetching distinct study dates from DB",
			"error", err,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormStatsRepository.DistinctStudyDates: %w", err)
	}
	return dates, nil
}

func (r *gormStatsRepository) FindDailyRange(ctx context.Context, db *gorm.DB, userID uuid.UUID, from, to string) ([]*model.DailyStudyStats, error) {
	logger := middleware.GetLogger(ctx)
	var rows []*model.DailyStudyStats
	err := db.WithContext(ctx).
		Where("user_id = ? AND study_date >= ? AND study_date <= ?", userID, from, to).
		Order("study_date ASC").
		Find(&rows).Error
	if err != nil {
		logger.Error("Error fetching daily stats range from DB",
			"error", err,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormStatsRepository.FindDailyRange: %w", err)
	}
	return rows, nil
}

func (r *gormStatsRepository) AccuracyCounts(ctx context.Context, db *gorm.DB, userID uuid.UUID, from, to string) (*model.AccuracyCounts, error) {
	logger := middleware.GetLogger(ctx)
	var counts model.AccuracyCounts
	err := db.WithContext(ctx).
		Model(&model.DailyStudyStats{}).
		Select("COALESCE(SUM(easy_count), 0) AS easy_count, COALESCE(SUM(hard_count), 0) AS hard_count, COALESCE(SUM(again_count), 0) AS again_count").
		Where("user_id = ? AND study_date >= ? AND study_date <= ?", userID, from, to).
		Scan(&counts).Error
	if err != nil {
		logger.Error("Error aggregating accuracy counts from DB",
			"error", err,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormStatsRepository.AccuracyCounts: %w", err)
	}
	return &counts, nil
}

// TopDecksByLastStudied は最近学習したデッキ順に、習熟率付きで返します。
// 未学習（last_studied_at IS NULL）のデッキは対象外。
func (r *gormStatsRepository) TopDecksByLastStudied(ctx context.Context, db *gorm.DB, userID uuid.UUID, limit int) ([]*model.TopDeck, error) {
	logger := middleware.GetLogger(ctx)
	type row struct {
		DeckID        uuid.UUID
		Name          string
		LastStudiedAt time.Time
		CardCount     int64
		MasteredCount int64
	}
	var rows []row
	err := db.WithContext(ctx).
		Table("decks").
		Select(`decks.deck_id AS deck_id,
			decks.name AS name,
			decks.last_studied_at AS last_studied_at,
			COUNT(DISTINCT cards.card_id) AS card_count,
			COUNT(DISTINCT CASE WHEN card_progress.mastery_level = ? THEN cards.card_id END) AS mastered_count`,
			string(model.MasteryMastered)).
		Joins("LEFT JOIN cards ON cards.deck_id = decks.deck_id AND cards.deleted_at IS NULL").
		Joins("LEFT JOIN card_progress ON card_progress.card_id = cards.card_id AND card_progress.user_id = decks.user_id").
		Where("decks.user_id = ? AND decks.deleted_at IS NULL AND decks.last_studied_at IS NOT NULL", userID).
		Group("decks.deck_id, decks.name, decks.last_studied_at").
		Order("decks.last_studied_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		logger.Error("Error fetching top decks from DB",
			"error", err,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormStatsRepository.TopDecksByLastStudied: %w", err)
	}

	decks := make([]*model.TopDeck, 0, len(rows))
	for _, r := range rows {
		progress := 0
		if r.CardCount > 0 {
			progress = int(r.MasteredCount * 100 / r.CardCount)
		}
		lastStudied := r.LastStudiedAt
		decks = append(decks, &model.TopDeck{
			DeckID:          r.DeckID,
			Name:            r.Name,
			LastStudiedAt:   &lastStudied,
			TotalCards:      int(r.CardCount),
			MasteredCards:   int(r.MasteredCount),
			ProgressPercent: progress,
		})
	}
	return decks, nil
}
