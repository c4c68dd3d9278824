//go:generate mockery --name ProgressRepository --output ./mocks --outpkg mocks --case=underscore
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

type ProgressRepository interface {
	// RecordReview は1回の復習結果をカード進捗へ適用します。
	// 行が無ければ作成し、あれば単一の UPSERT で更新します（read-modify-write はしない）。
	RecordReview(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID, rating model.Rating, reviewedAt time.Time) error
	FindByCard(ctx context.Context, db *gorm.DB, userID, cardID uuid.UUID) (*model.CardProgress, error)
	CountByMastery(ctx context.Context, db *gorm.DB, userID uuid.UUID) (map[model.MasteryLevel]int64, error)
}

type gormProgressRepository struct{}

func NewGormProgressRepository() ProgressRepository {
	return &gormProgressRepository{}
}

func (r *gormProgressRepository) RecordReview(ctx context.Context, tx *gorm.DB, userID, cardID uuid.UUID, rating model.Rating, reviewedAt time.Time) error {
	logger := middleware.GetLogger(ctx)

	prog := &model.CardProgress{
		ProgressID:     uuid.New(),
		UserID:         userID,
		CardID:         cardID,
		TotalReviews:   1,
		LastRating:     &rating,
		LastReviewedAt: &reviewedAt,
		MasteryLevel:   model.MasteryLearning,
	}

	assignments := map[string]interface{}{
		"total_reviews":    gorm.Expr("total_reviews + 1"),
		"last_rating":      string(rating),
		"last_reviewed_at": reviewedAt,
		"updated_at":       time.Now(),
	}

	// ON CONFLICT DO UPDATE の右辺で参照する列は既存行の値（PostgreSQL / SQLite 共通）。
	switch rating {
	case model.RatingEasy:
		prog.ConsecutiveEasyCount = 1
		prog.TotalEasy = 1
		assignments["consecutive_easy_count"] = gorm.Expr("consecutive_easy_count + 1")
		assignments["total_easy"] = gorm.Expr("total_easy + 1")
		assignments["mastery_level"] = gorm.Expr(
			"CASE WHEN consecutive_easy_count + 1 >= ? THEN ? ELSE ? END",
			model.MasteryThreshold, string(model.MasteryMastered), string(model.MasteryLearning),
		)
	case model.RatingHard:
		prog.TotalHard = 1
		assignments["consecutive_easy_count"] = 0
		assignments["total_hard"] = gorm.Expr("total_hard + 1")
		assignments["mastery_level"] = string(model.MasteryLearning)
	case model.RatingAgain:
		prog.TotalAgain = 1
		assignments["consecutive_easy_count"] = 0
		assignments["total_again"] = gorm.Expr("total_again + 1")
		assignments["mastery_level"] = string(model.MasteryLearning)
	default:
		return fmt.Errorf("gormProgressRepository.RecordReview: unknown rating %q: %w", rating, model.ErrInvalidInput)
	}

	result := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "card_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(prog)
	if result.Error != nil {
		logger.Error("Error upserting card progress in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"card_id", cardID.String(),
		)
		return fmt.Errorf("gormProgressRepository.RecordReview: %w", result.Error)
	}
	return nil
}

func (r *gormProgressRepository) FindByCard(ctx context.Context, db *gorm.DB, userID, cardID uuid.UUID) (*model.CardProgress, error) {
	logger := middleware.GetLogger(ctx)
	var prog model.CardProgress
	result := db.WithContext(ctx).
		Where("user_id = ? AND card_id = ?", userID, cardID).
		First(&prog)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding card progress in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"card_id", cardID.String(),
		)
		return nil, fmt.Errorf("gormProgressRepository.FindByCard: %w", result.Error)
	}
	return &prog, nil
}

// CountByMastery は習熟度ごとのカード数を返します。論理削除されたカードは数えません。
func (r *gormProgressRepository) CountByMastery(ctx context.Context, db *gorm.DB, userID uuid.UUID) (map[model.MasteryLevel]int64, error) {
	logger := middleware.GetLogger(ctx)
	type row struct {
		MasteryLevel model.MasteryLevel
		Count        int64
	}
	var rows []row
	err := db.WithContext(ctx).
		Model(&model.CardProgress{}).
		Select("card_progress.mastery_level AS mastery_level, COUNT(*) AS count").
		Joins("JOIN cards ON cards.card_id = card_progress.card_id AND cards.deleted_at IS NULL").
		Where("card_progress.user_id = ?", userID).
		Group("card_progress.mastery_level").
		Scan(&rows).Error
	if err != nil {
		logger.Error("Error counting progress by mastery in DB",
			"error", err,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormProgressRepository.CountByMastery: %w", err)
	}
	counts := make(map[model.MasteryLevel]int64, len(rows))
	for _, r := range rows {
		counts[r.MasteryLevel] = r.Count
	}
	return counts, nil
}
