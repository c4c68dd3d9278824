//go:generate mockery --name CardRepository --output ./mocks --outpkg mocks --case=underscore
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_flash_keep/internal/middleware"
	"go_5_flash_keep/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CardRepository interface {
	Create(ctx context.Context, tx *gorm.DB, card *model.Card) error
	FindByID(ctx context.Context, db *gorm.DB, userID, cardID uuid.UUID) (*model.Card, error)
	FindByDeck(ctx context.Context, db *gorm.DB, deckID uuid.UUID) ([]*model.Card, error)
	Update(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) error
	Exists(ctx context.Context, db *gorm.DB, cardID uuid.UUID) (bool, error)
	CountByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int64, error)
}

type gormCardRepository struct{}

func NewGormCardRepository() CardRepository {
	return &gormCardRepository{}
}

func (r *gormCardRepository) Create(ctx context.Context, tx *gorm.DB, card *model.Card) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(card)
	if result.Error != nil {
		logger.Error("Error creating card in DB",
			"error", result.Error,
			"deck_id", card.DeckID.String(),
		)
		return fmt.Errorf("gormCardRepository.Create: %w", result.Error)
	}
	return nil
}

// FindByID はデッキの所有者まで辿ってカードを取得します。他ユーザーのカードは NotFound 扱い。
func (r *gormCardRepository) FindByID(ctx context.Context, db *gorm.DB, userID, cardID uuid.UUID) (*model.Card, error) {
	logger := middleware.GetLogger(ctx)
	var card model.Card
	result := db.WithContext(ctx).
		Joins("JOIN decks ON decks.deck_id = cards.deck_id AND decks.deleted_at IS NULL").
		Where("cards.card_id = ? AND decks.user_id = ?", cardID, userID).
		First(&card)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding card by ID in DB",
			"error", result.Error,
			"card_id", cardID.String(),
		)
		return nil, fmt.Errorf("gormCardRepository.FindByID: %w", result.Error)
	}
	return &card, nil
}

func (r *gormCardRepository) FindByDeck(ctx context.Context, db *gorm.DB, deckID uuid.UUID) ([]*model.Card, error) {
	logger := middleware.GetLogger(ctx)
	var cards []*model.Card
	result := db.WithContext(ctx).
		Where("deck_id = ?", deckID).
		Order("created_at ASC").
		Find(&cards)
	if result.Error != nil {
		logger.Error("Error finding cards by deck in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormCardRepository.FindByDeck: %w", result.Error)
	}
	return cards, nil
}

func (r *gormCardRepository) Update(ctx context.Context, tx *gorm.DB, cardID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).
		Model(&model.Card{}).
		Where("card_id = ?", cardID).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating card in DB",
			"error", result.Error,
			"card_id", cardID.String(),
		)
		return fmt.Errorf("gormCardRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormCardRepository) Delete(ctx context.Context, tx *gorm.DB, cardID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Where("card_id = ?", cardID).Delete(&model.Card{})
	if result.Error != nil {
		logger.Error("Error deleting card in DB",
			"error", result.Error,
			"card_id", cardID.String(),
		)
		return fmt.Errorf("gormCardRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

// Exists はカードが（論理削除されずに）存在するかを返します。
// オフライン同期では、削除済みカードへの復習は黙って捨てるためにこの判定を使います。
func (r *gormCardRepository) Exists(ctx context.Context, db *gorm.DB, cardID uuid.UUID) (bool, error) {
	logger := middleware.GetLogger(ctx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&model.Card{}).
		Where("card_id = ?", cardID).
		Count(&count).Error; err != nil {
		logger.Error("Error checking card existence in DB",
			"error", err,
			"card_id", cardID.String(),
		)
		return false, fmt.Errorf("gormCardRepository.Exists: %w", err)
	}
	return count > 0, nil
}

// CountByUser はユーザーの全デッキに属するカード総数を返します（習熟度内訳の母数）。
func (r *gormCardRepository) CountByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) (int64, error) {
	logger := middleware.GetLogger(ctx)
	var count int64
	if err := db.WithContext(ctx).
		Model(&model.Card{}).
		Joins("JOIN decks ON decks.deck_id = cards.deck_id AND decks.deleted_at IS NULL").
		Where("decks.user_id = ?", userID).
		Count(&count).Error; err != nil {
		logger.Error("Error counting cards by user in DB",
			"error", err,
			"user_id", userID.String(),
		)
		return 0, fmt.Errorf("gormCardRepository.CountByUser: %w", err)
	}
	return count, nil
}
