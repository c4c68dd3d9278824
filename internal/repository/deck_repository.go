//go:generate mockery --name DeckRepository --output ./mocks --outpkg mocks --case=underscore
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
)

type DeckRepository interface {
	Create(ctx context.Context, tx *gorm.DB, deck *model.Deck) error
	FindByID(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.Deck, error)
	FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.Deck, error)
	Update(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error
	CheckNameExists(ctx context.Context, db *gorm.DB, userID uuid.UUID, name string, excludeDeckID *uuid.UUID) (bool, error)
	SetLastStudied(ctx context.Context, tx *gorm.DB, deckID uuid.UUID, studiedAt time.Time) error
}

type gormDeckRepository struct{}

func NewGormDeckRepository() DeckRepository {
	return &gormDeckRepository{}
}

func (r *gormDeckRepository) Create(ctx context.Context, tx *gorm.DB, deck *model.Deck) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).Create(deck)
	if result.Error != nil {
		logger.Error("Error creating deck in DB",
			"error", result.Error,
			"user_id", deck.UserID.String(),
			"name", deck.Name,
		)
		return fmt.Errorf("gormDeckRepository.Create: %w", result.Error)
	}
	return nil
}

func (r *gormDeckRepository) FindByID(ctx context.Context, db *gorm.DB, userID, deckID uuid.UUID) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var deck model.Deck
	result := db.WithContext(ctx).Where("user_id = ? AND deck_id = ?", userID, deckID).First(&deck)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Error finding deck by ID in DB",
			"error", result.Error,
			"user_id", userID.String(),
			"deck_id", deckID.String(),
		)
		return nil, fmt.Errorf("gormDeckRepository.FindByID: %w", result.Error)
	}
	return &deck, nil
}

func (r *gormDeckRepository) FindByUser(ctx context.Context, db *gorm.DB, userID uuid.UUID) ([]*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var decks []*model.Deck
	result := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&decks)
	if result.Error != nil {
		logger.Error("Error finding decks by user in DB",
			"error", result.Error,
			"user_id", userID.String(),
		)
		return nil, fmt.Errorf("gormDeckRepository.FindByUser: %w", result.Error)
	}
	return decks, nil
}

func (r *gormDeckRepository) Update(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID, updates map[string]interface{}) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).
		Model(&model.Deck{}).
		Where("user_id = ? AND deck_id = ?", userID, deckID).
		Updates(updates)
	if result.Error != nil {
		logger.Error("Error updating deck in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return fmt.Errorf("gormDeckRepository.Update: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormDeckRepository) Delete(ctx context.Context, tx *gorm.DB, userID, deckID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	// デッキ内のカードも合わせて論理削除する
	cardResult := tx.WithContext(ctx).Where("deck_id = ?", deckID).Delete(&model.Card{})
	if cardResult.Error != nil {
		logger.Error("Error deleting cards of deck in DB",
			"error", cardResult.Error,
			"deck_id", deckID.String(),
		)
		return fmt.Errorf("gormDeckRepository.Delete (cards): %w", cardResult.Error)
	}

	result := tx.WithContext(ctx).Where("user_id = ? AND deck_id = ?", userID, deckID).Delete(&model.Deck{})
	if result.Error != nil {
		logger.Error("Error deleting deck in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return fmt.Errorf("gormDeckRepository.Delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *gormDeckRepository) CheckNameExists(ctx context.Context, db *gorm.DB, userID uuid.UUID, name string, excludeDeckID *uuid.UUID) (bool, error) {
	logger := middleware.GetLogger(ctx)
	var count int64
	query := db.WithContext(ctx).
		Model(&model.Deck{}).
		Where("user_id = ? AND name = ?", userID, name)
	if excludeDeckID != nil {
		query = query.Where("deck_id != ?", *excludeDeckID)
	}
	if err := query.Count(&count).Error; err != nil {
		logger.Error("Error checking deck name existence in DB",
			"error", err,
			"user_id", userID.String(),
			"name", name,
		)
		return false, fmt.Errorf("gormDeckRepository.CheckNameExists: %w", err)
	}
	return count > 0, nil
}

func (r *gormDeckRepository) SetLastStudied(ctx context.Context, tx *gorm.DB, deckID uuid.UUID, studiedAt time.Time) error {
	logger := middleware.GetLogger(ctx)
	result := tx.WithContext(ctx).
		Model(&model.Deck{}).
		Where("deck_id = ?", deckID).
		Update("last_studied_at", studiedAt)
	if result.Error != nil {
		logger.Error("Error setting deck last studied in DB",
			"error", result.Error,
			"deck_id", deckID.String(),
		)
		return fmt.Errorf("gormDeckRepository.SetLastStudied: %w", result.Error)
	}
	return nil
}
