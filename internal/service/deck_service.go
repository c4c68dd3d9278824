package service

import (
	"context"
	"errors"

	"go_5_flash_keep/internal/middleware"
	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeckService interface {
	CreateDeck(ctx context.Context, userID uuid.UUID, req *model.CreateDeckRequest) (*model.Deck, error)
	GetDeck(ctx context.Context, userID, deckID uuid.UUID) (*model.Deck, error)
	ListDecks(ctx context.Context, userID uuid.UUID) ([]*model.Deck, error)
	UpdateDeck(ctx context.Context, userID, deckID uuid.UUID, req *model.UpdateDeckRequest) (*model.Deck, error)
	DeleteDeck(ctx context.Context, userID, deckID uuid.UUID) error
}

type deckService struct {
	db       *gorm.DB // トランザクション用にDB接続を持つ
	deckRepo repository.DeckRepository
}

func NewDeckService(db *gorm.DB, deckRepo repository.DeckRepository) DeckService {
	return &deckService{
		db:       db,
		deckRepo: deckRepo,
	}
}

func (s *deckService) CreateDeck(ctx context.Context, userID uuid.UUID, req *model.CreateDeckRequest) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var createdDeck *model.Deck

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 同名デッキの重複チェック
		exists, err := s.deckRepo.CheckNameExists(ctx, tx, userID, req.Name, nil)
		if err != nil {
			logger.Error("Error checking deck name existence in transaction", "error", err)
			return model.ErrInternalServer
		}
		if exists {
			return model.ErrConflict
		}

		// 2. デッキを作成
		deck := &model.Deck{
			DeckID:      uuid.New(),
			UserID:      userID,
			Name:        req.Name,
			Description: req.Description,
		}
		if err := s.deckRepo.Create(ctx, tx, deck); err != nil {
			logger.Error("Error creating deck in transaction", "error", err)
			return model.ErrInternalServer
		}

		createdDeck = deck
		return nil // コミット
	})

	if err != nil {
		if errors.Is(err, model.ErrConflict) {
			return nil, err
		}
		logger.Error("Transaction failed for CreateDeck", "error", err)
		return nil, model.ErrInternalServer
	}

	return createdDeck, nil
}

func (s *deckService) GetDeck(ctx context.Context, userID, deckID uuid.UUID) (*model.Deck, error) {
	// エラーはリポジトリで変換済み
	return s.deckRepo.FindByID(ctx, s.db, userID, deckID)
}

func (s *deckService) ListDecks(ctx context.Context, userID uuid.UUID) ([]*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	decks, err := s.deckRepo.FindByUser(ctx, s.db, userID)
	if err != nil {
		logger.Error("Error listing decks", "error", err)
		return nil, model.ErrInternalServer
	}
	return decks, nil
}

func (s *deckService) UpdateDeck(ctx context.Context, userID, deckID uuid.UUID, req *model.UpdateDeckRequest) (*model.Deck, error) {
	logger := middleware.GetLogger(ctx)
	var updatedDeck *model.Deck

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 存在確認
		deck, err := s.deckRepo.FindByID(ctx, tx, userID, deckID)
		if err != nil {
			return err // model.ErrNotFound or wrapped error
		}

		// 2. 更新内容の準備と重複チェック
		updates := make(map[string]interface{})
		if req.Name != nil && *req.Name != "" && *req.Name != deck.Name {
			exists, err := s.deckRepo.CheckNameExists(ctx, tx, userID, *req.Name, &deckID)
			if err != nil {
				logger.Error("Error checking deck name existence during update", "error", err)
				return model.ErrInternalServer
			}
			if exists {
				return model.ErrConflict
			}
			updates["name"] = *req.Name
		}
		if req.Description != nil && *req.Description != deck.Description {
			updates["description"] = *req.Description
		}

		// 3. 更新実行 (更新内容がある場合のみ)
		if len(updates) > 0 {
			if err := s.deckRepo.Update(ctx, tx, userID, deckID, updates); err != nil {
				logger.Error("Error updating deck in transaction", "error", err)
				if errors.Is(err, model.ErrNotFound) {
					return model.ErrNotFound
				}
				return model.ErrInternalServer
			}
		}

		updatedDeck, err = s.deckRepo.FindByID(ctx, tx, userID, deckID)
		if err != nil {
			logger.Error("Error fetching updated deck in transaction", "error", err)
			return model.ErrInternalServer
		}

		return nil // コミット
	})

	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrConflict) {
			return nil, err
		}
		logger.Error("Transaction failed for UpdateDeck", "error", err)
		return nil, model.ErrInternalServer
	}

	return updatedDeck, nil
}

func (s *deckService) DeleteDeck(ctx context.Context, userID, deckID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 所有確認込みの削除。配下のカードもリポジトリ側で論理削除される。
		return s.deckRepo.Delete(ctx, tx, userID, deckID)
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		logger.Error("Transaction failed for DeleteDeck", "error", err)
		return model.ErrInternalServer
	}
	return nil
}
