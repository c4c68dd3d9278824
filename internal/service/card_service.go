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

type CardService interface {
	CreateCard(ctx context.Context, userID, deckID uuid.UUID, req *model.CreateCardRequest) (*model.Card, error)
	GetCard(ctx context.Context, userID, cardID uuid.UUID) (*model.Card, error)
	ListCards(ctx context.Context, userID, deckID uuid.UUID) ([]*model.Card, error)
	UpdateCard(ctx context.Context, userID, cardID uuid.UUID, req *model.UpdateCardRequest) (*model.Card, error)
	DeleteCard(ctx context.Context, userID, cardID uuid.UUID) error
}

type cardService struct {
	db       *gorm.DB
	deckRepo repository.DeckRepository
	cardRepo repository.CardRepository
}

func NewCardService(db *gorm.DB, deckRepo repository.DeckRepository, cardRepo repository.CardRepository) CardService {
	return &cardService{
		db:       db,
		deckRepo: deckRepo,
		cardRepo: cardRepo,
	}
}

func (s *cardService) CreateCard(ctx context.Context, userID, deckID uuid.UUID, req *model.CreateCardRequest) (*model.Card, error) {
	logger := middleware.GetLogger(ctx)
	var createdCard *model.Card

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. デッキの所有確認
		if _, err := s.deckRepo.FindByID(ctx, tx, userID, deckID); err != nil {
			return err // model.ErrNotFound or wrapped error
		}

		// 2. カードを作成
		card := &model.Card{
			CardID: uuid.New(),
			DeckID: deckID,
			Front:  req.Front,
			Back:   req.Back,
		}
		if err := s.cardRepo.Create(ctx, tx, card); err != nil {
			logger.Error("Error creating card in transaction", "error", err)
			return model.ErrInternalServer
		}

		createdCard = card
		return nil // コミット
	})

	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		logger.Error("Transaction failed for CreateCard", "error", err)
		return nil, model.ErrInternalServer
	}

	return createdCard, nil
}

func (s *cardService) GetCard(ctx context.Context, userID, cardID uuid.UUID) (*model.Card, error) {
	return s.cardRepo.FindByID(ctx, s.db, userID, cardID)
}

func (s *cardService) ListCards(ctx context.Context, userID, deckID uuid.UUID) ([]*model.Card, error) {
	logger := middleware.GetLogger(ctx)

	// デッキの所有確認をしてから一覧を返す
	if _, err := s.deckRepo.FindByID(ctx, s.db, userID, deckID); err != nil {
		return nil, err
	}

	cards, err := s.cardRepo.FindByDeck(ctx, s.db, deckID)
	if err != nil {
		logger.Error("Error listing cards", "error", err)
		return nil, model.ErrInternalServer
	}
	return cards, nil
}

func (s *cardService) UpdateCard(ctx context.Context, userID, cardID uuid.UUID, req *model.UpdateCardRequest) (*model.Card, error) {
	logger := middleware.GetLogger(ctx)
	var updatedCard *model.Card

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. 存在確認（所有者チェック込み）
		card, err := s.cardRepo.FindByID(ctx, tx, userID, cardID)
		if err != nil {
			return err
		}

		// 2. 更新内容の準備
		updates := make(map[string]interface{})
		if req.Front != nil && *req.Front != "" && *req.Front != card.Front {
			updates["front"] = *req.Front
		}
		if req.Back != nil && *req.Back != "" && *req.Back != card.Back {
			updates["back"] = *req.Back
		}

		// 3. 更新実行 (更新内容がある場合のみ)
		if len(updates) > 0 {
			if err := s.cardRepo.Update(ctx, tx, cardID, updates); err != nil {
				logger.Error("Error updating card in transaction", "error", err)
				if errors.Is(err, model.ErrNotFound) {
					return model.ErrNotFound
				}
				return model.ErrInternalServer
			}
		}

		updatedCard, err = s.cardRepo.FindByID(ctx, tx, userID, cardID)
		if err != nil {
			logger.Error("Error fetching updated card in transaction", "error", err)
			return model.ErrInternalServer
		}

		return nil // コミット
	})

	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		logger.Error("Transaction failed for UpdateCard", "error", err)
		return nil, model.ErrInternalServer
	}

	return updatedCard, nil
}

func (s *cardService) DeleteCard(ctx context.Context, userID, cardID uuid.UUID) error {
	logger := middleware.GetLogger(ctx)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 所有者チェック込みの存在確認
		if _, err := s.cardRepo.FindByID(ctx, tx, userID, cardID); err != nil {
			return err
		}
		return s.cardRepo.Delete(ctx, tx, cardID)
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return err
		}
		logger.Error("Transaction failed for DeleteCard", "error", err)
		return model.ErrInternalServer
	}
	return nil
}
