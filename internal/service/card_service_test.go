// internal/service/card_service_test.go
package service

import (
	"context"
	"testing"

	"go_5_flash_keep/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCardService(t *testing.T) (CardService, *testDeps) {
	t.Helper()
	deps := newTestDeps(t)
	return NewCardService(deps.db, deps.deckRepo, deps.cardRepo), deps
}

func Test_cardService_CreateCard(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: カードが作成される", func(t *testing.T) {
		svc, deps := newTestCardService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		card, err := svc.CreateCard(ctx, user.UserID, deck.DeckID, &model.CreateCardRequest{
			Front: "apple",
			Back:  "りんご",
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, card.CardID)
		assert.Equal(t, deck.DeckID, card.DeckID)
	})

	t.Run("異常系: 他人のデッキへはErrNotFound", func(t *testing.T) {
		svc, deps := newTestCardService(t)
		owner := createTestUser(t, deps.db)
		other := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, owner.UserID, "deck")

		_, err := svc.CreateCard(ctx, other.UserID, deck.DeckID, &model.CreateCardRequest{
			Front: "f", Back: "b",
		})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func Test_cardService_ListCards(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 作成順に返る", func(t *testing.T) {
		svc, deps := newTestCardService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		first, err := svc.CreateCard(ctx, user.UserID, deck.DeckID, &model.CreateCardRequest{Front: "1", Back: "1"})
		require.NoError(t, err)
		second, err := svc.CreateCard(ctx, user.UserID, deck.DeckID, &model.CreateCardRequest{Front: "2", Back: "2"})
		require.NoError(t, err)

		cards, err := svc.ListCards(ctx, user.UserID, deck.DeckID)
		require.NoError(t, err)
		require.Len(t, cards, 2)
		assert.Equal(t, first.CardID, cards[0].CardID)
		assert.Equal(t, second.CardID, cards[1].CardID)
	})
}

func Test_cardService_UpdateCard(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 指定した面だけが更新される", func(t *testing.T) {
		svc, deps := newTestCardService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")
		card := createTestCard(t, deps.db, deck.DeckID, "front", "back")

		front := "new front"
		updated, err := svc.UpdateCard(ctx, user.UserID, card.CardID, &model.UpdateCardRequest{Front: &front})
		require.NoError(t, err)
		assert.Equal(t, "new front", updated.Front)
		assert.Equal(t, "back", updated.Back)
	})

	t.Run("異常系: 他人のカードはErrNotFound", func(t *testing.T) {
		svc, deps := newTestCardService(t)
		owner := createTestUser(t, deps.db)
		other := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, owner.UserID, "deck")
		card := createTestCard(t, deps.db, deck.DeckID, "f", "b")

		back := "x"
		_, err := svc.UpdateCard(ctx, other.UserID, card.CardID, &model.UpdateCardRequest{Back: &back})
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func Test_cardService_DeleteCard(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 削除後は取得できず、進捗の母数からも外れる", func(t *testing.T) {
		svc, deps := newTestCardService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")
		card := createTestCard(t, deps.db, deck.DeckID, "f", "b")

		require.NoError(t, svc.DeleteCard(ctx, user.UserID, card.CardID))

		_, err := svc.GetCard(ctx, user.UserID, card.CardID)
		assert.ErrorIs(t, err, model.ErrNotFound)

		total, err := deps.cardRepo.CountByUser(ctx, deps.db, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}
