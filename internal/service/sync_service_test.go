// internal/service/sync_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/synccache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSyncService(t *testing.T) (SyncService, *testDeps) {
	t.Helper()
	deps := newTestDeps(t)
	cache := synccache.NewMemoryCache(deps.cfg.Sync.CacheCapacity, time.Duration(deps.cfg.Sync.CacheTTLMinutes)*time.Minute)
	svc := NewSyncService(deps.db, deps.deckRepo, deps.cardRepo, deps.progRepo, deps.sessionRepo, deps.statsRepo, cache, deps.cfg)
	return svc, deps
}

func syncSession(deckID uuid.UUID, clientSessionID string, reviews ...model.SyncReviewInput) model.SyncSessionInput {
	completed := time.Now().UTC().Add(-time.Minute)
	return model.SyncSessionInput{
		ClientSessionID: clientSessionID,
		DeckID:          deckID,
		SessionType:     "review",
		StartedAt:       completed.Add(-5 * time.Minute),
		CompletedAt:     completed,
		Reviews:         reviews,
	}
}

func Test_syncService_SyncBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: セッションが取り込まれ進捗と集計に反映される", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")
		card := createTestCard(t, deps.db, deck.DeckID, "f", "b")

		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{
				syncSession(deck.DeckID, "cs-1",
					model.SyncReviewInput{CardID: card.CardID, Rating: "easy", ReviewedAt: time.Now().UTC().Add(-2 * time.Minute)},
				),
			},
		})
		require.NoError(t, err)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, model.SyncStatusSynced, resp.Results[0].Status)
		assert.Equal(t, 1, resp.Results[0].ReviewsSynced)
		require.NotNil(t, resp.Results[0].ServerSessionID)
		assert.Equal(t, model.SyncSummary{Total: 1, Synced: 1}, resp.Summary)

		progress, err := deps.progRepo.FindByCard(ctx, deps.db, user.UserID, card.CardID)
		require.NoError(t, err)
		assert.Equal(t, 1, progress.TotalReviews)

		stats, err := deps.statsRepo.FindUserStatistics(ctx, deps.db, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalSessions)
		assert.Equal(t, 1, stats.TotalCardsStudied)

		session, err := deps.sessionRepo.FindByID(ctx, deps.db, user.UserID, *resp.Results[0].ServerSessionID)
		require.NoError(t, err)
		assert.Equal(t, 1, session.CardsStudied)
		assert.Equal(t, 1, session.EasyCount)
		// 5分のセッション
		assert.Equal(t, 5, session.DurationMinutes)
	})

	t.Run("正常系: 同じセッションの再送はSKIPPEDになり二重計上されない", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")
		card := createTestCard(t, deps.db, deck.DeckID, "f", "b")

		req := &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{
				syncSession(deck.DeckID, "cs-1",
					model.SyncReviewInput{CardID: card.CardID, Rating: "easy", ReviewedAt: time.Now().UTC().Add(-2 * time.Minute)},
				),
			},
		}

		first, err := svc.SyncBatch(ctx, user.UserID, req)
		require.NoError(t, err)
		require.Equal(t, model.SyncStatusSynced, first.Results[0].Status)

		second, err := svc.SyncBatch(ctx, user.UserID, req)
		require.NoError(t, err)
		require.Equal(t, model.SyncStatusSkipped, second.Results[0].Status)
		// 初回に採番されたサーバー側IDが返る
		require.NotNil(t, second.Results[0].ServerSessionID)
		assert.Equal(t, *first.Results[0].ServerSessionID, *second.Results[0].ServerSessionID)
		assert.Equal(t, model.SyncSummary{Total: 1, Skipped: 1}, second.Summary)

		stats, err := deps.statsRepo.FindUserStatistics(ctx, deps.db, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalSessions)

		progress, err := deps.progRepo.FindByCard(ctx, deps.db, user.UserID, card.CardID)
		require.NoError(t, err)
		assert.Equal(t, 1, progress.TotalReviews)
	})

	t.Run("正常系: 同一バッチ内の重複セッションもSKIPPEDになり二重計上されない", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")
		card := createTestCard(t, deps.db, deck.DeckID, "f", "b")

		session := syncSession(deck.DeckID, "cs-dup",
			model.SyncReviewInput{CardID: card.CardID, Rating: "easy", ReviewedAt: time.Now().UTC().Add(-2 * time.Minute)},
		)

		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{session, session},
		})
		require.NoError(t, err)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, model.SyncStatusSynced, resp.Results[0].Status)
		assert.Equal(t, model.SyncStatusSkipped, resp.Results[1].Status)
		// 2件目には1件目で採番されたサーバー側IDが返る
		require.NotNil(t, resp.Results[1].ServerSessionID)
		assert.Equal(t, *resp.Results[0].ServerSessionID, *resp.Results[1].ServerSessionID)
		assert.Equal(t, model.SyncSummary{Total: 2, Synced: 1, Skipped: 1}, resp.Summary)

		stats, err := deps.statsRepo.FindUserStatistics(ctx, deps.db, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalSessions)

		progress, err := deps.progRepo.FindByCard(ctx, deps.db, user.UserID, card.CardID)
		require.NoError(t, err)
		assert.Equal(t, 1, progress.TotalReviews)
	})

	t.Run("正常系: 別クライアントの同じセッションIDは別物として扱う", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		session := syncSession(deck.DeckID, "cs-1")

		resp1, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{ClientID: "device-1", Sessions: []model.SyncSessionInput{session}})
		require.NoError(t, err)
		resp2, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{ClientID: "device-2", Sessions: []model.SyncSessionInput{session}})
		require.NoError(t, err)

		assert.Equal(t, model.SyncStatusSynced, resp1.Results[0].Status)
		assert.Equal(t, model.SyncStatusSynced, resp2.Results[0].Status)
	})

	t.Run("正常系: 一部のセッションが失敗しても他は取り込まれる", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		valid := syncSession(deck.DeckID, "cs-ok")
		unknownDeck := syncSession(uuid.New(), "cs-bad")

		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{valid, unknownDeck},
		})
		require.NoError(t, err)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, model.SyncStatusSynced, resp.Results[0].Status)
		assert.Equal(t, model.SyncStatusFailed, resp.Results[1].Status)
		assert.Equal(t, "deck not found", resp.Results[1].Error)
		assert.Equal(t, model.SyncSummary{Total: 2, Synced: 1, Failed: 1}, resp.Summary)
	})

	t.Run("異常系: 未来のタイムスタンプはFAILED", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		session := syncSession(deck.DeckID, "cs-future")
		session.CompletedAt = time.Now().UTC().Add(time.Hour)

		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1", Sessions: []model.SyncSessionInput{session},
		})
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusFailed, resp.Results[0].Status)
		assert.Contains(t, resp.Results[0].Error, "future")
	})

	t.Run("異常系: 保持期間より古いセッションはFAILED", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		session := syncSession(deck.DeckID, "cs-stale")
		session.StartedAt = time.Now().UTC().AddDate(0, 0, -(deps.cfg.Sync.MaxSessionAgeDays + 1))
		session.CompletedAt = session.StartedAt.Add(5 * time.Minute)

		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1", Sessions: []model.SyncSessionInput{session},
		})
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusFailed, resp.Results[0].Status)
		assert.Contains(t, resp.Results[0].Error, "older than 30 days")
	})

	t.Run("異常系: 未知のセッション種別はFAILED", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		session := syncSession(deck.DeckID, "cs-type")
		session.SessionType = "cram"

		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1", Sessions: []model.SyncSessionInput{session},
		})
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusFailed, resp.Results[0].Status)
		assert.Contains(t, resp.Results[0].Error, "unknown session type")
	})

	t.Run("正常系: 削除済みカードへのレビューは黙って除外される", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")
		alive := createTestCard(t, deps.db, deck.DeckID, "f", "b")
		deleted := createTestCard(t, deps.db, deck.DeckID, "d", "d")
		require.NoError(t, deps.db.Delete(&model.Card{}, "card_id = ?", deleted.CardID).Error)

		reviewedAt := time.Now().UTC().Add(-2 * time.Minute)
		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{
				syncSession(deck.DeckID, "cs-1",
					model.SyncReviewInput{CardID: alive.CardID, Rating: "easy", ReviewedAt: reviewedAt},
					model.SyncReviewInput{CardID: deleted.CardID, Rating: "hard", ReviewedAt: reviewedAt},
				),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusSynced, resp.Results[0].Status)
		assert.Equal(t, 1, resp.Results[0].ReviewsSynced)

		// 集計は実際に適用されたレビュー分だけ
		session, err := deps.sessionRepo.FindByID(ctx, deps.db, user.UserID, *resp.Results[0].ServerSessionID)
		require.NoError(t, err)
		assert.Equal(t, 1, session.CardsStudied)
		assert.Equal(t, 1, session.EasyCount)
		assert.Equal(t, 0, session.HardCount)
	})

	t.Run("異常系: レビューを送ってきたのに1件も適用できなければFAILED", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{
				syncSession(deck.DeckID, "cs-1",
					model.SyncReviewInput{CardID: uuid.New(), Rating: "easy", ReviewedAt: time.Now().UTC()},
				),
			},
		})
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusFailed, resp.Results[0].Status)
		assert.Equal(t, "no valid reviews", resp.Results[0].Error)
	})

	t.Run("正常系: レビュー0件のセッションも完了記録として受け付ける", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{syncSession(deck.DeckID, "cs-empty")},
		})
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusSynced, resp.Results[0].Status)
		assert.Equal(t, 0, resp.Results[0].ReviewsSynced)

		stats, err := deps.statsRepo.FindUserStatistics(ctx, deps.db, user.UserID)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalSessions)
	})

	t.Run("正常系: FAILEDになったセッションは再送すれば取り込める", func(t *testing.T) {
		svc, deps := newTestSyncService(t)
		user := createTestUser(t, deps.db)
		deck := createTestDeck(t, deps.db, user.UserID, "deck")

		bad := syncSession(deck.DeckID, "cs-retry")
		bad.SessionType = "cram"
		resp, err := svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1", Sessions: []model.SyncSessionInput{bad},
		})
		require.NoError(t, err)
		require.Equal(t, model.SyncStatusFailed, resp.Results[0].Status)

		// FAILED は冪等性キャッシュに載らないので、修正後の再送は SYNCED になる
		good := syncSession(deck.DeckID, "cs-retry")
		resp, err = svc.SyncBatch(ctx, user.UserID, &model.SyncRequest{
			ClientID: "device-1", Sessions: []model.SyncSessionInput{good},
		})
		require.NoError(t, err)
		assert.Equal(t, model.SyncStatusSynced, resp.Results[0].Status)
	})
}
