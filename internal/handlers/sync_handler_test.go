// internal/handlers/sync_handler_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go_5_flash_keep/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postSyncRequest(t *testing.T, userID uuid.UUID, body *model.SyncRequest) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sync/study-progress", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return withUser(req, userID)
}

func testSyncSession(deckID uuid.UUID, clientSessionID string) model.SyncSessionInput {
	completed := time.Now().UTC().Add(-time.Minute)
	return model.SyncSessionInput{
		ClientSessionID: clientSessionID,
		DeckID:          deckID,
		SessionType:     "review",
		StartedAt:       completed.Add(-5 * time.Minute),
		CompletedAt:     completed,
	}
}

func TestSyncHandler_PostSync(t *testing.T) {
	t.Run("正常系: バッチは一部が失敗しても常に200で結果を返す", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		user := env.createUser(t)
		deck := env.createDeck(t, user.UserID, "deck")

		handler := NewSyncHandler(env.sync, env.cfg, nil)
		rec := httptest.NewRecorder()
		handler.PostSync(rec, postSyncRequest(t, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{
				testSyncSession(deck.DeckID, "cs-ok"),
				testSyncSession(uuid.New(), "cs-unknown-deck"),
			},
		}))

		require.Equal(t, http.StatusOK, rec.Code)
		var resp model.SyncResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 2)
		assert.Equal(t, model.SyncStatusSynced, resp.Results[0].Status)
		assert.Equal(t, model.SyncStatusFailed, resp.Results[1].Status)
		assert.Equal(t, model.SyncSummary{Total: 2, Synced: 1, Failed: 1}, resp.Summary)
		assert.False(t, resp.SyncedAt.IsZero())
	})

	t.Run("異常系: 空のセッション配列はEMPTY_SESSIONS", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		user := env.createUser(t)

		handler := NewSyncHandler(env.sync, env.cfg, nil)
		rec := httptest.NewRecorder()
		handler.PostSync(rec, postSyncRequest(t, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{},
		}))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp model.APIErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "EMPTY_SESSIONS", resp.Error.Code)
	})

	t.Run("異常系: 上限を超えるバッチはTOO_MANY_SESSIONS", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		user := env.createUser(t)
		deck := env.createDeck(t, user.UserID, "deck")

		sessions := make([]model.SyncSessionInput, 0, env.cfg.Sync.MaxBatchSessions+1)
		for i := 0; i <= env.cfg.Sync.MaxBatchSessions; i++ {
			sessions = append(sessions, testSyncSession(deck.DeckID, uuid.NewString()))
		}

		handler := NewSyncHandler(env.sync, env.cfg, nil)
		rec := httptest.NewRecorder()
		handler.PostSync(rec, postSyncRequest(t, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: sessions,
		}))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp model.APIErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "TOO_MANY_SESSIONS", resp.Error.Code)
	})

	t.Run("異常系: client_idが無ければVALIDATION_ERROR", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		user := env.createUser(t)
		deck := env.createDeck(t, user.UserID, "deck")

		handler := NewSyncHandler(env.sync, env.cfg, nil)
		rec := httptest.NewRecorder()
		handler.PostSync(rec, postSyncRequest(t, user.UserID, &model.SyncRequest{
			Sessions: []model.SyncSessionInput{testSyncSession(deck.DeckID, "cs-1")},
		}))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp model.APIErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("異常系: セッションの必須項目が欠けていればVALIDATION_ERROR", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		user := env.createUser(t)
		deck := env.createDeck(t, user.UserID, "deck")

		// clientSessionId が空のセッションはアイテム検証の前に弾く
		session := testSyncSession(deck.DeckID, "")

		handler := NewSyncHandler(env.sync, env.cfg, nil)
		rec := httptest.NewRecorder()
		handler.PostSync(rec, postSyncRequest(t, user.UserID, &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{session},
		}))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		var resp model.APIErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	})

	t.Run("正常系: 再送バッチはSKIPPEDになる", func(t *testing.T) {
		env := newHandlerTestEnv(t)
		user := env.createUser(t)
		deck := env.createDeck(t, user.UserID, "deck")

		body := &model.SyncRequest{
			ClientID: "device-1",
			Sessions: []model.SyncSessionInput{testSyncSession(deck.DeckID, "cs-1")},
		}

		handler := NewSyncHandler(env.sync, env.cfg, nil)
		rec := httptest.NewRecorder()
		handler.PostSync(rec, postSyncRequest(t, user.UserID, body))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		handler.PostSync(rec, postSyncRequest(t, user.UserID, body))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp model.SyncResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, model.SyncSummary{Total: 1, Skipped: 1}, resp.Summary)
	})
}
