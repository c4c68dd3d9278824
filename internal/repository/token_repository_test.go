// internal/repository/token_repository_test.go
package repository

import (
	"context"
	"testing"
	"time"

	"go_5_flash_keep/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormTokenRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: 確認トークンを作成して取得・削除できる", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormTokenRepository()
		user := createTestUser(t, db)

		token := &model.UserVerificationToken{
			Token:     uuid.NewString(),
			UserID:    user.UserID,
			ExpiresAt: time.Now().Add(24 * time.Hour),
		}
		require.NoError(t, repo.CreateVerificationToken(ctx, db, token))

		found, err := repo.FindVerificationToken(ctx, db, token.Token)
		require.NoError(t, err)
		assert.Equal(t, user.UserID, found.UserID)

		require.NoError(t, repo.DeleteVerificationToken(ctx, db, token.Token))
		_, err = repo.FindVerificationToken(ctx, db, token.Token)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("正常系: パスワード再設定トークンを作成して取得・削除できる", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormTokenRepository()
		user := createTestUser(t, db)

		token := &model.PasswordResetToken{
			Token:     uuid.NewString(),
			UserID:    user.UserID,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		require.NoError(t, repo.CreatePasswordResetToken(ctx, db, token))

		found, err := repo.FindPasswordResetToken(ctx, db, token.Token)
		require.NoError(t, err)
		assert.Equal(t, user.UserID, found.UserID)

		require.NoError(t, repo.DeletePasswordResetToken(ctx, db, token.Token))
		_, err = repo.FindPasswordResetToken(ctx, db, token.Token)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("正常系: 確認トークンと再設定トークンは別テーブルに保存される", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormTokenRepository()
		user := createTestUser(t, db)

		// 同じトークン文字列でも種別が違えば互いに見えない
		raw := uuid.NewString()
		require.NoError(t, repo.CreateVerificationToken(ctx, db, &model.UserVerificationToken{
			Token: raw, UserID: user.UserID, ExpiresAt: time.Now().Add(time.Hour),
		}))

		_, err := repo.FindPasswordResetToken(ctx, db, raw)
		assert.ErrorIs(t, err, model.ErrNotFound)

		require.NoError(t, repo.DeletePasswordResetToken(ctx, db, raw))
		found, err := repo.FindVerificationToken(ctx, db, raw)
		require.NoError(t, err)
		assert.Equal(t, raw, found.Token)
	})

	t.Run("異常系: 存在しないトークンの削除はエラーにならない", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewGormTokenRepository()

		assert.NoError(t, repo.DeleteVerificationToken(ctx, db, "missing"))
	})
}
