// internal/repository/main_test.go
package repository

import (
	"fmt"
	"sync/atomic"
	"testing"

	"go_5_flash_keep/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

// setupTestDB はテストごとに独立したインメモリDBを用意します
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repotest%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // テスト中はログを抑制
	})
	require.NoError(t, err, "failed to open in-memory sqlite")

	err = db.AutoMigrate(
		&model.User{},
		&model.Deck{},
		&model.Card{},
		&model.CardProgress{},
		&model.StudySession{},
		&model.UserStatistics{},
		&model.DailyStudyStats{},
		&model.UserVerificationToken{},
		&model.PasswordResetToken{},
	)
	require.NoError(t, err, "failed to migrate test schema")
	return db
}

// createTestUser はテスト用のユーザー行を作成します
func createTestUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	user := &model.User{
		UserID:       uuid.New(),
		Name:         "tester",
		Email:        fmt.Sprintf("tester-%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestDeck(t *testing.T, db *gorm.DB, userID uuid.UUID, name string) *model.Deck {
	t.Helper()
	deck := &model.Deck{
		DeckID: uuid.New(),
		UserID: userID,
		Name:   name,
	}
	require.NoError(t, db.Create(deck).Error)
	return deck
}

func createTestCard(t *testing.T, db *gorm.DB, deckID uuid.UUID, front, back string) *model.Card {
	t.Helper()
	card := &model.Card{
		CardID: uuid.New(),
		DeckID: deckID,
		Front:  front,
		Back:   back,
	}
	require.NoError(t, db.Create(card).Error)
	return card
}
