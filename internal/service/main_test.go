// internal/service/main_test.go
package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"go_5_flash_keep/internal/config"
	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/repository"

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
	dsn := fmt.Sprintf("file:svctest%d?mode=memory&cache=shared", testDBCounter.Add(1))
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
	)
	require.NoError(t, err, "failed to migrate test schema")
	return db
}

// testDeps は実リポジトリ＋インメモリDBを束ねたサービステスト用の足場
type testDeps struct {
	db          *gorm.DB
	deckRepo    repository.DeckRepository
	cardRepo    repository.CardRepository
	progRepo    repository.ProgressRepository
	sessionRepo repository.SessionRepository
	statsRepo   repository.StatsRepository
	cfg         *config.Config
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	return &testDeps{
		db:          setupTestDB(t),
		deckRepo:    repository.NewGormDeckRepository(),
		cardRepo:    repository.NewGormCardRepository(),
		progRepo:    repository.NewGormProgressRepository(),
		sessionRepo: repository.NewGormSessionRepository(),
		statsRepo:   repository.NewGormStatsRepository(),
		cfg:         testConfig(),
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Stats.AccuracyPeriodDays = 7
	cfg.Stats.TopDeckLimit = 5
	cfg.Sync.MaxBatchSessions = 50
	cfg.Sync.MaxSessionAgeDays = 30
	cfg.Sync.CacheCapacity = 100
	cfg.Sync.CacheTTLMinutes = 60
	return cfg
}

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
