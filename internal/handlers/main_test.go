// internal/handlers/main_test.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"go_5_flash_keep/internal/config"
	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/repository"
	"go_5_flash_keep/internal/service"
	"go_5_flash_keep/internal/synccache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBCounter atomic.Int64

// handlerTestEnv は実サービス＋インメモリDBを束ねたハンドラテスト用の足場
type handlerTestEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	stats    service.StatsService
	study    service.StudyService
	sync     service.SyncService
	statsRep repository.StatsRepository
}

func newHandlerTestEnv(t *testing.T) *handlerTestEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:handlertest%d?mode=memory&cache=shared", testDBCounter.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "failed to open in-memory sqlite")
	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Deck{},
		&model.Card{},
		&model.CardProgress{},
		&model.StudySession{},
		&model.UserStatistics{},
		&model.DailyStudyStats{},
	))

	cfg := &config.Config{}
	cfg.Stats.AccuracyPeriodDays = 7
	cfg.Stats.TopDeckLimit = 5
	cfg.Sync.MaxBatchSessions = 3 // エンベロープ検証をテストしやすい小さめの値
	cfg.Sync.MaxSessionAgeDays = 30
	cfg.Sync.CacheCapacity = 100
	cfg.Sync.CacheTTLMinutes = 60

	deckRepo := repository.NewGormDeckRepository()
	cardRepo := repository.NewGormCardRepository()
	progRepo := repository.NewGormProgressRepository()
	sessionRepo := repository.NewGormSessionRepository()
	statsRepo := repository.NewGormStatsRepository()
	cache := synccache.NewMemoryCache(cfg.Sync.CacheCapacity, time.Duration(cfg.Sync.CacheTTLMinutes)*time.Minute)

	return &handlerTestEnv{
		db:       db,
		cfg:      cfg,
		stats:    service.NewStatsService(db, statsRepo, progRepo, cardRepo, cfg),
		study:    service.NewStudyService(db, deckRepo, cardRepo, progRepo, sessionRepo, statsRepo),
		sync:     service.NewSyncService(db, deckRepo, cardRepo, progRepo, sessionRepo, statsRepo, cache, cfg),
		statsRep: statsRepo,
	}
}

func (e *handlerTestEnv) createUser(t *testing.T) *model.User {
	t.Helper()
	user := &model.User{
		UserID:       uuid.New(),
		Name:         "tester",
		Email:        fmt.Sprintf("tester-%s@example.com", uuid.NewString()[:8]),
		PasswordHash: "x",
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *handlerTestEnv) createDeck(t *testing.T, userID uuid.UUID, name string) *model.Deck {
	t.Helper()
	deck := &model.Deck{DeckID: uuid.New(), UserID: userID, Name: name}
	require.NoError(t, e.db.Create(deck).Error)
	return deck
}

func (e *handlerTestEnv) createCard(t *testing.T, deckID uuid.UUID, front, back string) *model.Card {
	t.Helper()
	card := &model.Card{CardID: uuid.New(), DeckID: deckID, Front: front, Back: back}
	require.NoError(t, e.db.Create(card).Error)
	return card
}

// withUser は認証ミドルウェア通過後と同じ形でユーザーIDをコンテキストへ詰めます
func withUser(r *http.Request, userID uuid.UUID) *http.Request {
	ctx := context.WithValue(r.Context(), model.UserIDKey, userID)
	return r.WithContext(ctx)
}
