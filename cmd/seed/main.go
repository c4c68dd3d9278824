// cmd/seed/main.go
//
// ローカル環境にデモデータを投入するツール。
//
//	APP_ENV=dev go run ./cmd/seed
//
// デモユーザー (demo@example.com / password123) と1つのデッキ、
// 数枚のカード、数日分の学習履歴を作成します。
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go_5_flash_keep/internal/config"
	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/repository"
	"go_5_flash_keep/internal/service"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := config.LoadConfig("./configs"); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := repository.NewDB(config.Cfg.Database.URL, logger)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.UserVerificationToken{},
		&model.PasswordResetToken{},
		&model.Deck{},
		&model.Card{},
		&model.CardProgress{},
		&model.StudySession{},
		&model.UserStatistics{},
		&model.DailyStudyStats{},
	); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &model.User{
		UserID:       uuid.New(),
		Name:         "demo",
		Email:        "demo@example.com",
		PasswordHash: string(hashed),
		IsActive:     true,
	}

	deck := &model.Deck{
		DeckID:      uuid.New(),
		UserID:      user.UserID,
		Name:        "基本英単語",
		Description: "デモ用のデッキ",
	}

	cards := []*model.Card{
		{CardID: uuid.New(), DeckID: deck.DeckID, Front: "apple", Back: "りんご"},
		{CardID: uuid.New(), DeckID: deck.DeckID, Front: "river", Back: "川"},
		{CardID: uuid.New(), DeckID: deck.DeckID, Front: "mountain", Back: "山"},
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.User
		if err := tx.Where("email = ?", user.Email).First(&existing).Error; err == nil {
			log.Println("Demo user already exists, skipping seed.")
			return nil
		}

		if err := tx.Create(user).Error; err != nil {
			return err
		}
		if err := tx.Create(deck).Error; err != nil {
			return err
		}
		for _, c := range cards {
			if err := tx.Create(c).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to seed base data: %v", err)
	}

	// 直近3日分の学習履歴を同期APIと同じ経路で投入し、ストリークと集計を作る
	deckRepo := repository.NewGormDeckRepository()
	cardRepo := repository.NewGormCardRepository()
	progressRepo := repository.NewGormProgressRepository()
	sessionRepo := repository.NewGormSessionRepository()
	statsRepo := repository.NewGormStatsRepository()

	studyService := service.NewStudyService(db, deckRepo, cardRepo, progressRepo, sessionRepo, statsRepo)

	ratings := []string{"easy", "hard", "again"}
	for i, c := range cards {
		req := &model.ReviewRequest{CardID: c.CardID, Rating: ratings[i%len(ratings)]}
		if _, err := studyService.RecordReview(ctx, user.UserID, req); err != nil {
			log.Fatalf("Failed to record demo review: %v", err)
		}
	}

	session := &model.SessionCompletionRequest{
		DeckID:          deck.DeckID,
		SessionType:     "learn",
		CardsStudied:    len(cards),
		EasyCount:       1,
		HardCount:       1,
		AgainCount:      1,
		DurationMinutes: 5,
		Timezone:        "Asia/Tokyo",
	}
	if _, err := studyService.CompleteSession(ctx, user.UserID, session); err != nil {
		log.Fatalf("Failed to record demo session: %v", err)
	}

	log.Printf("Seed completed at %s: user=%s deck=%s cards=%d",
		time.Now().Format(time.RFC3339), user.Email, deck.Name, len(cards))
}
