package service

import (
	"context"
	"errors"
	"time"

	"go_5_flash_keep/internal/middleware"
	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StudyService interface {
	// RecordReview は1枚のカードへの評価を即時反映します（ライブ学習用）
	RecordReview(ctx context.Context, userID uuid.UUID, req *model.ReviewRequest) (*model.CardProgress, error)
	// CompleteSession はライブ学習セッションの完了を記録し、集計へ反映します
	CompleteSession(ctx context.Context, userID uuid.UUID, req *model.SessionCompletionRequest) (*model.StudySession, error)
}

type studyService struct {
	db          *gorm.DB
	deckRepo    repository.DeckRepository
	cardRepo    repository.CardRepository
	progRepo    repository.ProgressRepository
	sessionRepo repository.SessionRepository
	statsRepo   repository.StatsRepository
}

func NewStudyService(db *gorm.DB, deckRepo repository.DeckRepository, cardRepo repository.CardRepository, progRepo repository.ProgressRepository, sessionRepo repository.SessionRepository, statsRepo repository.StatsRepository) StudyService {
	return &studyService{
		db:          db,
		deckRepo:    deckRepo,
		cardRepo:    cardRepo,
		progRepo:    progRepo,
		sessionRepo: sessionRepo,
		statsRepo:   statsRepo,
	}
}

func (s *studyService) RecordReview(ctx context.Context, userID uuid.UUID, req *model.ReviewRequest) (*model.CardProgress, error) {
	logger := middleware.GetLogger(ctx)

	rating, ok := model.ParseRating(req.Rating)
	if !ok {
		return nil, model.NewAppError("INVALID_RATING", "評価は easy / hard / again のいずれかで指定してください。", "rating", model.ErrInvalidInput)
	}

	reviewedAt := time.Now()
	if req.ReviewedAt != nil {
		reviewedAt = *req.ReviewedAt
	}

	var progress *model.CardProgress

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. カードの存在と所有を確認
		if _, err := s.cardRepo.FindByID(ctx, tx, userID, req.CardID); err != nil {
			return err // model.ErrNotFound or wrapped error
		}

		// 2. 進捗へ原子的に反映
		if err := s.progRepo.RecordReview(ctx, tx, userID, req.CardID, rating, reviewedAt); err != nil {
			logger.Error("Error recording review in transaction", "error", err)
			return model.ErrInternalServer
		}

		// 3. 反映後の進捗を返す
		var err error
		progress, err = s.progRepo.FindByCard(ctx, tx, userID, req.CardID)
		if err != nil {
			logger.Error("Error fetching progress after review", "error", err)
			return model.ErrInternalServer
		}
		return nil // コミット
	})

	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		var appErr *model.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		logger.Error("Transaction failed for RecordReview", "error", err)
		return nil, model.ErrInternalServer
	}

	return progress, nil
}

func (s *studyService) CompleteSession(ctx context.Context, userID uuid.UUID, req *model.SessionCompletionRequest) (*model.StudySession, error) {
	logger := middleware.GetLogger(ctx)

	sessionType, ok := model.ParseSessionType(req.SessionType)
	if !ok {
		return nil, model.NewAppError("INVALID_SESSION_TYPE", "セッション種別は learn / review / test のいずれかで指定してください。", "session_type", model.ErrInvalidInput)
	}

	loc := time.UTC
	if req.Timezone != "" {
		var err error
		loc, err = time.LoadLocation(req.Timezone)
		if err != nil {
			return nil, model.NewAppError("INVALID_TIMEZONE", "タイムゾーンが解決できません。", "timezone", model.ErrInvalidInput)
		}
	}

	now := time.Now()
	session := &model.StudySession{
		SessionID:       uuid.New(),
		UserID:          userID,
		DeckID:          req.DeckID,
		SessionType:     sessionType,
		StartedAt:       now.Add(-time.Duration(req.DurationMinutes) * time.Minute),
		CompletedAt:     now,
		CardsStudied:    req.CardsStudied,
		EasyCount:       req.EasyCount,
		HardCount:       req.HardCount,
		AgainCount:      req.AgainCount,
		DurationMinutes: req.DurationMinutes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// デッキの存在と所有を確認
		if _, err := s.deckRepo.FindByID(ctx, tx, userID, req.DeckID); err != nil {
			return err
		}
		return applyCompletedSession(ctx, tx, s.sessionRepo, s.statsRepo, s.deckRepo, session, loc)
	})

	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
		logger.Error("Transaction failed for CompleteSession", "error", err)
		return nil, model.ErrInternalServer
	}

	return session, nil
}

// applyCompletedSession は完了済みセッション1件を永続化し、集計へ反映します。
// ライブ完了とオフライン同期が同じ経路を通るよう、ここに一本化しています。
//  1. セッション行の作成
//  2. 累計 (user_statistics) への加算
//  3. 日次 (daily_study_stats) への加算
//  4. 連続学習日数の再計算と書き戻し
//  5. デッキの最終学習日時の更新
func applyCompletedSession(ctx context.Context, tx *gorm.DB, sessionRepo repository.SessionRepository, statsRepo repository.StatsRepository, deckRepo repository.DeckRepository, session *model.StudySession, loc *time.Location) error {
	if err := sessionRepo.Create(ctx, tx, session); err != nil {
		return err
	}

	studyDate := session.CompletedAt.In(loc).Format(model.DateLayout)

	if err := statsRepo.IncrementUserTotals(ctx, tx, session.UserID, session.CardsStudied, session.DurationMinutes, studyDate); err != nil {
		return err
	}

	daily := &model.DailyStudyStats{
		UserID:            session.UserID,
		StudyDate:         studyDate,
		CardsStudied:      session.CardsStudied,
		TimeMinutes:       session.DurationMinutes,
		SessionsCompleted: 1,
		EasyCount:         session.EasyCount,
		HardCount:         session.HardCount,
		AgainCount:        session.AgainCount,
	}
	if err := statsRepo.AccumulateDaily(ctx, tx, daily); err != nil {
		return err
	}

	// 書き込み後の日付集合からストリークを再計算する
	dates, err := statsRepo.DistinctStudyDates(ctx, tx, session.UserID)
	if err != nil {
		return err
	}
	today := time.Now().In(loc).Format(model.DateLayout)
	current, longest := calculateStreak(dates, today)
	if current > longest {
		longest = current
	}
	if err := statsRepo.UpdateStreaks(ctx, tx, session.UserID, current, longest); err != nil {
		return err
	}

	return deckRepo.SetLastStudied(ctx, tx, session.DeckID, session.CompletedAt)
}
