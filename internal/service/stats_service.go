package service

import (
	"context"
	"errors"
	"time"

	"go_5_flash_keep/internal/config"
	"go_5_flash_keep/internal/middleware"
	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatsService interface {
	// GetOverview は統計レポート画面に必要な読み取りモデルを一括で組み立てます
	GetOverview(ctx context.Context, userID uuid.UUID, loc *time.Location) (*model.Overview, error)
}

type statsService struct {
	db        *gorm.DB
	statsRepo repository.StatsRepository
	progRepo  repository.ProgressRepository
	cardRepo  repository.CardRepository
	cfg       *config.Config
}

func NewStatsService(db *gorm.DB, statsRepo repository.StatsRepository, progRepo repository.ProgressRepository, cardRepo repository.CardRepository, cfg *config.Config) StatsService {
	return &statsService{
		db:        db,
		statsRepo: statsRepo,
		progRepo:  progRepo,
		cardRepo:  cardRepo,
		cfg:       cfg,
	}
}

func (s *statsService) GetOverview(ctx context.Context, userID uuid.UUID, loc *time.Location) (*model.Overview, error) {
	logger := middleware.GetLogger(ctx)

	now := time.Now().In(loc)
	today := now.Format(model.DateLayout)

	// 累計行はまだ無いこともある（最初のセッション完了時に遅延作成されるため）
	stats, err := s.statsRepo.FindUserStatistics(ctx, s.db, userID)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			logger.Error("Error fetching user statistics", "error", err)
			return nil, model.ErrInternalServer
		}
		stats = &model.UserStatistics{UserID: userID}
	}

	// ストリークは読み取り時に再計算する。書き戻しはセッション完了時のみ。
	dates, err := s.statsRepo.DistinctStudyDates(ctx, s.db, userID)
	if err != nil {
		logger.Error("Error fetching study dates", "error", err)
		return nil, model.ErrInternalServer
	}
	current, longest := calculateStreak(dates, today)
	if stats.LongestStreak > longest {
		longest = stats.LongestStreak
	}
	streak := model.StreakInfo{Current: current, Longest: longest}
	if len(dates) > 0 {
		streak.LastStudyDate = &dates[0]
	}

	// 直近7日（今日を含む・日付昇順・行が無い日はゼロ埋め）
	weekFrom := now.AddDate(0, 0, -6).Format(model.DateLayout)
	weekRows, err := s.statsRepo.FindDailyRange(ctx, s.db, userID, weekFrom, today)
	if err != nil {
		logger.Error("Error fetching weekly stats", "error", err)
		return nil, model.ErrInternalServer
	}
	byDate := make(map[string]*model.DailyStudyStats, len(weekRows))
	for _, row := range weekRows {
		byDate[row.StudyDate] = row
	}
	week := make([]model.DailyStatsEntry, 0, 7)
	for i := 6; i >= 0; i-- {
		date := now.AddDate(0, 0, -i).Format(model.DateLayout)
		entry := model.DailyStatsEntry{Date: date}
		if row, ok := byDate[date]; ok {
			entry.CardsStudied = row.CardsStudied
			entry.TimeMinutes = row.TimeMinutes
			entry.SessionsCompleted = row.SessionsCompleted
			entry.EasyCount = row.EasyCount
			entry.HardCount = row.HardCount
			entry.AgainCount = row.AgainCount
		}
		week = append(week, entry)
	}

	// 習熟度の内訳。進捗行が無いカードは NEW として数える。
	masteryCounts, err := s.progRepo.CountByMastery(ctx, s.db, userID)
	if err != nil {
		logger.Error("Error counting mastery breakdown", "error", err)
		return nil, model.ErrInternalServer
	}
	totalCards, err := s.cardRepo.CountByUser(ctx, s.db, userID)
	if err != nil {
		logger.Error("Error counting user cards", "error", err)
		return nil, model.ErrInternalServer
	}
	learning := int(masteryCounts[model.MasteryLearning])
	mastered := int(masteryCounts[model.MasteryMastered])
	newCards := int(totalCards) - learning - mastered
	if newCards < 0 {
		newCards = 0
	}

	accuracy, err := s.accuracyWithTrend(ctx, userID, s.cfg.Stats.AccuracyPeriodDays, now)
	if err != nil {
		logger.Error("Error computing accuracy trend", "error", err)
		return nil, model.ErrInternalServer
	}

	topDecksRows, err := s.statsRepo.TopDecksByLastStudied(ctx, s.db, userID, s.cfg.Stats.TopDeckLimit)
	if err != nil {
		logger.Error("Error fetching top decks", "error", err)
		return nil, model.ErrInternalServer
	}
	topDecks := make([]model.TopDeck, 0, len(topDecksRows))
	for _, d := range topDecksRows {
		topDecks = append(topDecks, *d)
	}

	return &model.Overview{
		Streak: streak,
		Today:  week[len(week)-1],
		Week:   week,
		AllTime: model.AllTimeTotals{
			CardsStudied:     stats.TotalCardsStudied,
			StudyTimeMinutes: stats.TotalStudyTimeMinutes,
			Sessions:         stats.TotalSessions,
		},
		CardProgress: model.MasteryBreakdown{
			New:      newCards,
			Learning: learning,
			Mastered: mastered,
			Total:    int(totalCards),
		},
		Accuracy: *accuracy,
		TopDecks: topDecks,
	}, nil
}

// accuracyWithTrend は今日を末尾とする periodDays 日の窓と、その直前の同じ長さの
// 窓の正答率を比較します。レビュー0件の窓の rate は null（0/0 を 0 とはしない）。
func (s *statsService) accuracyWithTrend(ctx context.Context, userID uuid.UUID, periodDays int, now time.Time) (*model.AccuracyInfo, error) {
	curFrom := now.AddDate(0, 0, -(periodDays - 1)).Format(model.DateLayout)
	curTo := now.Format(model.DateLayout)
	prevFrom := now.AddDate(0, 0, -(2*periodDays - 1)).Format(model.DateLayout)
	prevTo := now.AddDate(0, 0, -periodDays).Format(model.DateLayout)

	cur, err := s.statsRepo.AccuracyCounts(ctx, s.db, userID, curFrom, curTo)
	if err != nil {
		return nil, err
	}
	prev, err := s.statsRepo.AccuracyCounts(ctx, s.db, userID, prevFrom, prevTo)
	if err != nil {
		return nil, err
	}

	info := &model.AccuracyInfo{
		Rate:       accuracyRate(cur),
		EasyCount:  cur.EasyCount,
		HardCount:  cur.HardCount,
		AgainCount: cur.AgainCount,
		PeriodDays: periodDays,
	}

	prevRate := accuracyRate(prev)
	if info.Rate != nil && prevRate != nil {
		trend := model.TrendStable
		switch diff := *info.Rate - *prevRate; {
		case diff > 0.05:
			trend = model.TrendImproving
		case diff < -0.05:
			trend = model.TrendDeclining
		}
		info.Trend = &trend
	}
	return info, nil
}

// accuracyRate は (easy+hard) / (easy+hard+again)。レビュー0件なら nil。
func accuracyRate(c *model.AccuracyCounts) *float64 {
	total := c.EasyCount + c.HardCount + c.AgainCount
	if total == 0 {
		return nil
	}
	rate := float64(c.EasyCount+c.HardCount) / float64(total)
	return &rate
}

// calculateStreak は降順の学習日付リストから現在・最長の連続学習日数を求めます。
// 現在値は today がリストに含まれない限り 0。最長値はリスト全体の
// gaps-and-islands 走査で求めます（バックフィルと読み取りで同じ実装を使う）。
func calculateStreak(datesDesc []string, today string) (current, longest int) {
	if len(datesDesc) == 0 {
		return 0, 0
	}

	if datesDesc[0] == today {
		current = 1
		expected := previousDay(today)
		for _, d := range datesDesc[1:] {
			if d != expected {
				break
			}
			current++
			expected = previousDay(expected)
		}
	}

	run := 1
	longest = 1
	for i := 1; i < len(datesDesc); i++ {
		if datesDesc[i] == previousDay(datesDesc[i-1]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return current, longest
}

func previousDay(date string) string {
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(model.DateLayout)
}
