package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go_5_flash_keep/internal/config"
	"go_5_flash_keep/internal/middleware"
	"go_5_flash_keep/internal/model"
	"go_5_flash_keep/internal/repository"
	"go_5_flash_keep/internal/synccache"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SyncService interface {
	// SyncBatch はオフラインクライアントが溜めたセッション群を冪等に取り込みます。
	// アイテム単位の失敗は戻り値の results に載せ、エラーとしては返しません。
	SyncBatch(ctx context.Context, userID uuid.UUID, req *model.SyncRequest) (*model.SyncResponse, error)
}

type syncService struct {
	db          *gorm.DB
	deckRepo    repository.DeckRepository
	cardRepo    repository.CardRepository
	progRepo    repository.ProgressRepository
	sessionRepo repository.SessionRepository
	statsRepo   repository.StatsRepository
	cache       synccache.Cache
	cfg         *config.Config
}

func NewSyncService(db *gorm.DB, deckRepo repository.DeckRepository, cardRepo repository.CardRepository, progRepo repository.ProgressRepository, sessionRepo repository.SessionRepository, statsRepo repository.StatsRepository, cache synccache.Cache, cfg *config.Config) SyncService {
	return &syncService{
		db:          db,
		deckRepo:    deckRepo,
		cardRepo:    cardRepo,
		progRepo:    progRepo,
		sessionRepo: sessionRepo,
		statsRepo:   statsRepo,
		cache:       cache,
		cfg:         cfg,
	}
}

// 冪等性キャッシュへの書き込みはコミット確定後まで遅延させるための控え
type pendingCacheEntry struct {
	key             synccache.Key
	serverSessionID uuid.UUID
}

func (s *syncService) SyncBatch(ctx context.Context, userID uuid.UUID, req *model.SyncRequest) (*model.SyncResponse, error) {
	logger := middleware.GetLogger(ctx)

	now := time.Now().UTC()
	results := make([]model.SyncSessionResult, 0, len(req.Sessions))
	var pending []pendingCacheEntry
	// 同一バッチ内で既に SYNCED したキー。キャッシュ書き込みはコミット後なので、
	// バッチ内の重複はここで検出しないと二重適用になる
	accepted := make(map[synccache.Key]uuid.UUID)

	// SYNCED になったアイテムの書き込みは1トランザクションでまとめてコミットする。
	// アイテム単位の FAILED は結果として積むだけで、他のアイテムを巻き込まない。
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range req.Sessions {
			item := &req.Sessions[i]
			result, serverID, err := s.processSession(ctx, tx, userID, req.ClientID, item, now, accepted)
			if err != nil {
				// 予期しない失敗はバッチ全体を中断する（クライアントは全体を再送する）
				logger.Error("Fatal error while processing sync session",
					"error", err,
					"client_session_id", item.ClientSessionID,
				)
				return err
			}
			results = append(results, result)
			if result.Status == model.SyncStatusSynced {
				key := synccache.Key{ClientID: req.ClientID, ClientSessionID: item.ClientSessionID}
				accepted[key] = serverID
				pending = append(pending, pendingCacheEntry{key: key, serverSessionID: serverID})
			}
		}
		return nil
	})
	if err != nil {
		return nil, model.ErrInternalServer
	}

	// ロールバックされたアイテムをキャッシュに載せないよう、コミット後にまとめて書く
	for _, entry := range pending {
		s.cache.Put(entry.key, entry.serverSessionID)
	}

	summary := model.SyncSummary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case model.SyncStatusSynced:
			summary.Synced++
		case model.SyncStatusSkipped:
			summary.Skipped++
		case model.SyncStatusFailed:
			summary.Failed++
		}
	}

	logger.Info("Sync batch processed",
		"user_id", userID.String(),
		"total", summary.Total,
		"synced", summary.Synced,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
	)

	return &model.SyncResponse{
		SyncedAt: now,
		Results:  results,
		Summary:  summary,
	}, nil
}

// processSession はセッション1件を検証して適用します。検証の失敗は FAILED の結果として
// 返し、エラーを返すのはストレージ異常など続行不能な場合だけです。
func (s *syncService) processSession(ctx context.Context, tx *gorm.DB, userID uuid.UUID, clientID string, in *model.SyncSessionInput, now time.Time, accepted map[synccache.Key]uuid.UUID) (model.SyncSessionResult, uuid.UUID, error) {
	result := model.SyncSessionResult{ClientSessionID: in.ClientSessionID}

	// 1. 冪等性チェック：同期済みならサーバー側IDを添えて SKIPPED。
	// キャッシュに加えて、同じバッチ内で先に適用したセッションも同期済みとして扱う
	key := synccache.Key{ClientID: clientID, ClientSessionID: in.ClientSessionID}
	if serverID, ok := s.cache.Get(key); ok {
		result.Status = model.SyncStatusSkipped
		result.ServerSessionID = &serverID
		return result, uuid.Nil, nil
	}
	if serverID, ok := accepted[key]; ok {
		result.Status = model.SyncStatusSkipped
		result.ServerSessionID = &serverID
		return result, uuid.Nil, nil
	}

	// 2. タイムスタンプ検証
	if in.StartedAt.After(now) || in.CompletedAt.After(now) {
		return failed(result, "started_at and completed_at must not be in the future"), uuid.Nil, nil
	}
	maxAge := s.cfg.Sync.MaxSessionAgeDays
	if in.StartedAt.Before(now.AddDate(0, 0, -maxAge)) {
		return failed(result, fmt.Sprintf("started_at is older than %d days", maxAge)), uuid.Nil, nil
	}

	// 3. デッキの存在と所有の検証
	if _, err := s.deckRepo.FindByID(ctx, tx, userID, in.DeckID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return failed(result, "deck not found"), uuid.Nil, nil
		}
		return result, uuid.Nil, err
	}

	// 4. セッション種別の検証
	sessionType, ok := model.ParseSessionType(in.SessionType)
	if !ok {
		return failed(result, fmt.Sprintf("unknown session type: %s", in.SessionType)), uuid.Nil, nil
	}

	// 5. レビューの検証。評価が解釈できないものは除外し、レビューを1件以上
	// 送ってきたのに全滅した場合だけ FAILED（空のセッションは作らない）。
	type validReview struct {
		cardID     uuid.UUID
		rating     model.Rating
		reviewedAt time.Time
	}
	var applicable []validReview
	for _, rv := range in.Reviews {
		rating, ok := model.ParseRating(rv.Rating)
		if !ok {
			continue
		}
		// 削除済みカードへのレビューは黙って捨てる（送信が無かったのと区別できない）
		exists, err := s.cardRepo.Exists(ctx, tx, rv.CardID)
		if err != nil {
			return result, uuid.Nil, err
		}
		if !exists {
			continue
		}
		applicable = append(applicable, validReview{cardID: rv.CardID, rating: rating, reviewedAt: rv.ReviewedAt})
	}
	if len(in.Reviews) > 0 && len(applicable) == 0 {
		return failed(result, "no valid reviews"), uuid.Nil, nil
	}

	// 6. 適用：進捗を更新しつつ、実際に適用したレビューだけを集計する
	var easy, hard, again int
	for _, rv := range applicable {
		if err := s.progRepo.RecordReview(ctx, tx, userID, rv.cardID, rv.rating, rv.reviewedAt); err != nil {
			return result, uuid.Nil, err
		}
		switch rv.rating {
		case model.RatingEasy:
			easy++
		case model.RatingHard:
			hard++
		case model.RatingAgain:
			again++
		}
	}

	// 7. セッション作成と集計反映。日付はUTCの暦日（同期入力にタイムゾーンは無い）。
	duration := int(in.CompletedAt.Sub(in.StartedAt).Minutes())
	if duration < 1 {
		duration = 1
	}
	session := &model.StudySession{
		SessionID:       uuid.New(),
		UserID:          userID,
		DeckID:          in.DeckID,
		SessionType:     sessionType,
		StartedAt:       in.StartedAt,
		CompletedAt:     in.CompletedAt,
		CardsStudied:    len(applicable),
		EasyCount:       easy,
		HardCount:       hard,
		AgainCount:      again,
		DurationMinutes: duration,
	}
	if err := applyCompletedSession(ctx, tx, s.sessionRepo, s.statsRepo, s.deckRepo, session, time.UTC); err != nil {
		return result, uuid.Nil, err
	}

	// 8. 冪等性エントリの確定は呼び出し側がコミット後に行う
	result.Status = model.SyncStatusSynced
	result.ServerSessionID = &session.SessionID
	result.ReviewsSynced = len(applicable)
	return result, session.SessionID, nil
}

func failed(result model.SyncSessionResult, reason string) model.SyncSessionResult {
	result.Status = model.SyncStatusFailed
	result.Error = reason
	return result
}
