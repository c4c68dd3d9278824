// internal/repository/token_repository.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"go_5_flash_keep/internal/middleware"
	"go_5_flash_keep/internal/model"

	"gorm.io/gorm"
)

// TokenRepository はメール確認用とパスワード再設定用の使い捨てトークンを扱います
type TokenRepository interface {
	CreateVerificationToken(ctx context.Context, db *gorm.DB, token *model.UserVerificationToken) error
	FindVerificationToken(ctx context.Context, db *gorm.DB, token string) (*model.UserVerificationToken, error)
	DeleteVerificationToken(ctx context.Context, db *gorm.DB, token string) error
	CreatePasswordResetToken(ctx context.Context, db *gorm.DB, token *model.PasswordResetToken) error
	FindPasswordResetToken(ctx context.Context, db *gorm.DB, token string) (*model.PasswordResetToken, error)
	DeletePasswordResetToken(ctx context.Context, db *gorm.DB, token string) error
}

type gormTokenRepository struct{}

func NewGormTokenRepository() TokenRepository {
	return &gormTokenRepository{}
}

// 2種類のトークンはスキーマが同じなので、実装は型パラメータ化した共通処理に寄せる
type oneTimeToken interface {
	model.UserVerificationToken | model.PasswordResetToken
}

func createToken[T oneTimeToken](ctx context.Context, db *gorm.DB, token *T, op string) error {
	logger := middleware.GetLogger(ctx)
	if err := db.WithContext(ctx).Create(token).Error; err != nil {
		logger.Error("Failed to create token", "op", op, "error", err)
		return fmt.Errorf("gormTokenRepository.%s: %w", op, err)
	}
	return nil
}

func findToken[T oneTimeToken](ctx context.Context, db *gorm.DB, tokenStr, op string) (*T, error) {
	logger := middleware.GetLogger(ctx)
	var token T
	if err := db.WithContext(ctx).Where("token = ?", tokenStr).First(&token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNotFound
		}
		logger.Error("Failed to find token", "op", op, "error", err)
		return nil, fmt.Errorf("gormTokenRepository.%s: %w", op, err)
	}
	return &token, nil
}

func deleteToken[T oneTimeToken](ctx context.Context, db *gorm.DB, tokenStr, op string) error {
	logger := middleware.GetLogger(ctx)
	if err := db.WithContext(ctx).Where("token = ?", tokenStr).Delete(new(T)).Error; err != nil {
		logger.Error("Failed to delete token", "op", op, "error", err)
		return fmt.Errorf("gormTokenRepository.%s: %w", op, err)
	}
	return nil
}

func (r *gormTokenRepository) CreateVerificationToken(ctx context.Context, db *gorm.DB, token *model.UserVerificationToken) error {
	return createToken(ctx, db, token, "CreateVerificationToken")
}

func (r *gormTokenRepository) FindVerificationToken(ctx context.Context, db *gorm.DB, tokenStr string) (*model.UserVerificationToken, error) {
	return findToken[model.UserVerificationToken](ctx, db, tokenStr, "FindVerificationToken")
}

func (r *gormTokenRepository) DeleteVerificationToken(ctx context.Context, db *gorm.DB, tokenStr string) error {
	return deleteToken[model.UserVerificationToken](ctx, db, tokenStr, "DeleteVerificationToken")
}

func (r *gormTokenRepository) CreatePasswordResetToken(ctx context.Context, db *gorm.DB, token *model.PasswordResetToken) error {
	return createToken(ctx, db, token, "CreatePasswordResetToken")
}

func (r *gormTokenRepository) FindPasswordResetToken(ctx context.Context, db *gorm.DB, tokenStr string) (*model.PasswordResetToken, error) {
	return findToken[model.PasswordResetToken](ctx, db, tokenStr, "FindPasswordResetToken")
}

func (r *gormTokenRepository) DeletePasswordResetToken(ctx context.Context, db *gorm.DB, tokenStr string) error {
	return deleteToken[model.PasswordResetToken](ctx, db, tokenStr, "DeletePasswordResetToken")
}
