package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/fixman/internal/model"
	"github.com/hitoshi/fixman/internal/repository"
)

// TokenPair はログイン時に発行されるトークンの組。
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	BcryptCost int
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.RefreshTokenRepository
	issuer    *TokenIssuer
	config    ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.RefreshTokenRepository,
	issuer *TokenIssuer,
	config ServiceConfig,
) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		issuer:    issuer,
		config:    config,
	}
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	FullName       string
	Phone          string
	Email          string
	Password       string
	ProfilePicture string
}

// Register は新規ユーザーを作成する。
// 電話番号はログイン識別子であり、登録済みの場合はエラーを返す。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	if input.Phone == "" {
		return nil, model.NewInvalidRequestError("phone is required")
	}
	if input.FullName == "" {
		return nil, model.NewInvalidRequestError("full_name is required")
	}
	if input.Password == "" {
		return nil, model.NewEmptyPasswordError()
	}

	existing, err := s.userRepo.FindByPhone(ctx, input.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by phone: %w", err)
	}
	if existing != nil {
		return nil, model.NewPhoneTakenError()
	}

	hash, err := HashPassword(input.Password, s.config.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		FullName:       input.FullName,
		Phone:          input.Phone,
		Email:          input.Email,
		PasswordHash:   hash,
		ProfilePicture: input.ProfilePicture,
		IsActive:       true,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// 事前チェックをすり抜けた同時登録はストレージ側の一意制約で検出される
		if repository.IsUniqueViolation(err) {
			return nil, model.NewPhoneTakenError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered",
		slog.Int64("user_id", user.ID),
		slog.String("phone", user.Phone),
	)
	return user, nil
}

// Login は電話番号とパスワードで認証し、アクセストークンと
// リフレッシュトークンの組を発行する。リフレッシュトークンは
// Token Storeに永続化され、以降の再発行とログアウトの対象になる。
//
// 判定順序は固定: ユーザー検索 → 保存ハッシュの健全性 → パスワード検証 → 有効状態。
// 無効化されたアカウントでも正しいパスワードを提示するまで有効状態は開示されない。
func (s *Service) Login(ctx context.Context, phone, password string) (*TokenPair, *model.User, error) {
	user, err := s.userRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find user by phone: %w", err)
	}
	if user == nil {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	// 保存ハッシュの欠落・破損は認証失敗ではなくストレージ異常として扱う
	if user.PasswordHash == "" {
		slog.Error("credential store has no hash for user", slog.Int64("user_id", user.ID))
		return nil, nil, model.NewCredentialStoreCorruptedError()
	}
	if IsCorruptedHash(user.PasswordHash) {
		slog.Error("credential store hash exceeds bcrypt length", slog.Int64("user_id", user.ID))
		return nil, nil, model.NewCredentialStoreCorruptedError()
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	if !user.IsActive {
		return nil, nil, model.NewAccountInactiveError()
	}

	access, _, err := s.issuer.IssueAccess(user.ID, user.Phone)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue access token: %w", err)
	}
	refresh, refreshExp, err := s.issuer.IssueRefresh(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue refresh token: %w", err)
	}

	row := &model.RefreshToken{
		UserID:    user.ID,
		Token:     refresh,
		ExpiresAt: refreshExp,
	}
	if err := s.tokenRepo.Create(ctx, row); err != nil {
		return nil, nil, fmt.Errorf("failed to save refresh token: %w", err)
	}

	slog.Info("user logged in", slog.Int64("user_id", user.ID))
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, user, nil
}

// Refresh はリフレッシュトークンを検証し、新しいアクセストークンを発行する。
// リフレッシュトークン自体は再発行しない（ローテーションなし）。
// 有効性はJWTのexpクレームではなくToken Storeの保存行を権威として判定する。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims := s.issuer.Decode(refreshToken)
	if claims == nil || claims.TokenType != TokenTypeRefresh {
		return "", model.NewInvalidTokenError()
	}

	userID, err := claims.UserID()
	if err != nil {
		return "", model.NewInvalidTokenError()
	}

	row, err := s.tokenRepo.FindValid(ctx, refreshToken, userID, time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to find refresh token: %w", err)
	}
	if row == nil {
		return "", model.NewTokenNotFoundOrExpiredError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return "", model.NewUserNotFoundOrInactiveError()
	}

	access, _, err := s.issuer.IssueAccess(user.ID, user.Phone)
	if err != nil {
		return "", fmt.Errorf("failed to issue access token: %w", err)
	}
	return access, nil
}

// Logout はリフレッシュトークンをToken Storeから削除し、以降の再発行を無効化する。
// 対象の行が存在しない場合（期限切れ・二重ログアウト）も成功として扱う。
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if err := s.tokenRepo.DeleteByToken(ctx, refreshToken); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	slog.Info("user logged out")
	return nil
}

// Authenticate はアクセストークンを検証し、対応する有効なユーザーを返す。
// 失敗理由（署名不正・期限切れ・種別違い・ユーザー無効）は区別せず一律に
// 認証エラーを返す。
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*model.User, error) {
	claims := s.issuer.Decode(accessToken)
	if claims == nil || claims.TokenType != TokenTypeAccess {
		return nil, model.NewUnauthorizedError()
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, model.NewUnauthorizedError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, model.NewUnauthorizedError()
	}
	return user, nil
}
