// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザー（顧客・スタッフ共通）を表す。
// PasswordHash はbcryptハッシュの不透明文字列であり、平文は一切保持しない。
type User struct {
	ID             int64
	FullName       string
	Phone          string
	Email          string
	PasswordHash   string
	ProfilePicture string
	IsActive       bool
	IsStaff        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Role はユーザーに付与する役割（receptionist, technician等）を表す。
type Role struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// RoleEnroll はユーザーと役割の紐付けを表す。
// (user_id, role_id) の組はストレージ側の一意制約で保証される。
type RoleEnroll struct {
	ID        int64
	UserID    int64
	RoleID    int64
	CreatedAt time.Time
}

// RefreshToken は永続化されたリフレッシュトークンを表す。
// リフレッシュの有効性判定はJWT自身のexpクレームではなく、
// この行のExpiresAtを権威とする（サーバー側失効のため）。
type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
