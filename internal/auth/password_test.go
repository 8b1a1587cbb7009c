package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// ハッシュ化したパスワードが検証を通ることを検証
func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("pw12345", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !VerifyPassword("pw12345", hash) {
		t.Error("expected hashed password to verify")
	}
}

// 異なるパスワードは検証に失敗することを検証
func TestVerifyPassword_WrongPassword(t *testing.T) {
	hash, err := HashPassword("pw12345", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if VerifyPassword("wrong-password", hash) {
		t.Error("expected wrong password to fail verification")
	}
}

// 同じパスワードでも毎回異なるハッシュが生成されることを検証
// （呼び出しごとに新しいソルトが使われる）
func TestHashPassword_FreshSalt(t *testing.T) {
	first, err := HashPassword("pw12345", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := HashPassword("pw12345", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == second {
		t.Error("expected different hashes for the same password")
	}
	// どちらのハッシュも元のパスワードを検証できる
	if !VerifyPassword("pw12345", first) || !VerifyPassword("pw12345", second) {
		t.Error("expected both hashes to verify the original password")
	}
}

// 空パスワードのハッシュ化はエラーになることを検証
func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword("", bcrypt.MinCost); err == nil {
		t.Error("expected error for empty password")
	}
}

// 空の入力では検証が常に失敗することを検証
func TestVerifyPassword_EmptyInputs(t *testing.T) {
	hash, err := HashPassword("pw12345", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if VerifyPassword("", hash) {
		t.Error("empty password should not verify")
	}
	if VerifyPassword("pw12345", "") {
		t.Error("empty hash should not verify")
	}
	if VerifyPassword("", "") {
		t.Error("empty password and hash should not verify")
	}
}

// 上限長を超える破損ハッシュは比較に進まず失敗することを検証
func TestVerifyPassword_CorruptedHash(t *testing.T) {
	corrupted := strings.Repeat("x", 80)
	if VerifyPassword("pw12345", corrupted) {
		t.Error("over-length hash should not verify")
	}
	// 有効なハッシュの末尾に余分な文字が付いた保存値も同様
	hash, err := HashPassword("pw12345", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if VerifyPassword("pw12345", hash+strings.Repeat("x", 20)) {
		t.Error("padded hash should not verify")
	}
}

// 72文字を超える保存値は破損と判定されることを検証
func TestIsCorruptedHash(t *testing.T) {
	if IsCorruptedHash(strings.Repeat("x", 72)) {
		t.Error("72-char value should not be corrupted")
	}
	if !IsCorruptedHash(strings.Repeat("x", 73)) {
		t.Error("73-char value should be corrupted")
	}

	hash, err := HashPassword("pw12345", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if IsCorruptedHash(hash) {
		t.Error("real bcrypt hash should not be corrupted")
	}
}
