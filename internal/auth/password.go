package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxBcryptHashLen はbcryptハッシュ文字列の上限長。
// これを超える保存値はbcrypt由来ではあり得ず、破損とみなす。
const maxBcryptHashLen = 72

// HashPassword はパスワードをbcryptでハッシュ化する。
// 同じパスワードでも呼び出しごとに異なるソルトが使われるため結果は毎回異なる。
func HashPassword(password string, cost int) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword はパスワードが保存済みハッシュと一致するかを返す。
// 空の入力や不正なハッシュ形式では常にfalseを返す。
// 上限長を超える破損ハッシュには比較処理自体を行わない。
func VerifyPassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	if IsCorruptedHash(hash) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// IsCorruptedHash は保存済みハッシュがbcrypt由来ではあり得ない形式かを返す。
// 検証失敗（401）とは区別し、ストレージ破損（500）として扱うための判定。
func IsCorruptedHash(hash string) bool {
	return len(hash) > maxBcryptHashLen
}
