package repository

import (
	"errors"

	"github.com/lib/pq"
)

// uniqueViolationCode はPostgreSQLの一意制約違反のSQLSTATEコード。
const uniqueViolationCode = "23505"

// IsUniqueViolation はerrがストレージ側の一意制約違反かどうかを判定する。
// 電話番号・役割・割り当て等の重複登録レースはアプリケーション側のロックではなく
// この制約違反として検出する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
