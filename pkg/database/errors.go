package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL 并发相关错误码
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// IsConcurrencyConflict 判断错误是否为可重试的并发冲突（锁等待超时、序列化失败、死锁）
func IsConcurrencyConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected:
		return true
	}
	return false
}
