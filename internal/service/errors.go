package service

import (
	"errors"
	"fmt"

	"github.com/UoaWDCC/uabc-web-sub005/pkg/database"
	pkgerrors "github.com/UoaWDCC/uabc-web-sub005/pkg/errors"
)

// ── 错误分类 ──
// 具体原因通过 %w 包装分类，调用方可用 errors.Is 匹配原因或分类

var (
	// ErrConfiguration 管理员录入的学期/模板数据不合法，写入时拒绝
	ErrConfiguration = errors.New("配置错误")
	// ErrNotBookable 场次当前不可预约（窗口未开放/已关闭、场次取消或不存在）
	ErrNotBookable = errors.New("场次不可预约")
	// ErrCapacity 名额不足
	ErrCapacity = errors.New("名额不足")
	// ErrQuota 用户额度不满足
	ErrQuota = errors.New("预约额度不足")
	// ErrConflict 并发写入冲突，可重试一次
	ErrConflict = pkgerrors.ErrConflict
)

// ── 预约路径原因 ──

var (
	ErrSessionNotFound     = fmt.Errorf("%w: 场次不存在", ErrNotBookable)
	ErrSessionCancelled    = fmt.Errorf("%w: 场次已取消", ErrNotBookable)
	ErrWindowNotOpen       = fmt.Errorf("%w: 预约尚未开放", ErrNotBookable)
	ErrWindowClosed        = fmt.Errorf("%w: 预约已截止", ErrNotBookable)
	ErrWindowNeverOpens    = fmt.Errorf("%w: 预约窗口配置异常，该场次不开放预约", ErrNotBookable)
	ErrLedgerMissing       = fmt.Errorf("%w: 场次容量台账缺失", ErrNotBookable)
	ErrSessionFull         = fmt.Errorf("%w: 场次已满", ErrCapacity)
	ErrSlotKindUnavailable = fmt.Errorf("%w: 该场次不提供此类名额", ErrCapacity)
	ErrWeeklyLimitReached  = fmt.Errorf("%w: 本周预约次数已达上限", ErrQuota)
	ErrInsufficientBalance = fmt.Errorf("%w: 预付场次余额不足，请以散客身份预约", ErrQuota)
	ErrAlreadyBooked       = fmt.Errorf("%w: 已预约该场次", ErrQuota)
)

// translateConflict 将乐观锁与数据库并发错误统一为 ErrConflict
func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pkgerrors.ErrOptimisticLock) || database.IsConcurrencyConflict(err) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
