package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/internal/repository"
)

// ── 容量台账 ──
// 台账计数是预约路径上唯一的共享可变状态；占位必须经由 TryReserve 的原子条件更新完成

// outcomeError 将台账占位结果映射为预约错误
func outcomeError(outcome model.ReserveOutcome) error {
	switch outcome {
	case model.ReserveAdmitted:
		return nil
	case model.ReserveSlotKindUnavailable:
		return ErrSlotKindUnavailable
	case model.ReserveLedgerMissing:
		return ErrLedgerMissing
	default:
		return ErrSessionFull
	}
}

// precheckCapacity 只读预检，用于在额度检查之前按固定顺序报告容量原因；
// 最终是否占到名额仍以 reserveSlot 为准
func precheckCapacity(ctx context.Context, ledgers repository.SessionLedgerRepository, sessionID string, kind model.SlotKind) error {
	ledger, err := ledgers.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLedgerMissing
		}
		return err
	}
	if ledger.CapacityOf(kind) == 0 {
		return ErrSlotKindUnavailable
	}
	if ledger.UsedOf(kind) >= ledger.CapacityOf(kind) {
		return ErrSessionFull
	}
	return nil
}

// reserveSlot 原子占位
func reserveSlot(ctx context.Context, ledgers repository.SessionLedgerRepository, sessionID string, kind model.SlotKind) error {
	outcome, err := ledgers.TryReserve(ctx, sessionID, kind)
	if err != nil {
		return err
	}
	return outcomeError(outcome)
}

func toCapacityResponse(ledger *model.SessionLedger) *dto.SessionCapacityResponse {
	return &dto.SessionCapacityResponse{
		SessionID:       ledger.SessionID,
		MemberCapacity:  ledger.MemberCapacity,
		MemberUsed:      ledger.MemberUsed,
		MemberRemaining: ledger.MemberCapacity - ledger.MemberUsed,
		CasualCapacity:  ledger.CasualCapacity,
		CasualUsed:      ledger.CasualUsed,
		CasualRemaining: ledger.CasualCapacity - ledger.CasualUsed,
	}
}
