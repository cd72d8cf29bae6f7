package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
)

// BookingPolicyRepository 预约策略数据访问接口（单行）
type BookingPolicyRepository interface {
	Get(ctx context.Context) (*model.BookingPolicy, error)
	Update(ctx context.Context, policy *model.BookingPolicy) error
}

type bookingPolicyRepo struct {
	db *gorm.DB
}

// NewBookingPolicyRepo 创建 BookingPolicyRepository 实例
func NewBookingPolicyRepo(db *gorm.DB) BookingPolicyRepository {
	return &bookingPolicyRepo{db: db}
}

func (r *bookingPolicyRepo) Get(ctx context.Context) (*model.BookingPolicy, error) {
	var policy model.BookingPolicy
	err := r.db.WithContext(ctx).First(&policy).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *bookingPolicyRepo) Update(ctx context.Context, policy *model.BookingPolicy) error {
	policy.Singleton = true
	return r.db.WithContext(ctx).Save(policy).Error
}
