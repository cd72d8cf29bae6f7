// Package mq 将预约领域事件发布到 RabbitMQ，供外部通知服务（邮件等）消费。
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/UoaWDCC/uabc-web-sub005/config"
)

// 预约事件路由键
const (
	RoutingBookingCreated   = "booking.created"
	RoutingBookingConfirmed = "booking.confirmed"
	RoutingBookingCancelled = "booking.cancelled"
)

// BookingEvent 预约事件消息体
type BookingEvent struct {
	BookingID    string    `json:"booking_id"`
	SessionID    string    `json:"session_id"`
	UserID       string    `json:"user_id"`
	SlotKind     string    `json:"slot_kind"`
	Status       string    `json:"status"`
	SessionStart time.Time `json:"session_start"`
	Refunded     bool      `json:"refunded,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher 持有一条长连接与 channel，channel 非并发安全，发布时加锁
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
}

// NewPublisher 连接 RabbitMQ 并声明 topic 交换机
func NewPublisher(cfg *config.MQConfig, logger *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ 连接失败: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("RabbitMQ 打开 channel 失败: %w", err)
	}

	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("声明交换机失败: %w", err)
	}

	logger.Info("RabbitMQ 连接成功", zap.String("exchange", cfg.Exchange))

	return &Publisher{conn: conn, ch: ch, exchange: cfg.Exchange, logger: logger}, nil
}

// Publish 以持久化消息发布 JSON 负载
func (p *Publisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Close 关闭 channel 与连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		p.logger.Warn("关闭 RabbitMQ channel 失败", zap.Error(err))
	}
	return p.conn.Close()
}
