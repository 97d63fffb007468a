package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel はamqp.Channelのうち送信に使うメソッド。
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher はRabbitMQの永続キューへイベントを送信する。
// amqp.Channelはゴルーチン安全ではないため送信はミューテックスで直列化する。
type AMQPPublisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     channel
	queue  string
	logger *slog.Logger
	now    func() time.Time
}

// DialAMQP はurlに接続し、durableなqueueを宣言したAMQPPublisherを返す。
func DialAMQP(url, queue string, logger *slog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %w", queue, err)
	}

	p := newAMQPPublisher(ch, queue, logger)
	p.conn = conn
	return p, nil
}

func newAMQPPublisher(ch channel, queue string, logger *slog.Logger) *AMQPPublisher {
	return &AMQPPublisher{
		ch:     ch,
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}
}

// Publish はイベントをJSONで永続メッセージとして送信する。
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = p.now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode audit event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.OccurredAt,
		Type:         e.Type,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.logger.Error("failed to publish audit event",
			slog.String("type", e.Type),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to publish audit event: %w", err)
	}
	return nil
}

// Close はチャネルと接続を閉じる。
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var _ Publisher = (*AMQPPublisher)(nil)
