package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher olayları fanout exchange'e kalıcı olmayan mesaj olarak basar.
// Kuyruk tanımlamaz; dinleyen yoksa mesaj kaybolur.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("RabbitMQ bağlantısı kurulamadı: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("RabbitMQ kanalı açılamadı: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange, // name
		"fanout", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("exchange tanımlanamadı: %w", err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Broadcast(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("bildirim serileştirilemedi: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil || p.ch.IsClosed() {
		return fmt.Errorf("RabbitMQ kanalı kapalı")
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Transient,
		Timestamp:    ev.At,
		Type:         ev.Type,
	})
	if err != nil {
		return fmt.Errorf("bildirim yayınlanamadı: %w", err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
