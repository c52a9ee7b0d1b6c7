package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	domain "main/internal/domain/entity/portfolio"
	"main/internal/domain/interfaces"
)

// Publisher broadcasts committed ledger transactions to a durable fanout
// exchange. It runs outside the database unit of work: consumers get
// best-effort delivery of events whose mutations have already committed.
type Publisher struct {
	exchange string
	logger   *logrus.Entry

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

var _ interfaces.TransactionPublisher = (*Publisher)(nil)

func NewPublisher(url, exchange string, logger *logrus.Logger) (*Publisher, error) {
	if url == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &Publisher{
		exchange: exchange,
		logger:   logger.WithField("component", "transaction_publisher"),
		conn:     conn,
		ch:       ch,
	}, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

type transactionEvent struct {
	ID             string  `json:"id"`
	WalletID       string  `json:"wallet_id"`
	AssetID        *string `json:"asset_id,omitempty"`
	Type           string  `json:"type"`
	Quantity       *string `json:"quantity,omitempty"`
	Price          *string `json:"price,omitempty"`
	TotalValue     string  `json:"total_value"`
	ExecutedAt     string  `json:"executed_at"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// PublishTransaction serializes the ledger entry and publishes it as a
// persistent message.
func (p *Publisher) PublishTransaction(ctx context.Context, tx *domain.Transaction) error {
	event := transactionEvent{
		ID:             tx.ID.String(),
		WalletID:       tx.WalletID.String(),
		Type:           tx.Type.String(),
		TotalValue:     tx.TotalValue.String(),
		ExecutedAt:     tx.ExecutedAt.UTC().Format(time.RFC3339),
		IdempotencyKey: tx.IdempotencyKey,
	}
	if tx.AssetID != nil {
		assetID := tx.AssetID.String()
		event.AssetID = &assetID
	}
	if tx.Quantity != nil {
		quantity := tx.Quantity.String()
		event.Quantity = &quantity
	}
	if tx.Price != nil {
		price := tx.Price.String()
		event.Price = &price
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode transaction event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return errors.New("publisher is closed")
	}
	return p.ch.PublishWithContext(ctx, p.exchange, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}
