package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/ffarena/backend/internal/models"
)

// TransactionCommitted is emitted after a wallet transaction is durably
// committed. Downstream consumers (notifications, analytics) read it from
// Kafka; the wallet never blocks on them.
type TransactionCommitted struct {
	TransactionID string          `json:"transaction_id"`
	AccountID     string          `json:"account_id"`
	Currency      models.Currency `json:"currency"`
	Direction     models.Direction `json:"direction"`
	Amount        decimal.Decimal `json:"amount"`
	Source        string          `json:"source"`
	TournamentID  string          `json:"tournament_id,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// Publisher writes wallet events to Kafka.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a publisher from config. Returns nil when no brokers
// are configured; callers treat a nil publisher as a no-op, same as the
// optional Redis client.
func NewPublisher() *Publisher {
	viper.SetDefault("kafka.topic", "wallet_transactions")
	brokers := viper.GetStringSlice("kafka.brokers")
	if len(brokers) == 0 {
		return nil
	}

	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    viper.GetString("kafka.topic"),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// PublishTransaction emits a TransactionCommitted event keyed by account so
// per-account ordering is preserved.
func (p *Publisher) PublishTransaction(ctx context.Context, wtx *models.WalletTransaction) error {
	if p == nil {
		return nil
	}

	event := TransactionCommitted{
		TransactionID: wtx.ID,
		AccountID:     wtx.AccountID,
		Currency:      wtx.Currency,
		Direction:     wtx.Direction,
		Amount:        wtx.Amount,
		Source:        wtx.Source,
		TournamentID:  wtx.TournamentID,
		OccurredAt:    wtx.CreatedAt,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(wtx.AccountID),
		Value: data,
	})
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
