package kafka

import (
	"context"
)

// MessageHandler обработчик входящих сообщений Kafka
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, value []byte) error
}
