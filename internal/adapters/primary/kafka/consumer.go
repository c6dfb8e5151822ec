package kafka

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/IBM/sarama"

	kafkaAdapter "github.com/admin/astro-natal/internal/adapters/secondary/kafka"
	"github.com/admin/astro-natal/internal/domain"
	kafkaPorts "github.com/admin/astro-natal/internal/ports/kafka"
)

// failurePause пауза перед новой сессией после технической ошибки обработки
const failurePause = 5 * time.Second

// Consumer читает заявки на расчёт карт из RequestsTopic
type Consumer struct {
	consumer sarama.ConsumerGroup
	topic    string
	handler  kafkaPorts.MessageHandler
	log      *slog.Logger
}

// NewConsumer создаёт новый Kafka consumer
func NewConsumer(cfg *kafkaAdapter.Config, handler kafkaPorts.MessageHandler, log *slog.Logger) (*Consumer, error) {
	if cfg.RequestsTopic == "" {
		return nil, fmt.Errorf("kafka requests topic is not configured")
	}

	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	cfg.ApplySecurity(config)

	consumer, err := sarama.NewConsumerGroup(cfg.GetBrokers(), cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	log.Info("kafka consumer created",
		"brokers", cfg.Brokers,
		"topic", cfg.RequestsTopic,
		"consumer_group", cfg.ConsumerGroup,
	)

	return &Consumer{
		consumer: consumer,
		topic:    cfg.RequestsTopic,
		handler:  handler,
		log:      log,
	}, nil
}

// Start блокирует до отмены ctx; Consume возвращается на каждой ребалансировке
// и после технической ошибки, тогда сообщение перечитывается с последнего коммита
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		handler: c.handler,
		log:     c.log,
		topic:   c.topic,
	}

	for {
		if err := c.consumer.Consume(ctx, []string{c.topic}, handler); err != nil {
			c.log.Error("error from consumer",
				"error", err,
				"topic", c.topic,
			)
			return fmt.Errorf("consumer error: %w", err)
		}
		if ctx.Err() != nil {
			c.log.Info("kafka consumer stopping", "topic", c.topic)
			return nil
		}
		if handler.failed.Swap(false) {
			timer := time.NewTimer(failurePause)
			select {
			case <-ctx.Done():
				timer.Stop()
				c.log.Info("kafka consumer stopping", "topic", c.topic)
				return nil
			case <-timer.C:
			}
		}
	}
}

// Close закрывает consumer
func (c *Consumer) Close() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.log.Info("kafka consumer closed", "topic", c.topic)
	return nil
}

// consumerGroupHandler реализует sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	handler kafkaPorts.MessageHandler
	log     *slog.Logger
	topic   string
	failed  atomic.Bool
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Info("kafka consumer group session setup", "topic", h.topic)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Info("kafka consumer group session cleanup", "topic", h.topic)
	return nil
}

// ConsumeClaim бизнес-ошибки (битое сообщение, невалидные данные) коммитятся
// и больше не читаются. Техническая ошибка завершает claim без коммита этого
// сообщения, иначе следующий MarkMessage сдвинул бы offset за него
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			key := string(message.Key)
			if err := h.handler.HandleMessage(session.Context(), key, message.Value); err != nil {
				if domain.IsBusinessError(err) {
					h.log.Info("kafka message rejected",
						"error", err,
						"key", key,
						"offset", message.Offset,
					)
					session.MarkMessage(message, "")
					continue
				}
				h.log.Error("failed to handle kafka message",
					"error", err,
					"topic", message.Topic,
					"key", key,
					"partition", message.Partition,
					"offset", message.Offset,
				)
				h.failed.Store(true)
				return fmt.Errorf("message at offset %d not processed: %w", message.Offset, err)
			}

			// commit offset
			session.MarkMessage(message, "")
		}
	}
}
