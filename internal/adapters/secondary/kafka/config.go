package kafka

import (
	"strings"
	"time"

	"github.com/IBM/sarama"
)

// Config конфигурация Kafka; RequestsTopic включает consumer заявок на расчёт
type Config struct {
	Enabled          bool   `envconfig:"ENABLED" default:"false"`
	Brokers          string `envconfig:"BROKERS"`                               // "broker1:9092,broker2:9092"
	Topic            string `envconfig:"TOPIC" default:"astro-natal.charts"`    // название топика
	SecurityProtocol string `envconfig:"SECURITY_PROTOCOL" default:"PLAINTEXT"` // "SASL_SSL", "PLAINTEXT"
	SASLMechanism    string `envconfig:"SASL_MECHANISM"`                        // "PLAIN", "SCRAM-SHA-256"
	SASLUsername     string `envconfig:"SASL_USERNAME"`
	SASLPassword     string `envconfig:"SASL_PASSWORD"`
	RequestsTopic    string `envconfig:"REQUESTS_TOPIC"`
	ConsumerGroup    string `envconfig:"CONSUMER_GROUP" default:"astro-natal"`
	// RequestsRetryDelay пауза перед повтором заявки, пока нет сети
	RequestsRetryDelay time.Duration `envconfig:"REQUESTS_RETRY_DELAY" default:"30s"`
}

// GetBrokers возвращает список брокеров из строки
func (c *Config) GetBrokers() []string {
	if c.Brokers == "" {
		return []string{"localhost:9092"}
	}
	brokers := strings.Split(c.Brokers, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	return brokers
}

// ApplySecurity настройка SASL/TLS (если указано)
func (c *Config) ApplySecurity(config *sarama.Config) {
	if c.SecurityProtocol != "SASL_SSL" && c.SecurityProtocol != "SASL_PLAINTEXT" {
		return
	}
	config.Net.SASL.Enable = true
	config.Net.SASL.Mechanism = sarama.SASLTypePlaintext
	if c.SASLMechanism == "SCRAM-SHA-256" {
		config.Net.SASL.Mechanism = sarama.SASLTypeSCRAMSHA256
	}
	config.Net.SASL.User = c.SASLUsername
	config.Net.SASL.Password = c.SASLPassword
	// TLS только для SASL_SSL
	if c.SecurityProtocol == "SASL_SSL" {
		config.Net.TLS.Enable = true
	}
}
