package alerter

import "time"

type Config struct {
	Enabled         bool          `envconfig:"ENABLED" default:"false"`
	APIURL          string        `envconfig:"API_URL" default:"https://api.telegram.org"`
	BotToken        string        `envconfig:"BOT_TOKEN"`
	ChatID          int64         `envconfig:"CHAT_ID"`
	MessageThreadID *int64        `envconfig:"MESSAGE_THREAD_ID"`
	Timeout         time.Duration `envconfig:"TIMEOUT" default:"10s"`
}
