package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Port         string
	StaticDir    string
	PostgresDSN  string
	KafkaBrokers []string
	KafkaTopic   string
	SendBuffer   int
	Debug        bool
}

// Load reads the server configuration from the environment.
// An empty POSTGRES_DSN or KAFKA_BROKERS switches that sink off.
func Load() Config {
	return Config{
		Port:         getenv("PORT", "3000"),
		StaticDir:    getenv("STATIC_DIR", "./public"),
		PostgresDSN:  getenv("POSTGRES_DSN", ""),
		KafkaBrokers: splitList(getenv("KAFKA_BROKERS", "")),
		KafkaTopic:   getenv("KAFKA_TOPIC", "battleship.analytics"),
		SendBuffer:   atoi(getenv("SEND_BUFFER", "64"), 64),
		Debug:        getenv("DEBUG", "false") == "true",
	}
}

func (c Config) Addr() string { return ":" + c.Port }

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func atoi(s string, def int) int {
	var n int
	if _, err := fmt.Sscan(s, &n); err != nil || n <= 0 {
		return def
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
