// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list (queue) name for round records.
var DefaultQueueName = "jamsesh_rounds"

// RoundRecord holds the minimal info the historian needs to persist one
// finished round.
type RoundRecord struct {
	LobbyCode   string                 `json:"lobby_code"`
	RoundNumber int                    `json:"round_number"`
	SongTitle   string                 `json:"song_title"`
	SongArtist  string                 `json:"song_artist"`
	SongSource  string                 `json:"song_source"`
	SongID      string                 `json:"song_source_id"`
	Guesses     map[string]GuessEntry  `json:"guesses"`
	Scoreboard  map[string]int         `json:"scoreboard"`
	Extra       map[string]interface{} `json:"extra,omitempty"`
	Timestamp   int64                  `json:"timestamp"`
}

// GuessEntry is one player's answer inside a RoundRecord.
type GuessEntry struct {
	Guess   string  `json:"guess"`
	Correct bool    `json:"correct"`
	Elapsed float64 `json:"elapsed"`
	Score   int     `json:"score"`
}

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// PublishRoundRecord serializes the record to JSON and pushes it onto the
// historian queue. A quick network send; never blocks game logic.
func PublishRoundRecord(ctx context.Context, record RoundRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoundRecord: %w", err)
	}

	queueName := getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", queueName, err)
	}
	return nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
