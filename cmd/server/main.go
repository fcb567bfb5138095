// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jamsesh/jamsesh/internal/auth"
	"github.com/jamsesh/jamsesh/internal/cache"
	"github.com/jamsesh/jamsesh/internal/catalog"
	"github.com/jamsesh/jamsesh/internal/database"
	"github.com/jamsesh/jamsesh/internal/game"
	"github.com/jamsesh/jamsesh/internal/handlers"
	"github.com/jamsesh/jamsesh/internal/middleware"
)

const lobbyMaxAge = 24 * time.Hour

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Both stores are optional; the game itself lives in memory.
	if os.Getenv("DATABASE_URL") != "" || os.Getenv("PG_HOST") != "" {
		database.ConnectDB()
	} else {
		logger.Info("no database configured, game archiving disabled")
	}
	redisEnabled := false
	if os.Getenv("REDIS_ADDR") != "" {
		if err := cache.ConnectRedis(); err != nil {
			logger.Warnf("redis connect failed, round history disabled: %v", err)
		} else {
			redisEnabled = true
		}
	}

	srv := handlers.NewGameServer(logger)
	wireArchiving(srv, logger, redisEnabled)

	go reapIdleLobbies(srv, logger)

	mux := http.NewServeMux()
	mux.Handle("/lobby/ws", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GameWSHandler(logger, srv),
	)))
	mux.Handle("/songs/search", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SearchHandler(logger, catalog.NewITunesProvider()),
	)))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// wireArchiving hooks the scheduler's persistence callbacks up to Redis
// (per-round records for the historian) and Postgres (final game results).
// Both fire outside game locks on their own goroutines.
func wireArchiving(srv *handlers.GameServer, logger *logrus.Logger, redisEnabled bool) {
	if redisEnabled {
		srv.Scheduler.OnRoundArchived = func(code string, res *game.RoundResult) {
			rec := cache.RoundRecord{
				LobbyCode:   code,
				RoundNumber: res.RoundNumber,
				SongTitle:   res.Song.Title,
				SongArtist:  res.Song.Artist,
				SongSource:  res.Song.Source,
				SongID:      res.Song.SourceID,
				Guesses:     make(map[string]cache.GuessEntry, len(res.Guesses)),
				Scoreboard:  make(map[string]int, len(res.Scoreboard)),
				Timestamp:   time.Now().Unix(),
			}
			for id, g := range res.Guesses {
				rec.Guesses[id.String()] = cache.GuessEntry{
					Guess: g.Guess, Correct: g.Correct, Elapsed: g.Elapsed, Score: g.Score,
				}
			}
			for id, score := range res.Scoreboard {
				rec.Scoreboard[id.String()] = score
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := cache.PublishRoundRecord(ctx, rec); err != nil {
				logger.Warnf("failed to publish round record for %s: %v", code, err)
			}
		}
	}

	srv.Scheduler.OnGameArchived = func(code string, res *game.GameResults) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := database.RecordGameResults(ctx, code, res); err != nil {
			logger.Warnf("failed to archive game results for %s: %v", code, err)
		}
	}
}

// reapIdleLobbies periodically removes lobbies past the age cap, cancelling
// their timers and dropping their rooms.
func reapIdleLobbies(srv *handlers.GameServer, logger *logrus.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		removed := srv.Registry.Cleanup(lobbyMaxAge)
		for _, code := range removed {
			srv.Scheduler.CancelLobby(code)
			srv.Hub.Broadcast(code, game.Event{Type: game.EventLobbyClosed})
			srv.Hub.CloseRoom(code)
		}
		if len(removed) > 0 {
			logger.Infof("Reaped %d expired lobbies", len(removed))
		}
	}
}
