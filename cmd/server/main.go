// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/playcrit/critical/internal/auth"
	"github.com/playcrit/critical/internal/bot"
	"github.com/playcrit/critical/internal/cache"
	"github.com/playcrit/critical/internal/critical"
	"github.com/playcrit/critical/internal/database"
	"github.com/playcrit/critical/internal/engine"
	"github.com/playcrit/critical/internal/handlers"
	"github.com/playcrit/critical/internal/middleware"
	"github.com/playcrit/critical/internal/seabattle"
	"github.com/playcrit/critical/internal/session"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	registry := engine.NewRegistry()
	registry.Register(critical.NewCritical())
	registry.Register(critical.NewExplodingCats())
	registry.Register(seabattle.New())

	var repo session.Repository
	if os.Getenv("PG_HOST") != "" {
		database.ConnectDB()
		repo = database.SessionRepository{}
	} else {
		logger.Warn("PG_HOST not set; sessions are kept in memory only")
	}

	hub := handlers.NewHub(logger)
	facade := session.NewFacade(registry, session.NewStore(), repo, hub, logger)

	if os.Getenv("REDIS_ADDR") != "" {
		if err := cache.ConnectRedis(); err != nil {
			logger.Warnf("Redis unavailable, action history disabled: %v", err)
		} else {
			facade.EnableActionQueue()
		}
	}

	agent := bot.NewAgent(facade, []string{"critical", "exploding-cats"}, logger)
	facade.AddPostActionHook(agent.Hook)

	mux := http.NewServeMux()
	mux.Handle("/games", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ListGamesHandler(registry),
	)))
	mux.Handle("/session/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateSessionHandler(logger, facade),
	)))
	mux.Handle("/session/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.GetSessionHandler(logger, facade),
	)))
	mux.Handle("/session/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.SessionWSHandler(logger, facade, hub),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
