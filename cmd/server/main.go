package main

import (
	"os"
	"time"

	"github.com/zachjustice/richard-bday-sub001/internal/config"
	"github.com/zachjustice/richard-bday-sub001/internal/database"
	"github.com/zachjustice/richard-bday-sub001/internal/handlers"
	"github.com/zachjustice/richard-bday-sub001/internal/middleware"
	"github.com/zachjustice/richard-bday-sub001/internal/services"
	"github.com/zachjustice/richard-bday-sub001/internal/tasks"
	"github.com/zachjustice/richard-bday-sub001/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_PRETTY") == "true" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	var queue tasks.Queue = tasks.NoopQueue{}
	if cfg.AMQPURL != "" {
		rmq, err := tasks.NewRabbitMQQueue(cfg.AMQPURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
		}
		defer rmq.Close()
		queue = rmq

		worker := tasks.NewSmoothingWorker(db, rmq)
		go func() {
			if err := worker.Run(); err != nil {
				log.Error().Err(err).Msg("smoothing worker stopped")
			}
		}()
	} else {
		log.Warn().Msg("AMQP_URL not set, answer smoothing disabled")
	}

	hub := ws.NewHub()
	clock := services.NewPhaseClock()

	quorumService := services.NewQuorumService(db)
	winnerService := services.NewWinnerService(db, queue, cfg.DefaultWinnerText)
	projectorService := services.NewProjectorService(db, quorumService)
	phaseService := services.NewPhaseService(
		db,
		quorumService,
		winnerService,
		projectorService,
		clock,
		hub,
		time.Duration(cfg.ForgivenessSeconds)*time.Second,
	)
	clock.Bind(phaseService.HandleDeadline)

	authService := services.NewAuthService(db, cfg.JWTSecret)
	roomService := services.NewRoomService(db)
	storyService := services.NewStoryService(db)
	submissionService := services.NewSubmissionService(db, phaseService)

	if err := storyService.Seed(); err != nil {
		log.Fatal().Err(err).Msg("failed to seed stories")
	}

	authHandler := handlers.NewAuthHandler(authService)
	roomHandler := handlers.NewRoomHandler(roomService, phaseService, projectorService)
	storyHandler := handlers.NewStoryHandler(storyService)
	playHandler := handlers.NewPlayHandler(roomService, submissionService, projectorService, hub)
	wsHandler := handlers.NewWSHandler(roomService, hub)

	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	api := router.Group("/api")
	{
		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		api.GET("/stories", storyHandler.ListStories)
		api.GET("/stories/:id", storyHandler.GetStory)

		play := api.Group("/play")
		{
			play.POST("/join", playHandler.Join)
			play.GET("/reconnect", playHandler.Reconnect)
			play.GET("/state", playHandler.GetState)
			play.POST("/answer", playHandler.SubmitAnswer)
			play.POST("/vote", playHandler.CastVote)
		}

		authed := api.Group("")
		authed.Use(middleware.JWTAuth(authService))
		{
			authed.POST("/stories", storyHandler.CreateStory)

			authed.POST("/rooms", roomHandler.CreateRoom)
			authed.GET("/rooms/:id", roomHandler.GetRoom)
			authed.PUT("/rooms/:id/settings", roomHandler.UpdateSettings)
			authed.DELETE("/rooms/:id", roomHandler.CloseRoom)
			authed.POST("/rooms/:id/start", roomHandler.StartGame)
			authed.POST("/rooms/:id/next-round", roomHandler.NextRound)
			authed.POST("/rooms/:id/end", roomHandler.EndGame)
		}
	}

	router.GET("/ws/:code", wsHandler.HandleRoomWebSocket)

	log.Info().Str("port", cfg.ServerPort).Msg("starting server")
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
