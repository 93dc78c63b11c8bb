package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sevenbit/faircore/internal/config"
	"github.com/sevenbit/faircore/internal/fair"
	"github.com/sevenbit/faircore/internal/handlers"
	"github.com/sevenbit/faircore/internal/ledger"
	"github.com/sevenbit/faircore/internal/middleware"
	"github.com/sevenbit/faircore/internal/services"
)

func main() {
	log := logrus.New()

	if err := godotenv.Load(); err != nil {
		log.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	defer client.Close()

	seeds := fair.NewManager(fair.NewRedisStore(client), cfg.MaxNonce)
	wallets := ledger.NewRedisLedger(client, cfg.StartingBalance)
	rounds := services.NewRedisRoundStore(client)
	jwtService := services.NewJWTService(cfg)

	wsHandler := handlers.NewWebSocketHandler(wallets, log)
	engine := services.NewEngine(cfg, seeds, wallets, rounds, wsHandler, log)

	gameHandler := handlers.NewGameHandler(engine)
	walletHandler := handlers.NewWalletHandler(wallets)

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(rounds))
	{
		protected.GET("/ws", wsHandler.HandleWebSocket)

		games := protected.Group("/games")
		{
			games.POST("/bet", gameHandler.PlaceBet)
			games.GET("/history", gameHandler.GetHistory)

			games.GET("/verification", gameHandler.GetVerificationData)
			games.POST("/verify", gameHandler.Verify)

			games.POST("/crash/cashout", gameHandler.CashoutCrash)

			mines := games.Group("/mines")
			{
				mines.POST("/reveal", gameHandler.RevealMines)
				mines.POST("/cashout", gameHandler.CashoutMines)
			}
		}

		seedsGroup := protected.Group("/seeds")
		{
			seedsGroup.POST("/rotate", gameHandler.RotateSeeds)
			seedsGroup.PUT("/client", gameHandler.SetClientSeed)
		}

		wallet := protected.Group("/wallet")
		{
			wallet.GET("/balance", walletHandler.GetBalance)
			wallet.GET("/transactions", walletHandler.GetTransactions)
			wallet.POST("/transaction", walletHandler.ApplyTransaction)
			wallet.POST("/rollback", walletHandler.Rollback)
		}
	}

	log.WithField("port", cfg.Port).Info("server starting")
	if err := router.Run(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
