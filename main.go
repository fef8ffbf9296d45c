package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"conversation-index/internal/config"
	"conversation-index/internal/db"
	"conversation-index/internal/handlers"
	"conversation-index/internal/index"
	"conversation-index/internal/middleware"
	"conversation-index/internal/observability"
	"conversation-index/internal/rabbitmq"
	"conversation-index/internal/repositories"
	"conversation-index/internal/telemetry"
	"conversation-index/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown failed: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	notifier, err := repositories.NewNotifier(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to start change notifier: %v", err)
	}
	defer notifier.Close()

	friendRepo := repositories.NewFriendRepo(database, notifier)
	roomRepo := repositories.NewRoomRepo(database, notifier)
	profileRepo := repositories.NewProfileRepo(database)

	ix := index.New(friendRepo, roomRepo, profileRepo)

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("audit publisher mode=%s reason=%q", rabbitmq.PublisherMode(publisher), rabbitmq.PublisherNoopReason(publisher))
	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, cfg.ServiceName, cfg.Environment)

	if cfg.AMQPURL != "" {
		wsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("ws event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(wsPublisher)
			defer wsPublisher.Close()
		}
	}

	hub := ws.NewHub()
	defer hub.CloseAll()

	conversationHandler := handlers.NewConversationHandler(ix)
	roomHandler := handlers.NewRoomHandler(roomRepo, friendRepo, profileRepo, audit)
	friendHandler := handlers.NewFriendHandler(friendRepo, friendRepo, profileRepo, audit)
	streamHandler := ws.NewConversationStreamHandler(hub, ix)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	identity := middleware.IdentityMiddleware()

	router.GET("/users/:user_id/conversations", identity, conversationHandler.GetConversations)

	router.GET("/friends", identity, friendHandler.ListFriends)
	router.PUT("/friends/:friend_id", identity, friendHandler.PutFriend)
	router.DELETE("/friends/:friend_id", identity, friendHandler.DeleteFriend)

	router.GET("/friend-requests", identity, friendHandler.ListFriendRequests)
	router.POST("/friend-requests/:user_id", identity, friendHandler.SendFriendRequest)
	router.POST("/friend-requests/:user_id/accept", identity, friendHandler.AcceptFriendRequest)
	router.DELETE("/friend-requests/:user_id", identity, friendHandler.DeclineFriendRequest)

	router.POST("/rooms/start", identity, roomHandler.StartRoom)
	router.GET("/rooms/:room_id/messages", identity, roomHandler.GetRoomMessages)
	router.POST("/rooms/:room_id/messages", identity, roomHandler.PostRoomMessage)
	router.POST("/messages", identity, roomHandler.SendDirectMessage)

	router.GET("/ws/conversations", streamHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
