package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"socialdm/internal/adapter/api"
	"socialdm/internal/adapter/api/handler"
	apimiddleware "socialdm/internal/adapter/api/middleware"
	"socialdm/internal/adapter/api/router"
	"socialdm/internal/adapter/repository"
	domainrepo "socialdm/internal/domain/repository"
	"socialdm/internal/infrastructure/firebase"
	"socialdm/internal/infrastructure/ratelimit"
	"socialdm/internal/infrastructure/storage"
	"socialdm/internal/infrastructure/websocket"
	"socialdm/internal/usecase"
	"socialdm/pkg/config"
	"socialdm/pkg/logger"
)

type stores struct {
	conversations domainrepo.ConversationRepository
	messages      domainrepo.MessageRepository
	profiles      domainrepo.ProfileProvider
	seeder        handler.ProfileSeeder
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Configure(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	devAuth := cfg.IsDevelopment() && cfg.StoreBackend == "memory"

	var (
		opts        []option.ClientOption
		firebaseApp *fbapp.App
	)
	if !devAuth || cfg.PushEnabled {
		opts, err = firebase.ClientOptions(cfg)
		if err != nil {
			logger.Fatal("%v", err)
		}
		firebaseApp, err = firebase.NewApp(ctx, cfg, opts...)
		if err != nil {
			logger.Fatal("%v", err)
		}
	}

	var verifier apimiddleware.TokenVerifier
	if devAuth {
		logger.Warn("Development mode: accepting dev:<uid> bearer tokens")
		verifier = firebase.DevTokenVerifier{}
	} else {
		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase Auth: %v", err)
		}
		verifier = firebase.NewFirebaseAuthClient(authClient)
	}

	var st stores
	switch cfg.StoreBackend {
	case "memory":
		logger.Info("Using in-memory conversation store")
		memory := repository.NewMemoryStore()
		profiles := repository.NewMemoryProfileRepository(memory)
		st = stores{
			conversations: repository.NewMemoryConversationRepository(memory),
			messages:      repository.NewMemoryMessageRepository(memory),
			profiles:      profiles,
			seeder:        profiles,
		}
	case "firestore":
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
		if err != nil {
			logger.Fatal("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()
		st = stores{
			conversations: repository.NewFirestoreConversationRepository(firestoreClient),
			messages:      repository.NewFirestoreMessageRepository(firestoreClient),
			profiles:      repository.NewFirestoreProfileRepository(firestoreClient),
		}
	default:
		logger.Fatal("Unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	var push domainrepo.Notifier
	if cfg.PushEnabled && firebaseApp != nil {
		messagingClient, err := firebaseApp.Messaging(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase Messaging: %v", err)
		}
		push = firebase.NewPushNotifier(messagingClient)
	}
	notifier := usecase.CombineNotifiers(push, websocket.NewNotifier(wsManager))

	var mediaStore domainrepo.MediaStore
	switch cfg.MediaBackend {
	case "gcs":
		storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, opts...)
		if err != nil {
			logger.Fatal("Failed to initialize Cloud Storage: %v", err)
		}
		defer storageClient.Close()
		mediaStore = storageClient
	case "s3":
		mediaStore = storage.NewS3Storage(storage.S3Config{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			PublicURL:       cfg.S3.PublicURL,
		})
	default:
		logger.Info("Image uploads disabled")
	}

	rateLimiter := ratelimit.NewRateLimiter(map[string]ratelimit.Policy{
		ratelimit.ActionSendMessage:  {Burst: cfg.RateLimit.SendMessageBurst, Every: cfg.RateLimit.SendMessageEvery},
		ratelimit.ActionCreateGroup:  {Burst: cfg.RateLimit.CreateGroupBurst, Every: cfg.RateLimit.CreateGroupEvery},
		apimiddleware.ActionRequest: {Burst: cfg.RateLimit.RequestBurst, Every: cfg.RateLimit.RequestEvery},
	})
	rateLimiter.StartCleanupRoutine(ratelimit.DefaultCleanupInterval, ctx.Done())

	conversationUseCase := usecase.NewConversationUseCase(st.conversations, st.messages, st.profiles, rateLimiter)
	messageUseCase := usecase.NewMessageUseCase(st.conversations, st.messages, notifier, rateLimiter)
	membershipUseCase := usecase.NewMembershipUseCase(st.conversations, st.profiles)
	subscriptionUseCase := usecase.NewSubscriptionUseCase(st.conversations, st.messages)
	mediaUseCase := usecase.NewMediaUseCase(st.conversations, mediaStore)

	handler.Setup(handler.Dependencies{
		ConversationUseCase: conversationUseCase,
		MessageUseCase:      messageUseCase,
		MembershipUseCase:   membershipUseCase,
		SubscriptionUseCase: subscriptionUseCase,
		MediaUseCase:        mediaUseCase,
		WSManager:           wsManager,
		AllowedOrigins:      cfg.AllowedOrigins,
		Environment:         cfg.Environment,
	})
	if st.seeder != nil {
		handler.SetupDevTokenHandler(st.seeder)
	}

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	if len(cfg.AllowedOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	} else {
		e.Use(middleware.CORS())
	}
	e.Use(middleware.BodyLimit("12M"))

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(verifier)
	router.Setup(e, authMiddleware, rateLimiter, cfg.Environment)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}
