package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/yourusername/storefront-api/internal/config"
	"github.com/yourusername/storefront-api/internal/domain/repository"
	"github.com/yourusername/storefront-api/internal/handler"
	"github.com/yourusername/storefront-api/internal/middleware"
	mongoRepo "github.com/yourusername/storefront-api/internal/repository/mongo"
	pgRepo "github.com/yourusername/storefront-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/storefront-api/internal/repository/redis"
	"github.com/yourusername/storefront-api/internal/service"
	ws "github.com/yourusername/storefront-api/internal/websocket"
	"github.com/yourusername/storefront-api/pkg/auth"
	"github.com/yourusername/storefront-api/pkg/database"
	"github.com/yourusername/storefront-api/pkg/logger"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode
	zlog := logger.New(gin.Mode())

	// Создаем контекст с отменой для фоновых горутин (pub/sub событий заказов)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL и миграции
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString(), !isProduction)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Redis: OTP, кэш checkout intent, rate limiting, pub/sub
	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Репозитории
	accountRepo := pgRepo.NewAccountRepo(db)
	orderRepo := pgRepo.NewOrderRepo(db)
	productRepo := pgRepo.NewProductRepo(db)
	pgIntentRepo := pgRepo.NewIntentRepo(db)

	var cartRepo repository.CartRepository = pgRepo.NewCartRepo(db)
	if cfg.Cart.Backend == config.CartBackendMongo {
		mongoDB, err := database.NewMongoDatabase(ctx, cfg.Mongo)
		if err != nil {
			log.Printf("Failed to connect to MongoDB: %v", err)
			os.Exit(1)
		}
		defer func() {
			disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer disconnectCancel()
			if err := mongoDB.Client().Disconnect(disconnectCtx); err != nil {
				log.Printf("Error disconnecting MongoDB: %v", err)
			}
		}()
		mongoCarts, err := mongoRepo.NewCartRepo(ctx, mongoDB)
		if err != nil {
			log.Printf("Failed to initialize Mongo CartRepo: %v", err)
			os.Exit(1)
		}
		cartRepo = mongoCarts
		log.Println("Корзины хранятся в MongoDB")
	}

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}
	otpRepo, err := redisRepo.NewOTPRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize OTPRepo: %v", err)
		os.Exit(1)
	}
	// Intent хранится в PostgreSQL, Redis только кэширует чтение
	intentRepo, err := redisRepo.NewCachedIntentRepo(cacheRepo, pgIntentRepo, cfg.Payment.IntentTTL)
	if err != nil {
		log.Printf("Failed to initialize IntentRepo: %v", err)
		os.Exit(1)
	}

	// JWT: отозванные токены хранятся в Redis до истечения срока
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs, cfg.JWT.Issuer, cacheRepo)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	// WebSocket: события заказов расходятся по инстансам через Redis
	wsHub := ws.NewHub()
	wsManager := ws.NewManager(wsHub)
	eventBus := ws.NewOrderEventBus(wsHub, redisClient)
	if err := eventBus.Start(ctx); err != nil {
		log.Printf("Failed to subscribe to order events: %v. События будут доставляться только локально.", err)
	}

	// Уведомления
	mailer, err := service.NewMailer(cfg.Notifier)
	if err != nil {
		log.Printf("Failed to initialize mailer: %v", err)
		os.Exit(1)
	}
	notifier, err := service.NewNotifier(mailer, service.NotifierConfig{
		StoreName:     cfg.Notifier.StoreName,
		OperatorEmail: cfg.Notifier.OperatorEmail,
		OTPTTL:        cfg.OTP.TTL,
	}, &zlog)
	if err != nil {
		log.Printf("Failed to initialize Notifier: %v", err)
		os.Exit(1)
	}

	// Сервисы
	ledger, err := service.NewOTPLedger(otpRepo, service.OTPLedgerConfig{
		TTL:         cfg.OTP.TTL,
		Retention:   cfg.OTP.Retention,
		MaxAttempts: cfg.OTP.MaxAttempts,
		CodeLength:  cfg.OTP.CodeLength,
		Pepper:      cfg.OTP.Pepper,
	})
	if err != nil {
		log.Printf("Failed to initialize OTPLedger: %v", err)
		os.Exit(1)
	}
	identityService, err := service.NewIdentityService(accountRepo, ledger, notifier, jwtService, &zlog)
	if err != nil {
		log.Printf("Failed to initialize IdentityService: %v", err)
		os.Exit(1)
	}

	pricing := service.PricingRules{
		TaxRateBps:            cfg.Pricing.TaxRateBps,
		FreeShippingThreshold: cfg.Pricing.FreeShippingThreshold,
		ShippingFee:           cfg.Pricing.ShippingFee,
	}
	cartService, err := service.NewCartService(cartRepo, productRepo, pricing)
	if err != nil {
		log.Printf("Failed to initialize CartService: %v", err)
		os.Exit(1)
	}

	gateway, err := service.NewPaymentGateway(cfg.Payment)
	if err != nil {
		log.Printf("Failed to initialize payment gateway: %v", err)
		os.Exit(1)
	}
	if !cfg.Payment.Configured() {
		log.Println("WARNING: учетные данные платежного шлюза не заданы, оформление заказа недоступно")
	}
	checkoutService, err := service.NewCheckoutService(service.CheckoutDeps{
		Carts:    cartRepo,
		Products: productRepo,
		Accounts: accountRepo,
		Orders:   orderRepo,
		Intents:  intentRepo,
		Gateway:  gateway,
		Verifier: service.NewSignatureVerifier(cfg.Payment.KeySecret),
		Pricing:  pricing,
		Notifier: notifier,
		Events:   eventBus,
		Logger:   &zlog,
	}, service.CheckoutConfig{
		Currency:         cfg.Payment.Currency,
		ReceiptPrefix:    cfg.Payment.ReceiptPrefix,
		GatewayTimeout:   cfg.Payment.Timeout,
		DeliveryLeadTime: time.Duration(cfg.Pricing.DeliveryLeadDays) * 24 * time.Hour,
	})
	if err != nil {
		log.Printf("Failed to initialize CheckoutService: %v", err)
		os.Exit(1)
	}

	orderService, err := service.NewOrderService(orderRepo, eventBus)
	if err != nil {
		log.Printf("Failed to initialize OrderService: %v", err)
		os.Exit(1)
	}
	productService, err := service.NewProductService(productRepo)
	if err != nil {
		log.Printf("Failed to initialize ProductService: %v", err)
		os.Exit(1)
	}
	adminService, err := service.NewAdminService(cfg.Admin.Email, cfg.Admin.PasswordHash, jwtService, &zlog)
	if err != nil {
		log.Printf("Failed to initialize AdminService: %v", err)
		os.Exit(1)
	}

	// Обработчики и middleware
	authHandler := handler.NewAuthHandler(identityService)
	cartHandler := handler.NewCartHandler(cartService)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)
	orderHandler := handler.NewOrderHandler(orderService)
	productHandler := handler.NewProductHandler(productService)
	adminHandler := handler.NewAdminHandler(adminService, orderService, identityService)
	wsHandler := handler.NewWSHandler(wsHub, wsManager, jwtService, cfg.Server.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	router := gin.Default()

	// В production не доверяем прокси-заголовкам (c.ClientIP используется rate limiter)
	if isProduction {
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler(db, redisClient))

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/request-otp",
				rateLimiter.LimitByIP(middleware.OTPRequestRateLimitConfig(cfg.RateLimit.OTPRequestMax, cfg.RateLimit.Window)),
				authHandler.RequestOTP)
			authGroup.POST("/verify-otp",
				rateLimiter.LimitByIP(middleware.OTPVerifyRateLimitConfig(cfg.RateLimit.OTPVerifyMax, cfg.RateLimit.Window)),
				authHandler.VerifyOTP)

			authed := authGroup.Group("")
			authed.Use(authMiddleware.RequireAuth(), authMiddleware.CustomerOnly())
			{
				authed.GET("/me", authHandler.GetMe)
				authed.GET("/address", authHandler.GetAddress)
				authed.PUT("/address", authHandler.UpdateAddress)
				authed.POST("/logout", authHandler.Logout)
			}
		}

		api.GET("/products", productHandler.List)
		api.GET("/products/:productId", productHandler.Get)

		cart := api.Group("/cart")
		cart.Use(authMiddleware.RequireAuth(), authMiddleware.CustomerOnly())
		{
			cart.GET("", cartHandler.GetCart)
			cart.DELETE("", cartHandler.ClearCart)
			cart.GET("/quote", cartHandler.GetQuote)
			cart.POST("/items", cartHandler.AddItem)
			cart.PUT("/items/:productId", cartHandler.UpdateItem)
			cart.DELETE("/items/:productId", cartHandler.RemoveItem)
			cart.POST("/sync", cartHandler.SyncCart)
		}

		checkout := api.Group("/checkout")
		checkout.Use(authMiddleware.RequireAuth(), authMiddleware.CustomerOnly())
		{
			checkout.POST("/initiate", checkoutHandler.Initiate)
			checkout.POST("/confirm", checkoutHandler.Confirm)
		}

		orders := api.Group("/orders")
		orders.Use(authMiddleware.RequireAuth(), authMiddleware.CustomerOnly())
		{
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", middleware.ExtractUintParam("id", "orderID"), orderHandler.GetOrder)
		}

		api.POST("/admin/login", rateLimiter.LimitByIP(middleware.AdminLoginRateLimitConfig()), adminHandler.Login)

		admin := api.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.AdminOnly())
		{
			admin.GET("/orders", adminHandler.ListOrders)
			admin.GET("/orders/export", adminHandler.ExportOrders)
			admin.GET("/accounts", adminHandler.ListAccounts)

			admin.GET("/products", productHandler.AdminList)
			admin.POST("/products", productHandler.Create)
			admin.PUT("/products/:productId", productHandler.Update)
			admin.DELETE("/products/:productId", productHandler.Delete)

			adminOrder := admin.Group("/orders/:id")
			adminOrder.Use(middleware.ExtractUintParam("id", "orderID"))
			{
				adminOrder.GET("", adminHandler.GetOrder)
				adminOrder.PATCH("/status", adminHandler.UpdateOrderStatus)
			}
		}
	}

	// WebSocket маршрут (токен передается в ?token=)
	router.GET("/ws", wsHandler.HandleConnection)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Дожидаемся уведомлений по уже созданным заказам
	checkoutService.Wait()

	cancel()
	eventBus.Stop()
	wsHub.Stop()

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Println("Server exited properly")
}

// healthHandler проверяет доступность PostgreSQL и Redis
func healthHandler(db *gorm.DB, redisClient redis.UniversalClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"postgres": "ok", "redis": "ok"}
		code := http.StatusOK
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(ctx) != nil {
			status["postgres"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			status["redis"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}
