package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	cancelBookingHandler "github.com/overlinehq/booking-service/internal/api/handlers/cancel_booking"
	createBookingHandler "github.com/overlinehq/booking-service/internal/api/handlers/create_booking"
	getAvailableSlotsHandler "github.com/overlinehq/booking-service/internal/api/handlers/get_available_slots"
	getBookingHandler "github.com/overlinehq/booking-service/internal/api/handlers/get_booking"
	getNextAvailableSlotHandler "github.com/overlinehq/booking-service/internal/api/handlers/get_next_available_slot"
	getQueuePositionHandler "github.com/overlinehq/booking-service/internal/api/handlers/get_queue_position"
	getShopBookingsHandler "github.com/overlinehq/booking-service/internal/api/handlers/get_shop_bookings"
	getShopQueueStatsHandler "github.com/overlinehq/booking-service/internal/api/handlers/get_shop_queue_stats"
	getUserBookingsHandler "github.com/overlinehq/booking-service/internal/api/handlers/get_user_bookings"
	rescheduleBookingHandler "github.com/overlinehq/booking-service/internal/api/handlers/reschedule_booking"
	updateBookingStatusHandler "github.com/overlinehq/booking-service/internal/api/handlers/update_booking_status"
	"github.com/overlinehq/booking-service/internal/api/middleware"
	"github.com/overlinehq/booking-service/internal/config"
	"github.com/overlinehq/booking-service/internal/infra/cache"
	queueCache "github.com/overlinehq/booking-service/internal/infra/cache/queue"
	slotsCache "github.com/overlinehq/booking-service/internal/infra/cache/slots"
	bookingRepo "github.com/overlinehq/booking-service/internal/infra/storage/booking"
	queuestatsRepo "github.com/overlinehq/booking-service/internal/infra/storage/queuestats"
	scheduleRepo "github.com/overlinehq/booking-service/internal/infra/storage/schedule"
	notifyServiceClient "github.com/overlinehq/booking-service/internal/integrations/notifyservice"
	shopServiceClient "github.com/overlinehq/booking-service/internal/integrations/shopservice"
	bookingsService "github.com/overlinehq/booking-service/internal/service/bookings"
	queueService "github.com/overlinehq/booking-service/internal/service/queue"
	createBookingUC "github.com/overlinehq/booking-service/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/overlinehq/booking-service/internal/usecase/get_available_slots"
	getNextAvailableSlotUC "github.com/overlinehq/booking-service/internal/usecase/get_next_available_slot"
	rescheduleBookingUC "github.com/overlinehq/booking-service/internal/usecase/reschedule_booking"
	"github.com/overlinehq/booking-service/pkg/dbmetrics"
	"github.com/overlinehq/booking-service/pkg/logger"
	"github.com/overlinehq/booking-service/pkg/metrics"
	"github.com/overlinehq/booking-service/pkg/simpletxmanager"
	"github.com/overlinehq/booking-service/pkg/txmanager"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.Load("config.toml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting booking-service...")
	log.Info("Configuration loaded from config.toml")

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		log.Fatal("Failed to ping database: %v", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	// Подключаемся к Redis (кэши переживают его отсутствие: nil клиент
	// означает сплошные промахи и прямой пересчет)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = cache.NewRedisClient(cfg.Redis)
		if err := cache.Ping(context.Background(), redisClient); err != nil {
			log.Fatal("Failed to ping Redis: %v", err)
		}
		defer cache.Close(redisClient)
		log.Info("Successfully connected to Redis (address=%s, db=%d)", cfg.Redis.Address, cfg.Redis.DB)
	} else {
		log.Warn("Redis disabled, slot and queue caches are no-op")
	}

	slotCache := slotsCache.NewCache(redisClient, time.Duration(cfg.Redis.SlotsTTLSeconds)*time.Second)
	statsCache := queueCache.NewCache(redisClient, time.Duration(cfg.Redis.StatsTTLSeconds)*time.Second)

	// Инициализируем интеграционных клиентов
	shopClient := shopServiceClient.NewClient(
		cfg.ShopService.URL,
		time.Duration(cfg.ShopService.Timeout)*time.Second,
		log,
	)
	notifyClient := notifyServiceClient.NewClient(
		cfg.NotifyService.URL,
		time.Duration(cfg.NotifyService.Timeout)*time.Second,
		log,
	)
	log.Info("Integration clients initialized (ShopService=%s timeout=%ds, NotifyService=%s timeout=%ds)",
		cfg.ShopService.URL, cfg.ShopService.Timeout, cfg.NotifyService.URL, cfg.NotifyService.Timeout)

	// Инициализируем репозитории (с метриками или без)
	var (
		bookingRepository    *bookingRepo.Repository
		scheduleRepository   *scheduleRepo.Repository
		queuestatsRepository *queuestatsRepo.Repository
	)

	// Интерфейс для transaction manager (используется в usecases)
	type TxManager interface {
		DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
	}
	var txMgr TxManager

	if cfg.Metrics.Enabled {
		wrappedDB := dbmetrics.WrapWithDefault(db, metricsCollector, cfg.Metrics.ServiceName, stopMetricsCh)
		log.Info("Database metrics collection started")

		bookingRepository = bookingRepo.NewRepository(wrappedDB)
		scheduleRepository = scheduleRepo.NewRepository(wrappedDB)
		queuestatsRepository = queuestatsRepo.NewRepository(wrappedDB)
		txMgr = txmanager.NewTransactionManager(wrappedDB)
	} else {
		bookingRepository = bookingRepo.NewRepository(db)
		scheduleRepository = scheduleRepo.NewRepository(db)
		queuestatsRepository = queuestatsRepo.NewRepository(db)
		txMgr = simpletxmanager.NewTransactionManager(db)
	}

	// Инициализируем use cases и сервисы.
	// Порядок важен: очередь через поиск ближайшего слота зависит от
	// генерации слотов, а admission usecases - от пересчета очереди.
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		bookingRepository,
		scheduleRepository,
		shopClient,
		slotCache,
		log,
	)

	getNextAvailableSlotUseCase := getNextAvailableSlotUC.NewUseCase(getAvailableSlotsUseCase, log)

	queueSvc := queueService.NewService(
		bookingRepository,
		queuestatsRepository,
		statsCache,
		shopClient,
		getNextAvailableSlotUseCase,
		log,
	)

	createBookingUseCase := createBookingUC.NewUseCase(
		bookingRepository,
		scheduleRepository,
		shopClient,
		notifyClient,
		slotCache,
		queueSvc,
		txMgr,
		log,
	)

	rescheduleBookingUseCase := rescheduleBookingUC.NewUseCase(
		bookingRepository,
		scheduleRepository,
		shopClient,
		notifyClient,
		slotCache,
		queueSvc,
		txMgr,
		log,
	)

	bookingSvc := bookingsService.NewService(
		bookingRepository,
		shopClient,
		queueSvc,
		notifyClient,
		slotCache,
		queueSvc,
		log,
	)

	// Инициализируем handlers
	getAvailableSlots := getAvailableSlotsHandler.NewHandler(getAvailableSlotsUseCase, log)
	getNextAvailableSlot := getNextAvailableSlotHandler.NewHandler(getNextAvailableSlotUseCase, log)
	createBooking := createBookingHandler.NewHandler(createBookingUseCase, log)
	rescheduleBooking := rescheduleBookingHandler.NewHandler(rescheduleBookingUseCase, log)
	updateBookingStatus := updateBookingStatusHandler.NewHandler(bookingSvc, log)
	cancelBooking := cancelBookingHandler.NewHandler(bookingSvc, log)
	getBooking := getBookingHandler.NewHandler(bookingSvc, log)
	getQueuePosition := getQueuePositionHandler.NewHandler(queueSvc, log)
	getShopQueueStats := getShopQueueStatsHandler.NewHandler(queueSvc, log)
	getUserBookings := getUserBookingsHandler.NewHandler(bookingSvc, log)
	getShopBookings := getShopBookingsHandler.NewHandler(bookingSvc, log)

	// Настраиваем роутер
	r := mux.NewRouter()

	// Добавляем metrics middleware (если метрики включены)
	if cfg.Metrics.Enabled {
		r.Use(middleware.MetricsMiddleware(metricsCollector, cfg.Metrics.ServiceName))
		r.Handle(cfg.Metrics.Path, promhttp.Handler()).Methods(http.MethodGet)
		log.Info("Prometheus metrics endpoint exposed at %s", cfg.Metrics.Path)
	}

	// API prefix
	api := r.PathPrefix("/api/v1").Subrouter()

	// ============================================================
	// PUBLIC ROUTES (без аутентификации)
	// ============================================================

	// Доступные слоты на дату
	api.HandleFunc("/shops/{shopId}/available-slots",
		getAvailableSlots.Handle).Methods(http.MethodGet)

	// Ближайший доступный слот
	api.HandleFunc("/shops/{shopId}/next-available-slot",
		getNextAvailableSlot.Handle).Methods(http.MethodGet)

	// Статистика очереди магазина
	api.HandleFunc("/shops/{shopId}/queue-stats",
		getShopQueueStats.Handle).Methods(http.MethodGet)

	// --- Бронирования ---
	// Создание: доступно и гостям, X-User-ID подхватывается при наличии
	api.HandleFunc("/bookings", createBooking.Handle).Methods(http.MethodPost)

	// Получение бронирования по ID (с живой позицией в очереди)
	api.HandleFunc("/bookings/{bookingId}", getBooking.Handle).Methods(http.MethodGet)

	// Живая позиция в очереди
	api.HandleFunc("/bookings/{bookingId}/queue-position",
		getQueuePosition.Handle).Methods(http.MethodGet)

	// Перенос бронирования
	api.HandleFunc("/bookings/{bookingId}/reschedule",
		rescheduleBooking.Handle).Methods(http.MethodPatch)

	// Смена статуса (для персонала магазина)
	api.HandleFunc("/bookings/{bookingId}/status",
		updateBookingStatus.Handle).Methods(http.MethodPatch)

	// Отмена клиентом: гость без заголовка, пользователь с X-User-ID
	api.HandleFunc("/bookings/{bookingId}/cancel",
		cancelBooking.Handle).Methods(http.MethodPatch)

	// Список бронирований магазина (для персонала)
	api.HandleFunc("/shops/{shopId}/bookings",
		getShopBookings.Handle).Methods(http.MethodGet)

	// ============================================================
	// PROTECTED ROUTES (требуют X-User-ID header)
	// ============================================================

	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth)

	// История бронирований пользователя
	protected.HandleFunc("/users/{userId}/bookings", getUserBookings.Handle).Methods(http.MethodGet)

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	if cfg.Metrics.Enabled {
		close(stopMetricsCh)
		log.Info("Metrics collection stopped")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}
