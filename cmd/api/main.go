package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/leave-approval-backend/internal/config"
	appHTTP "github.com/cmlabs-hris/leave-approval-backend/internal/handler/http"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/cron"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/database"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/jwt"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/kafka"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/lock"
	"github.com/cmlabs-hris/leave-approval-backend/internal/pkg/storage"
	"github.com/cmlabs-hris/leave-approval-backend/internal/repository/postgresql"
	"github.com/cmlabs-hris/leave-approval-backend/internal/service/approval"
	"github.com/cmlabs-hris/leave-approval-backend/internal/service/escalation"
	"github.com/cmlabs-hris/leave-approval-backend/internal/service/file"
	"github.com/cmlabs-hris/leave-approval-backend/internal/service/leave"
	notificationService "github.com/cmlabs-hris/leave-approval-backend/internal/service/notification"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}
	slog.SetLogLoggerLevel(cfg.SlogLevel())

	dsn := cfg.DatabaseURL()
	db, err := database.NewPostgreSQLDB(dsn)
	if err != nil {
		fmt.Println("Error connecting to database:", err)
		return
	}
	defer db.Close()

	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("Failed to connect to redis: ", err)
	}
	locker := lock.NewRedisLocker(nil)
	if redisClient != nil {
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient)
	} else {
		slog.Warn("REDIS_ADDR not set, escalation sweeps run without a distributed lock")
	}

	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		log.Fatal("Failed to initialize local storage: ", err)
	}

	txManager := postgresql.NewTransactionManager(db)
	userRepo := postgresql.NewUserRepository(db)
	workflowRepo := postgresql.NewWorkflowRepository(db)
	leaveTypeRepo := postgresql.NewLeaveTypeRepository(db)
	leaveRequestRepo := postgresql.NewLeaveRequestRepository(db)
	leaveApprovalRepo := postgresql.NewLeaveApprovalRepository(db)
	leaveAttachmentRepo := postgresql.NewLeaveAttachmentRepository(db)
	leaveCodeRepo := postgresql.NewLeaveCodeSequenceRepository(db)
	notificationRepo := postgresql.NewNotificationRepository(db)

	var pushWriter notificationService.MessageWriter
	kafkaWriter := kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
	if kafkaWriter != nil {
		pushWriter = kafkaWriter
	}
	notifService := notificationService.NewNotificationService(notificationRepo, pushWriter, notificationService.Config{})

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	resolver := approval.NewResolver(userRepo)
	chainBuilder := approval.NewChainBuilder(resolver, workflowRepo)

	leaveService := leave.NewLeaveService(
		txManager,
		leave.Repositories{
			LeaveTypes:   leaveTypeRepo,
			Requests:     leaveRequestRepo,
			Approvals:    leaveApprovalRepo,
			Attachments:  leaveAttachmentRepo,
			CodeSequence: leaveCodeRepo,
			Users:        userRepo,
		},
		chainBuilder,
		notifService,
		fileStorage,
		leave.Config{
			Location:     cfg.Escalation.Location,
			DeadlineDays: cfg.Escalation.DeadlineDays,
			DeadlineHour: cfg.Escalation.DeadlineHour,
		},
	)
	escalationService := escalation.NewEscalationService(
		txManager,
		leaveRequestRepo,
		leaveApprovalRepo,
		userRepo,
		resolver,
		notifService,
		locker,
		escalation.Config{
			ReminderWindow: cfg.Escalation.ReminderWindow,
			ReminderMax:    cfg.Escalation.ReminderMax,
			LockTTL:        cfg.Escalation.LockTTL,
		},
	)
	fileService := file.NewFileService(fileStorage)

	scheduler := cron.NewScheduler()
	if err := cron.NewEscalationJobs(escalationService, cfg.Escalation.Interval).RegisterJobs(scheduler); err != nil {
		log.Fatal("Failed to register cron jobs: ", err)
	}
	scheduler.Start()

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Env:            cfg.App.Env,
			LogLevel:       cfg.SlogLevel(),
			AllowedOrigins: cfg.App.CORSAllowedOrigins,
			CronSecret:     cfg.Escalation.CronSecret,
			CronSecretHash: cfg.Escalation.CronSecretHash,
		},
		JWTService,
		appHTTP.Handlers{
			Leave:        appHTTP.NewLeaveHandler(leaveService, fileService),
			Escalation:   appHTTP.NewEscalationHandler(escalationService),
			Notification: appHTTP.NewNotificationHandler(notifService),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	scheduler.Stop()
	// Flushes queued notifications before the push writer goes away.
	notifService.Stop()
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			slog.Error("Failed to close kafka writer", "error", err)
		}
	}
}
