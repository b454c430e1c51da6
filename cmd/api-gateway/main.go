package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campus-hq/timetable-api/api/swagger"
	"github.com/campus-hq/timetable-api/internal/handler"
	"github.com/campus-hq/timetable-api/internal/middleware"
	"github.com/campus-hq/timetable-api/internal/models"
	"github.com/campus-hq/timetable-api/internal/repository"
	"github.com/campus-hq/timetable-api/internal/service"
	"github.com/campus-hq/timetable-api/pkg/cache"
	"github.com/campus-hq/timetable-api/pkg/config"
	"github.com/campus-hq/timetable-api/pkg/database"
	"github.com/campus-hq/timetable-api/pkg/events"
	"github.com/campus-hq/timetable-api/pkg/logger"
	corsmiddleware "github.com/campus-hq/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campus-hq/timetable-api/pkg/middleware/requestid"
)

// @title Campus Timetable API
// @version 0.1.0
// @description Scheduling conflict resolution engine for weekly class schedules
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	var broadcaster *events.Broadcaster
	if cfg.Events.Enabled {
		redisClient, redisErr := cache.NewRedis(ctx, cfg.Redis)
		if redisErr != nil {
			logr.Sugar().Fatalw("failed to connect redis", "error", redisErr)
		}
		defer redisClient.Close()

		broadcaster = events.NewBroadcaster(redisClient, events.BroadcasterConfig{
			Channel: cfg.Events.Channel,
			Workers: cfg.Events.Workers,
			Logger:  logr,
		})
		broadcaster.Start(ctx)
		defer broadcaster.Stop()
	}

	validate := validator.New()

	entryRepo := repository.NewEntryRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)

	detector := service.NewConflictService(logr)
	recurrence := service.NewRecurrenceService(logr)
	resolver := service.NewResolverService(detector, cfg.Resolver, logr)

	var emitter service.Emitter
	if broadcaster != nil {
		emitter = broadcaster
	}

	var undoSvc *service.UndoService
	metricsSvc := service.NewMetricsService(func() float64 {
		if undoSvc == nil {
			return 0
		}
		return float64(undoSvc.PendingCount())
	})

	scheduleSvc := service.NewScheduleService(
		entryRepo, slotRepo, subjectRepo, facultyRepo, calendarRepo,
		detector, recurrence, resolver, emitter, metricsSvc, validate, logr,
	)
	undoSvc = service.NewUndoService(scheduleSvc, cfg.Undo, logr)
	scheduleSvc.SetUndoService(undoSvc)
	undoSvc.OnExpire(func(models.UndoOperation) {
		metricsSvc.ObserveUndo("expired")
	})
	defer undoSvc.Shutdown()

	referenceSvc := service.NewReferenceService(slotRepo, facultyRepo, batchRepo, subjectRepo, calendarRepo, validate, logr)
	exportSvc := service.NewExportService(entryRepo, slotRepo, subjectRepo, facultyRepo, batchRepo, logr, nil, nil)

	router := buildRouter(cfg, logr, db, metricsSvc, scheduleSvc, referenceSvc, exportSvc)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: router}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if serveErr := srv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", serveErr)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func buildRouter(
	cfg *config.Config,
	logr *zap.Logger,
	db *sqlx.DB,
	metricsSvc *service.MetricsService,
	scheduleSvc *service.ScheduleService,
	referenceSvc *service.ReferenceService,
	exportSvc *service.ExportService,
) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	undoHandler := handler.NewUndoHandler(scheduleSvc)
	referenceHandler := handler.NewReferenceHandler(referenceSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		schedule := v1.Group("/schedule")
		{
			schedule.GET("/entries", scheduleHandler.List)
			schedule.PUT("/entries/:id", scheduleHandler.Update)
			schedule.DELETE("/entries/:id", scheduleHandler.Delete)
			schedule.POST("/check", scheduleHandler.Check)
			schedule.POST("/expand", scheduleHandler.Expand)
			schedule.POST("/resolve", scheduleHandler.Resolve)
			schedule.POST("/commit", scheduleHandler.Commit)
		}

		v1.GET("/undo/:id", undoHandler.Status)
		v1.POST("/undo/:id", undoHandler.Execute)

		v1.GET("/time-slots", referenceHandler.ListTimeSlots)
		v1.POST("/time-slots", referenceHandler.CreateTimeSlot)
		v1.PUT("/time-slots/:id", referenceHandler.UpdateTimeSlot)
		v1.DELETE("/time-slots/:id", referenceHandler.DeleteTimeSlot)

		v1.GET("/faculty", referenceHandler.ListFaculty)
		v1.POST("/faculty", referenceHandler.CreateFaculty)
		v1.PUT("/faculty/:id", referenceHandler.UpdateFaculty)

		v1.GET("/batches", referenceHandler.ListBatches)
		v1.POST("/batches", referenceHandler.CreateBatch)
		if cfg.Exports.Enabled {
			v1.GET("/batches/:id/timetable", exportHandler.WeeklyTimetable)
		}

		v1.GET("/subjects", referenceHandler.ListSubjects)
		v1.POST("/subjects", referenceHandler.CreateSubject)

		v1.GET("/calendar", referenceHandler.Calendar)
		v1.POST("/calendar/holidays", referenceHandler.CreateHoliday)
		v1.DELETE("/calendar/holidays/:id", referenceHandler.DeleteHoliday)
		v1.POST("/calendar/exam-periods", referenceHandler.CreateExamPeriod)
		v1.DELETE("/calendar/exam-periods/:id", referenceHandler.DeleteExamPeriod)
	}

	return r
}
