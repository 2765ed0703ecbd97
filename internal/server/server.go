package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/offis-rit/workq/internal/gateway"
	"github.com/offis-rit/workq/internal/queue"
	mid "github.com/offis-rit/workq/internal/server/middleware"
	"github.com/offis-rit/workq/internal/util"
	"github.com/offis-rit/workq/internal/wake"
	"github.com/offis-rit/workq/pkg/logger"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/go-playground/validator"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// Init wires the gateway, queue engine, wake notifier, and HTTP surface
// together and serves until SIGINT/SIGTERM.
func Init() {
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	jwksUrl := util.GetEnv("AUTH_URL") + "/jwks"
	k, err := keyfunc.NewDefault([]string{jwksUrl})
	if err != nil {
		logger.Fatal("Failed to load jwks keys", "err", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := pgxpool.New(ctx, util.GetEnv("DATABASE_URL"))
	if err != nil {
		logger.Fatal("Failed to connect to database", "err", err)
	}
	defer conn.Close()

	gw := gateway.New(conn)

	var wakeNotifier queue.WakeNotifier
	rabbitConn, rabbitErr := amqp091.Dial(util.GetEnv("RABBITMQ_URL"))
	if rabbitErr != nil {
		logger.Warn("Failed to connect to RabbitMQ, wake hints disabled", "err", rabbitErr)
	} else {
		defer rabbitConn.Close()
		ch, chErr := rabbitConn.Channel()
		if chErr != nil {
			logger.Warn("Failed to open RabbitMQ channel, wake hints disabled", "err", chErr)
		} else {
			defer ch.Close()
			notifier, notifyErr := wake.New(ch, util.GetEnvNumeric("WAKE_RATE_PER_SEC", 5), int(util.GetEnvNumeric("WAKE_BURST", 5)))
			if notifyErr != nil {
				logger.Warn("Failed to set up wake notifier", "err", notifyErr)
			} else {
				wakeNotifier = notifier
			}
		}
	}

	engineOpts := []queue.EngineOption{
		queue.WithMetricsRegisterer(prometheus.DefaultRegisterer),
	}
	if wakeNotifier != nil {
		engineOpts = append(engineOpts, queue.WithWakeNotifier(wakeNotifier))
	}
	eng := queue.New(gw, engineOpts...)
	eng.Start(ctx)
	defer eng.Close()

	masterAPIKey := util.GetEnv("MASTER_API_KEY")
	parsedMasterUserID, _ := strconv.ParseInt(util.GetEnv("MASTER_USER_ID"), 10, 32)
	masterUserRole := util.GetEnv("MASTER_USER_ROLE")
	masterUserID := int32(parsedMasterUserID)

	e.Use(mid.RequestID())
	e.Use(mid.AppContextMiddleware(conn, eng, &k, masterAPIKey, masterUserID, masterUserRole))
	e.Use(middleware.CORS())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("64M"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	RegisterRoutes(e)

	go func() {
		port := util.GetEnv("PORT")
		if port == "" {
			port = "8080"
		}
		logger.Info("Starting server", "port", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
