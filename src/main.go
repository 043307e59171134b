package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strconv"
	"sync"
	"syscall"
	"ticketbroker/src/boot"
	"ticketbroker/src/common"
	"ticketbroker/src/config"
	"ticketbroker/src/lib"
	"ticketbroker/src/lib/mailer"
	"ticketbroker/src/middlewares"
	"ticketbroker/src/utils"
	"time"

	"github.com/covalenthq/lumberjack"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	apiPrefix string = "/api/v1"
)

var phoneValidatorFunc validator.Func = func(fl validator.FieldLevel) bool {
	return common.ValidPhone(fl.Field().String())
}

var registerValidators sync.Once

// server holds what the route groups share.
type server struct {
	cfg       *config.Config
	db        *gorm.DB
	lifecycle *common.Lifecycle
	settings  *common.SettingsStore
	cache     *redis.Client
	qrKey     []byte
}

func newServer(cfg *config.Config, d *gorm.DB, cache *redis.Client, publisher common.EventPublisher, transport mailer.Transport) (*server, error) {
	qrKey, err := utils.QRSecretKey(cfg.QRSecret)
	if err != nil {
		return nil, err
	}
	sink := common.NewTrailSink(publisher, cfg.AuditTopic)
	settings := common.NewSettingsStore(d, cache, sink)
	notifier := mailer.NewNotifier(transport, settings,
		mailer.WithSender(cfg.MailFrom, cfg.MailFromName),
		mailer.WithAppHost(cfg.AppHost),
		mailer.WithQRKey(qrKey),
	)
	return &server{
		cfg:       cfg,
		db:        d,
		lifecycle: common.NewLifecycle(d, settings, notifier, sink),
		settings:  settings,
		cache:     cache,
		qrKey:     qrKey,
	}, nil
}

func setupRouter() *gin.Engine {
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterValidation("phone", phoneValidatorFunc)
		}
	})
	router := gin.Default()
	router.Use(middlewares.SecureHeaders, middlewares.RequestID)
	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, "ok")
	})
	return router
}

func maintenanceModeMiddleware(g *gin.Engine) *gin.Engine {
	g.Use(func(ctx *gin.Context) {
		mm, err := strconv.ParseBool(os.Getenv("MAINTENANCE_MODE"))
		if err == nil && mm {
			err := errors.New("server is under maintenance")
			log.Println(err.Error())
			ctx.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
	})
	return g
}

func apiv1Group(g *gin.Engine) *gin.RouterGroup {
	apiv1 := g.Group(apiPrefix)
	return apiv1
}

func (s *server) routes(router *gin.Engine) *gin.Engine {
	router = maintenanceModeMiddleware(router)

	public := apiv1Group(router)
	s.publicShowHandlers(public)
	s.publicBookingHandlers(public)
	s.publicSettingsHandlers(public)

	authorized := router.Group(apiPrefix + "/admin")
	authorized.Use(middlewares.AuthMiddleware)
	{
		authorized = s.showHandlers(authorized)
		authorized = s.bookingHandlers(authorized)
		authorized = s.ticketHandlers(authorized)
		authorized = s.settingsHandlers(authorized)
		s.auditHandlers(authorized)
	}
	return router
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	if cfg.ApiEnv == "local" {
		return cors.Default()
	}
	cc := cors.DefaultConfig()
	cc.AllowOrigins = []string{cfg.AppHost}
	cc.AllowMethods = append(cc.AllowMethods, "GET", "POST", "PUT", "DELETE", "HEAD")
	cc.AllowHeaders = append(cc.AllowHeaders, "Origin", "Authorization", "X-Request-ID")
	cc.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	return cors.New(cc)
}

func initLogger() {
	cwd, _ := os.Getwd()
	if err := os.MkdirAll(path.Join(cwd, "logs"), 0o755); err != nil {
		log.Printf("Could not create logs directory: %s\n", err.Error())
		return
	}
	serverLogs := path.Join(cwd, "logs", "server.log")
	apiLogs := path.Join(cwd, "logs", "api.log")
	gin.ForceConsoleColor()

	f, _ := os.Create(apiLogs)
	gin.DefaultWriter = io.MultiWriter(f, os.Stdout)
	log.SetOutput(&lumberjack.Logger{
		Filename:   serverLogs,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     30,
		Compress:   true,
	})
}

func main() {
	var tokenFor string
	var tokenTTL time.Duration
	flag.StringVar(&tokenFor, "token", "", "print an admin token for the given username and exit")
	flag.DurationVar(&tokenTTL, "token-ttl", 12*time.Hour, "lifetime of the token printed by -token")
	flag.Parse()

	if os.Getenv("API_ENV") == "local" {
		cwd, _ := os.Getwd()
		if err := godotenv.Load(path.Join(cwd, ".env")); err != nil {
			log.Printf("No .env loaded: %s\n", err.Error())
		}
	}
	cfg := config.Load()

	if tokenFor != "" {
		token, err := middlewares.GenerateAdminToken([]byte(cfg.JWTSecret), tokenFor, tokenTTL)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	initLogger()

	d := boot.InitDb()

	cache := lib.GetRedisClient()
	if cache != nil {
		if err := lib.PingRedis(cache, 2*time.Second); err != nil {
			log.Println("Redis unavailable, settings are read from the database")
			cache = nil
		}
	}

	var publisher common.EventPublisher
	if cfg.KafkaBroker != "" {
		kp := lib.NewKafkaPublisher(cfg.KafkaBroker, "ticketbroker")
		defer kp.Close()
		publisher = kp
	}

	s, err := newServer(cfg, d, cache, publisher, mailer.NewTransport(cfg))
	if err != nil {
		log.Fatalf("Error initializing server: %s\n", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := boot.SeedDefaults(ctx, d, s.lifecycle); err != nil {
		log.Printf("Error seeding defaults: %s\n", err.Error())
	}
	if err := boot.InitScheduler(s.lifecycle, cfg.ReconcileEvery); err != nil {
		log.Printf("Error starting scheduler: %s\n", err.Error())
	}
	defer boot.StopScheduler()

	router := setupRouter()
	router.Use(corsMiddleware(cfg))
	s.routes(router)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting server: %s\n", err.Error())
		}
	}()
	log.Printf("Listening on :%s\n", cfg.Port)

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down: %s\n", err.Error())
	}
}
