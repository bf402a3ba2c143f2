package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/mrusso/postdeck/configs"
	"github.com/mrusso/postdeck/internal/api/handlers"
	"github.com/mrusso/postdeck/internal/api/middleware"
	job "github.com/mrusso/postdeck/internal/jobs"
	"github.com/mrusso/postdeck/internal/onlysocial"
	"github.com/mrusso/postdeck/internal/queue"
	"github.com/mrusso/postdeck/internal/repository"
	"github.com/mrusso/postdeck/internal/scheduler"
	"github.com/mrusso/postdeck/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	leaseRepo := repository.NewLeaseRepository(db)

	osClient := onlysocial.NewClient(cfg.OnlySocial)

	clock := scheduler.SystemClock()
	limiter := scheduler.NewLimiter(cfg.Scheduler.QuotaPerMinute, clock)
	dispatcher := scheduler.NewDispatcher(limiter, clock, cfg.Scheduler.MaxRetries, cfg.Scheduler.RetryDelay)
	selector := scheduler.NewSelector(postRepo, cfg.Scheduler)
	pipeline := scheduler.NewPipeline(postRepo, socialAccountRepo, leaseRepo, osClient, selector, dispatcher, clock, cfg.Scheduler)

	authService := service.NewAuthService(*cfg, userRepo)
	spacesService := service.NewSpacesService(*cfg)
	postService := service.NewPostService(db, postRepo, socialAccountRepo, spacesService, cfg.Scheduler)
	accountSyncService := service.NewAccountSyncService(socialAccountRepo, osClient)
	userService := service.NewUserService(userRepo)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Post("/register", auth.Register)
	app.Post("/login", auth.Login)
	app.Post("/logout", auth.Logout)

	cronHandler := handlers.NewCronHandler(pipeline, db, cfg.Scheduler)
	app.Get("/health", cronHandler.Health)
	app.Post("/cron/scheduler", cronHandler.RunScheduler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/create", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/stats", post.Stats)
	api.Post("/posts/:id/cancel", post.CancelPost)
	api.Post("/posts/:id/retry", post.RetryPost)
	api.Post("/media/upload", post.UploadMedia)

	account := handlers.NewAccountHandler(accountSyncService, client)
	api.Get("/accounts", account.ListAccounts)
	api.Post("/accounts/sync", account.SyncAccounts)
	api.Post("/accounts/remove", account.RemoveAccount)

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	// cron jobs
	cronJobs := job.NewCronJobs(client)

	//queue
	queueW := queue.NewQueue(accountSyncService, pipeline)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", cronJobs.RunScheduler)
	c.AddFunc("@every 00h30m00s", cronJobs.SyncAccounts)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeAccountSync, queueW.HandleAccountSyncTask)
		mux.HandleFunc(queue.TaskTypeRunScheduler, queueW.HandleRunSchedulerTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
