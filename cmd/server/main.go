package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/mehulsinha/postpilot/configs"
	"github.com/mehulsinha/postpilot/internal/api/handlers"
	"github.com/mehulsinha/postpilot/internal/api/middleware"
	job "github.com/mehulsinha/postpilot/internal/jobs"
	"github.com/mehulsinha/postpilot/internal/queue"
	"github.com/mehulsinha/postpilot/internal/repository"
	"github.com/mehulsinha/postpilot/internal/service"
	"github.com/robfig/cron"
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
	asynqClient := asynq.NewClient(redisConn)
	defer asynqClient.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
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
	connectionRepo := repository.NewPlatformConnectionRepository(db)

	clients := service.NewPlatformRegistry(
		service.NewLinkedinService(*cfg),
		service.NewTwitterService(*cfg),
	)

	automation := service.NewAutomationClient(*cfg)
	aiService := service.NewAIService(*cfg)
	tasks := queue.NewClient(asynqClient)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	platformService := service.NewPlatformService(*cfg, clients, connectionRepo, userRepo)
	postService := service.NewPostService(*cfg, postRepo, connectionRepo, aiService, clients, automation)
	schedulerService := service.NewSchedulerService(*cfg, postRepo, connectionRepo, automation, tasks)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)
	enhanceLimiter := middleware.NewRateLimiter(10, 3)
	publishLimiter := middleware.NewRateLimiter(20, 5)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)

	post := handlers.NewPostHandler(postService)
	api.Post("/posts/enhance", enhanceLimiter.Handler(), post.EnhancePost)
	api.Post("/posts/publish", publishLimiter.Handler(), post.PublishPost)
	api.Get("/posts/stats", post.GetStats)
	api.Get("/posts", post.ListPosts)

	scheduler := handlers.NewSchedulerHandler(schedulerService)
	api.Post("/posts/schedule", scheduler.SchedulePost)
	api.Get("/posts/scheduled", scheduler.GetScheduledPosts)
	api.Delete("/posts/schedule/:id", scheduler.CancelScheduledPost)
	api.Post("/posts/schedule/:id/reschedule", scheduler.ReschedulePost)
	api.Post("/scheduler/process", scheduler.ProcessScheduledPosts)

	api.Get("/posts/:id", post.GetPost)
	api.Delete("/posts/:id", post.DeletePost)

	platform := handlers.NewPlatformHandler(platformService)
	api.Get("/platforms/status", platform.GetStatus)
	api.Get("/platforms/auth/:platform", platform.InitAuth)
	api.Post("/platforms/callback/:platform", platform.AuthCallback)
	api.Delete("/platforms/disconnect/:platform", platform.DisconnectPlatform)

	// cron: periodic due-post sweep, the backstop behind the timed queue tasks
	sweepJob := job.NewSchedulerSweepJob(schedulerService)

	c := cron.New()
	c.AddFunc("@every 0h1m0s", sweepJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		worker := queue.NewWorker(schedulerService, automation)
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishDue, worker.HandlePublishDueTask)
		mux.HandleFunc(queue.TaskTypeScheduleNotify, worker.HandleScheduleNotifyTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Server is running on http://localhost:%s", cfg.Port)

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
