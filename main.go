package main

import (
	"fmt"
	"log"
	"net/http"

	"solveit/api"
	"solveit/config"
	"solveit/db"
	"solveit/utils"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           SolveIt API
// @version         1.0.0

// @description     ## SolveIt
// @description
// @description     A personal problem/solution tracker. Users record problems they ran
// @description     into and how they solved them, grouped by category, with statistics
// @description     and a JSON export. Everything is persisted to two flat JSON files,
// @description     which keeps the data human-readable and trivially backed up.
// @description
// @description     Authentication is cookie-session based for browsers. Machine clients
// @description     can instead send the bearer token returned by login/signup.

// @host      localhost:8080
// @BasePath  /
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL: Failed to load configuration: %v", err)
	}

	// --- Storage ---
	problems, err := db.NewProblemStore(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize problem store: %v", err)
	}
	users, err := db.NewUserStore(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize user store: %v", err)
	}

	// --- Sessions ---
	sessionStore := utils.NewSessionStore(cfg)

	// --- Gin Router Setup ---
	router := gin.Default()
	router.Use(utils.RequestID())

	// --- Public Routes (No Auth Required) ---
	router.POST("/signup", func(c *gin.Context) {
		api.SignupHandler(c, users, sessionStore, cfg)
	})
	router.POST("/login", func(c *gin.Context) {
		api.LoginHandler(c, users, sessionStore, cfg)
	})
	router.POST("/logout", func(c *gin.Context) {
		api.LogoutHandler(c, sessionStore)
	})

	// Login and signup pages are reachable anonymously; they are the
	// redirect targets for unauthenticated browser requests.
	router.StaticFile("/login", "./static/login.html")
	router.StaticFile("/signup", "./static/signup.html")

	// --- Protected Routes (Auth Required) ---
	authRequired := utils.AuthRequired(sessionStore, cfg)

	// Browser pages
	router.GET("/", authRequired, func(c *gin.Context) {
		c.File("./static/index.html")
	})
	router.GET("/profile", authRequired, func(c *gin.Context) {
		c.File("./static/profile.html")
	})

	// API
	apiGroup := router.Group("/api")
	apiGroup.Use(authRequired)
	{
		apiGroup.GET("/user", func(c *gin.Context) {
			api.CurrentUserHandler(c, users, sessionStore)
		})
		apiGroup.PUT("/user/password", func(c *gin.Context) {
			api.ChangePasswordHandler(c, users, cfg)
		})

		apiGroup.GET("/problems", func(c *gin.Context) {
			api.GetProblemsHandler(c, problems)
		})
		apiGroup.POST("/problems", func(c *gin.Context) {
			api.CreateProblemHandler(c, problems)
		})
		apiGroup.GET("/problems/:id", func(c *gin.Context) {
			api.GetProblemHandler(c, problems)
		})
		apiGroup.PUT("/problems/:id", func(c *gin.Context) {
			api.UpdateProblemHandler(c, problems)
		})
		apiGroup.DELETE("/problems/:id", func(c *gin.Context) {
			api.DeleteProblemHandler(c, problems)
		})

		apiGroup.GET("/statistics", func(c *gin.Context) {
			api.StatisticsHandler(c, problems)
		})
		apiGroup.GET("/export", func(c *gin.Context) {
			api.ExportHandler(c, problems)
		})
	}

	// --- Swagger Route ---
	// Serve the hand-maintained swagger.json and point the UI at it.
	router.StaticFS("/docs", http.Dir("docs"))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	// --- Start Server ---
	listenAddr := fmt.Sprintf("%s:%s", cfg.ListenAddress, cfg.ListenPort)
	log.Printf("INFO: Starting server on %s", listenAddr)

	server := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("CRITICAL: Server failed to start: %v", err)
	}
}
