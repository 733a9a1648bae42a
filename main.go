package main

import (
	"log"
	"os"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"newsfeed/cache"
	"newsfeed/common"
	"newsfeed/database"
	"newsfeed/editor"
	emailpkg "newsfeed/email"
	"newsfeed/newsfeed"
	"newsfeed/newsletter"
	"newsfeed/subscription"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	db := common.ConnectDb()
	if db == nil {
		log.Fatal("Failed to connect to database")
	}

	if err := database.RunMigrations(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	router := gin.Default()

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("SESSION_SECRET environment variable not set")
	}

	store := cookie.NewStore([]byte(sessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   false,
	})

	router.Use(sessions.Sessions("newsfeed-session", store))
	router.Use(cache.CacheMiddleware(10 * time.Minute))

	router.SetFuncMap(map[string]interface{}{
		"now": func() time.Time {
			return time.Now()
		},
		"domain": func() string {
			d := os.Getenv("DOMAIN")
			if d == "" {
				return "http://localhost:8080"
			}
			return d
		},
	})

	router.LoadHTMLGlob("*/views/*.html")

	router.Static("/public", "./public")

	emailService := emailpkg.NewEmailService()

	newsfeedModule := newsfeed.NewNewsfeedModule(db)
	newsfeedModule.RegisterRoutes(router)

	subscriptionModule := subscription.NewSubscriptionModule(db, emailService)
	subscriptionModule.RegisterRoutes(router)

	editorModule := editor.NewEditorModule(db)
	editorModule.RegisterRoutes(router)
	if err := editorModule.EnsureDefaultEditor(); err != nil {
		log.Printf("Error creating default editor: %v", err)
	}

	newsletterModule := newsletter.NewNewsletterModule(db, emailService)
	if err := newsletterModule.StartScheduler(); err != nil {
		log.Fatal("Failed to start newsletter scheduler:", err)
	}
	defer newsletterModule.StopScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
