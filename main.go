package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// corsConfig builds the CORS policy from CORS_ORIGINS, a comma-separated list.
// Unset or "*" allows any origin; credentials are only allowed for explicit origins.
func corsConfig(origins string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}
	origins = strings.TrimSpace(origins)
	if origins == "" || origins == "*" {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowOrigins = append(cfg.AllowOrigins, o)
		}
	}
	cfg.AllowCredentials = true
	return cfg
}

// serve loads configuration, connects to the database, and runs the HTTP API
// until the server stops.
func serve() error {
	// .env is optional in deployed environments where vars are set directly
	if err := godotenv.Load(); err != nil {
		log.Printf("[serve] no .env file loaded: %v", err)
	}

	h := &Handler{
		db:            getDBPool(),
		openAIBaseURL: "https://api.openai.com",
	}
	defer h.db.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	fmt.Println("Starting gin app...")

	router := gin.Default()
	router.SetTrustedProxies(nil)
	router.Use(cors.New(corsConfig(os.Getenv("CORS_ORIGINS"))))
	h.registerRoutes(router)

	return router.Run(":" + port)
}

func main() {
	log.SetPrefix("lg/neurodiet-api: ")
	log.SetFlags(0)

	Execute()
}
