package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bekicom/sora-padval-b/config"
	"github.com/bekicom/sora-padval-b/controllers"
	"github.com/bekicom/sora-padval-b/middleware"
	"github.com/bekicom/sora-padval-b/routes"
	"github.com/bekicom/sora-padval-b/socket"
	"github.com/bekicom/sora-padval-b/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.ConnectDatabase()
	middleware.InitMetrics()

	hub := socket.Init()
	defer hub.Shutdown()

	scheduler := gocron.NewScheduler(time.Local)
	// Yesterday's sales report goes out just after midnight.
	scheduler.Every(1).Day().At("00:05").Do(sendDailyReport)
	scheduler.StartAsync()
	defer scheduler.Stop()

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	routes.Setup(r, hub)

	port := os.Getenv("PORT")
	if port == "" {
		port = "1414"
	}
	log.Printf("Server starting on port %s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}

// sendDailyReport emails the previous day's sales summary to the address in
// the restaurant settings. Skipped silently when SMTP or the address is not
// configured.
func sendDailyReport() {
	if !utils.EmailConfigured() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	settings, err := controllers.GetActiveSettings(ctx)
	if err != nil || settings.Email == "" {
		return
	}

	date := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	summary, err := controllers.DailySalesSummary(ctx, date)
	if err != nil {
		log.Printf("daily report aggregation: %v", err)
		return
	}

	body := fmt.Sprintf(
		"Sales report for %s\n\nOrders: %v\nRevenue: %v %s\n\nCash: %v\nCard: %v\nClick: %v\nTransfer: %v\nMixed: %v\n",
		date,
		summary["totalOrders"], summary["totalRevenue"], settings.Currency,
		summary["cashOrders"], summary["cardOrders"], summary["clickOrders"],
		summary["transferOrders"], summary["mixedOrders"],
	)

	subject := fmt.Sprintf("%s - Daily sales %s", settings.RestaurantName, date)
	if err := utils.SendEmail(settings.Email, subject, body); err != nil {
		log.Printf("daily report email: %v", err)
	}
}
