package main

import (
	"log"

	"captcha-client/server/internal/config"
	"captcha-client/server/internal/db"
	"captcha-client/server/internal/rabbitmq"
	"captcha-client/server/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
)

func main() {
	// Connect to RabbitMQ
	rabbitmq.Connect(config.RabbitURL())

	defer rabbitmq.Conn.Close()
	defer rabbitmq.Channel.Close()

	// Open or create the SQLite database
	db.Connect(config.DBPath())
	defer config.DB.Close()

	// Start RabbitMQ consumer in a goroutine
	go rabbitmq.ConsumeTasks()

	// Initialize HTML template engine (templates in folder views)
	engine := html.New("./views", ".html")
	app := fiber.New(fiber.Config{
		Views: engine,
	})

	routes.SetupRoutes(app)

	addr := config.ListenAddr()
	log.Printf("Server running on %s", addr)
	log.Fatal(app.Listen(addr))
}
