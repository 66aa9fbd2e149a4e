package routes

import (
	"captcha-client/server/internal/config"
	"captcha-client/server/internal/handlers"
	"captcha-client/server/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func SetupRoutes(app *fiber.App) {
	// Wire protocol endpoints. clientKey travels in the request body, so
	// these are plain POSTs behind the body-parsing key middleware.
	app.Post("/createTask", middleware.ClientKeyMiddleware, handlers.CreateTask)
	app.Post("/getTaskResult", middleware.ClientKeyMiddleware, handlers.GetTaskResult)
	app.Post("/getBalance", middleware.ClientKeyMiddleware, handlers.GetBalance)
	app.Post("/reportIncorrect", middleware.ClientKeyMiddleware, handlers.ReportIncorrect)

	// Public routes
	app.Get("/login", handlers.ShowLoginPage)
	app.Post("/login", handlers.HandleLogin)
	app.Get("/register", handlers.ShowRegisterPage)
	app.Post("/register", handlers.HandleRegister)
	app.Get("/logout", handlers.HandleLogout)

	// WebSocket channel for solver workers.
	app.Get("/socket", websocket.New(handlers.HandleWebSocket))

	// Dashboard - requires session authentication.
	authGroup := app.Group("/", middleware.AuthMiddleware)
	authGroup.Get("/tasks", handlers.ShowTaskList)
	authGroup.Get("/api-key/regenerate", handlers.RegenerateAPIKey)
	authGroup.Get("/api/queue-count", handlers.GetQueueCount)

	// Admin routes
	adminGroup := authGroup.Group("/admin", middleware.RoleMiddleware("admin"))
	adminGroup.Get("/users", handlers.ShowUsersAdmin)
	adminGroup.Post("/users", handlers.CreateUser)
	adminGroup.Delete("/users/:id", handlers.DeleteUser)

	// Root redirection based on session state.
	app.Get("/", func(c *fiber.Ctx) error {
		sess, err := config.Store.Get(c)
		if err != nil || sess.Get("userID") == nil {
			return c.Redirect("/login")
		}
		return c.Redirect("/tasks")
	})
}
