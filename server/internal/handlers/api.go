package handlers

import (
	"database/sql"
	"log"
	"time"

	"captcha-client/server/internal/db"
	"captcha-client/server/internal/models"
	"captcha-client/server/internal/rabbitmq"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

// CreateTask handles POST /createTask: persist the task, hand out an
// opaque task id, and put the task on the queue for workers.
func CreateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	if user.Role != "client" && user.Role != "admin" {
		return c.JSON(fiber.Map{"errorId": 1, "errorCode": models.ErrCodeKeyDenied})
	}

	var payload struct {
		ClientKey string `json:"clientKey"`
		Task      struct {
			Type       string `json:"type" validate:"required,eq=ReCaptchaV2Task"`
			WebsiteURL string `json:"websiteURL" validate:"required,url"`
			WebsiteKey string `json:"websiteKey" validate:"required"`
		} `json:"task"`
	}

	if err := c.BodyParser(&payload); err != nil {
		log.Printf("Error parsing createTask body: %v", err)
		return c.JSON(fiber.Map{"errorId": 1, "errorCode": models.ErrCodeBadRequest})
	}
	if err := validate.Struct(payload.Task); err != nil {
		log.Printf("Invalid createTask payload: %v", err)
		return c.JSON(fiber.Map{"errorId": 1, "errorCode": models.ErrCodeBadRequest})
	}

	task := &models.CaptchaTask{
		TaskID:     uuid.NewString(),
		UserID:     user.ID,
		Type:       payload.Task.Type,
		WebsiteURL: payload.Task.WebsiteURL,
		WebsiteKey: payload.Task.WebsiteKey,
		CreatedAt:  time.Now().UTC(),
	}

	if err := db.InsertTask(task); err != nil {
		log.Printf("Database error when creating task: %v", err)
		return c.JSON(fiber.Map{"errorId": 1, "errorCode": models.ErrCodeBadRequest})
	}

	// Dispatch is driven off the database; a publish failure only delays
	// the consumer's mirror, so it must not fail the request.
	if err := rabbitmq.PublishTask(task); err != nil {
		log.Printf("Error publishing task %s to queue: %v", task.TaskID, err)
	}

	log.Printf("Created task %s for user %s", task.TaskID, user.Username)

	return c.JSON(fiber.Map{"errorId": 0, "taskId": task.TaskID})
}

// GetTaskResult handles POST /getTaskResult: map the stored row onto the
// processing/ready/failed contract.
func GetTaskResult(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var query struct {
		ClientKey string `json:"clientKey"`
		TaskID    string `json:"taskId"`
	}
	if err := c.BodyParser(&query); err != nil || query.TaskID == "" {
		return c.JSON(fiber.Map{"status": models.StatusFailed, "errorCode": models.ErrCodeBadRequest})
	}

	task, err := db.GetTaskForUser(query.TaskID, user.ID)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("Database error fetching task %s: %v", query.TaskID, err)
		}
		return c.JSON(fiber.Map{"status": models.StatusFailed, "errorCode": models.ErrCodeNoSuchTask})
	}

	if expired, err := db.ExpireIfStale(task); err != nil {
		log.Printf("Error expiring task %s: %v", task.TaskID, err)
	} else if expired {
		log.Printf("Task %s expired unclaimed", task.TaskID)
	}

	switch task.Status() {
	case models.StatusReady:
		return c.JSON(fiber.Map{
			"status":   models.StatusReady,
			"solution": fiber.Map{"gRecaptchaResponse": task.Solution},
		})
	case models.StatusFailed:
		return c.JSON(fiber.Map{"status": models.StatusFailed, "errorCode": task.ErrorCode})
	default:
		return c.JSON(fiber.Map{"status": models.StatusProcessing})
	}
}

// GetBalance handles POST /getBalance.
func GetBalance(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	return c.JSON(fiber.Map{"errorId": 0, "balance": user.Balance})
}

// ReportIncorrect handles POST /reportIncorrect: a client telling us the
// token it received was rejected by the target site.
func ReportIncorrect(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var query struct {
		ClientKey string `json:"clientKey"`
		TaskID    string `json:"taskId"`
	}
	if err := c.BodyParser(&query); err != nil || query.TaskID == "" {
		return c.JSON(fiber.Map{"errorId": 1, "errorCode": models.ErrCodeBadRequest})
	}

	task, err := db.GetTaskForUser(query.TaskID, user.ID)
	if err != nil {
		return c.JSON(fiber.Map{"errorId": 1, "errorCode": models.ErrCodeNoSuchTask})
	}

	// TODO: refund the client and penalize the solver once billing lands.
	log.Printf("Task %s reported incorrect by user %s (solver %d)", task.TaskID, user.Username, task.SolverID)

	return c.JSON(fiber.Map{"errorId": 0})
}

// GetQueueCount handles GET /api/queue-count for the dashboard.
func GetQueueCount(c *fiber.Ctx) error {
	count, err := db.QueueCount()
	if err != nil {
		log.Println("Error fetching queue count:", err)
		return c.Status(500).JSON(fiber.Map{"error": "Failed to retrieve queue count"})
	}
	return c.JSON(fiber.Map{"count": count})
}
