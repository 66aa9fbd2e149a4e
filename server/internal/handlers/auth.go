package handlers

import (
	"database/sql"
	"log"
	"time"

	"captcha-client/server/internal/config"
	"captcha-client/server/internal/models"
	"captcha-client/server/internal/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

func ShowLoginPage(c *fiber.Ctx) error {
	return c.Render("login", fiber.Map{
		"Title": "Sign in",
	}, "layout")
}

func ShowRegisterPage(c *fiber.Ctx) error {
	return c.Render("register", fiber.Map{
		"Title": "Register",
	}, "layout")
}

func HandleLogin(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	if username == "" || password == "" {
		return c.Status(400).SendString("Username and password are required")
	}

	var (
		user    models.User
		apiKey  sql.NullString
		balance sql.NullFloat64
	)

	err := config.DB.QueryRow("SELECT id, username, password_hash, role, api_key, balance, created_at FROM users WHERE username = ?", username).
		Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &apiKey, &balance, &user.CreatedAt)

	if err != nil {
		log.Printf("Login error for %s: %v", username, err)
		return c.Status(400).SendString("Invalid username or password")
	}

	if apiKey.Valid {
		user.APIKey = apiKey.String
	}
	if balance.Valid {
		user.Balance = balance.Float64
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		log.Printf("Password mismatch for %s", username)
		return c.Status(400).SendString("Invalid username or password")
	}

	sess, err := config.Store.Get(c)
	if err != nil {
		return c.Status(500).SendString("Session error")
	}

	sess.Set("userID", user.ID)
	if err := sess.Save(); err != nil {
		return c.Status(500).SendString("Session save error")
	}

	return c.Redirect("/tasks")
}

// HandleRegister self-registers a new account. Workers are created by the
// admin; self-registration always yields a client.
func HandleRegister(c *fiber.Ctx) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	role := "client"

	if username == "" || password == "" {
		return c.Status(400).SendString("Username and password are required")
	}

	var exists int
	err := config.DB.QueryRow("SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&exists)
	if err == nil && exists > 0 {
		return c.Status(400).SendString("Username already taken")
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Password hash error: %v", err)
		return c.Status(500).SendString("Password hashing error")
	}

	apiKey, err := utils.GenerateAPIKey()
	if err != nil {
		log.Printf("API key generation error: %v", err)
		return c.Status(500).SendString("API key generation error")
	}

	_, err = config.DB.Exec("INSERT INTO users (username, password_hash, role, api_key, balance, created_at) VALUES (?, ?, ?, ?, 0, ?)",
		username, passwordHash, role, apiKey, time.Now())
	if err != nil {
		log.Printf("User creation error: %v", err)
		return c.Status(500).SendString("User creation error")
	}

	return c.Redirect("/login")
}

func HandleLogout(c *fiber.Ctx) error {
	sess, err := config.Store.Get(c)
	if err == nil {
		sess.Destroy()
	}
	return c.Redirect("/login")
}

// RegenerateAPIKey rotates the signed-in account's API key.
func RegenerateAPIKey(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	apiKey, err := utils.GenerateAPIKey()
	if err != nil {
		return c.Status(500).SendString("API key generation error")
	}

	_, err = config.DB.Exec("UPDATE users SET api_key = ? WHERE id = ?", apiKey, user.ID)
	if err != nil {
		return c.Status(500).SendString("API key update error")
	}
	user.APIKey = apiKey
	return c.JSON(fiber.Map{
		"api_key": apiKey,
	})
}
