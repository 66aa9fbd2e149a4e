package middleware

import (
	"database/sql"
	"strconv"

	"captcha-client/server/internal/config"
	"captcha-client/server/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AuthMiddleware guards dashboard pages behind a session.
func AuthMiddleware(c *fiber.Ctx) error {
	sess, err := config.Store.Get(c)
	if err != nil {
		return c.Redirect("/login")
	}

	userIDRaw := sess.Get("userID")
	if userIDRaw == nil {
		return c.Redirect("/login")
	}

	var userID int64
	switch v := userIDRaw.(type) {
	case int64:
		userID = v
	case int:
		userID = int64(v)
	case string:
		userID, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			sess.Destroy()
			return c.Redirect("/login")
		}
	default:
		sess.Destroy()
		return c.Redirect("/login")
	}

	var (
		user         models.User
		apiKeyDB     sql.NullString
		balanceDB    sql.NullFloat64
		passwordHash sql.NullString
	)

	err = config.DB.QueryRow("SELECT id, username, password_hash, role, api_key, balance, created_at FROM users WHERE id = ?", userID).
		Scan(&user.ID, &user.Username, &passwordHash, &user.Role, &apiKeyDB, &balanceDB, &user.CreatedAt)

	if err != nil {
		sess.Destroy()
		return c.Redirect("/login")
	}

	if passwordHash.Valid {
		user.PasswordHash = passwordHash.String
	}
	if apiKeyDB.Valid {
		user.APIKey = apiKeyDB.String
	}
	if balanceDB.Valid {
		user.Balance = balanceDB.Float64
	}

	c.Locals("user", &user)
	return c.Next()
}
