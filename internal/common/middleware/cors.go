package middleware

import (
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// CORS allows the given origins to call the model API and read the request
// id of each response.
func CORS(origins []string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:  origins,
		AllowHeaders:  []string{fiber.HeaderContentType, RequestIDHeader},
		AllowMethods:  []string{fiber.MethodGet, fiber.MethodPost, fiber.MethodDelete, fiber.MethodOptions},
		ExposeHeaders: []string{RequestIDHeader},
	})
}
