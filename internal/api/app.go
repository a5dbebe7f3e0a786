package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// Base64 inflates the largest accepted photo by a third.
const maxRequestBodyBytes = 12 << 20

type AppOptions struct {
	CORSAllowOrigins string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
}

// NewApp builds the Fiber application with the middleware chain and every
// route registered.
func NewApp(handler *Handler, options AppOptions) *fiber.App {
	if options.ReadTimeout <= 0 {
		options.ReadTimeout = 15 * time.Second
	}
	if options.WriteTimeout <= 0 {
		options.WriteTimeout = 60 * time.Second
	}
	origins := strings.TrimSpace(options.CORSAllowOrigins)
	if origins == "" {
		origins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               "nutrilog",
		DisableStartupMessage: true,
		BodyLimit:             maxRequestBodyBytes,
		ReadTimeout:           options.ReadTimeout,
		WriteTimeout:          options.WriteTimeout,
		ErrorHandler:          handler.ErrorHandler,
	})

	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: contextRequestIDKey,
	}))
	app.Use(handler.Metrics)
	app.Use(handler.AccessLog)
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Accept-Language,Authorization," + initDataHeaderName,
	}))
	app.Use(compress.New())

	RegisterRoutes(app, handler)
	return app
}
