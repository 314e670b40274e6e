package fileapi

import (
	"github.com/gofiber/fiber/v3"

	"github.com/eludris-go/eludris/internal/httputil"
	"github.com/eludris-go/eludris/internal/ratelimit"
)

// RegisterRoutes wires every effis route onto app: bucket-scoped upload/fetch/download/data
// routes, the attachments-bucket shortcuts at the root, and the static file routes. The static and shortcut routes are
// registered first because the /:bucket/:id pattern would otherwise capture their paths.
func RegisterRoutes(app *fiber.App, h *FileHandler, limiter *ratelimit.Limiter) {
	uploadLimit := bucketRateLimit(limiter)
	attachmentsUploadLimit := httputil.RateLimit(limiter, ratelimit.BucketAttachments, httputil.ByIP)
	fetchLimit := httputil.RateLimit(limiter, ratelimit.BucketFetchFile, httputil.ByIP)

	app.Get("/static/:name", fetchLimit, h.GetStatic)
	app.Get("/static/:name/download", fetchLimit, h.DownloadStatic)

	app.Post("/", attachmentsUploadLimit, h.UploadAttachment)
	app.Get("/:id", fetchLimit, h.GetAttachment)
	app.Get("/:id/download", fetchLimit, h.DownloadAttachment)
	app.Get("/:id/data", fetchLimit, h.DataAttachment)

	app.Post("/:bucket", uploadLimit, h.Upload)
	app.Get("/:bucket/:id", fetchLimit, h.Get)
	app.Get("/:bucket/:id/download", fetchLimit, h.Download)
	app.Get("/:bucket/:id/data", fetchLimit, h.Data)
}

// bucketRateLimit admits POST /:bucket requests under the rate-limit bucket that governs their upload-bucket path
// param, resolved per request since the bucket name isn't known until routing.
func bucketRateLimit(limiter *ratelimit.Limiter) fiber.Handler {
	return func(c fiber.Ctx) error {
		return httputil.RateLimit(limiter, rateLimitBucket(c.Params("bucket")), httputil.ByIP)(c)
	}
}
