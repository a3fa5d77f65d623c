package transport

import (
	"net/http"
	"time"

	"github.com/ds124wfegd/imageslicer/internal/transport/middleware"
	"github.com/ds124wfegd/imageslicer/internal/web"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type RouteOptions struct {
	RequestTimeout time.Duration
	// UploadLimiter throttles POST uploads, nil disables throttling.
	UploadLimiter *rate.Limiter
	// Events serves the websocket notice stream at /ws when set.
	Events http.HandlerFunc
}

func InitRoutes(sliceHandler *SliceHandler, opts RouteOptions) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	// same-origin only, no CORS headers

	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML)
	})

	api := router.Group(apiPrefix)
	api.Use(middleware.Timeout(opts.RequestTimeout))
	{
		api.POST("", middleware.RateLimit(opts.UploadLimiter), sliceHandler.UploadImage)
		api.GET("/:id", sliceHandler.GetRun)
		api.GET("/:id/files/:name", sliceHandler.DownloadSlice)
		api.GET("/:id/archive", sliceHandler.DownloadArchive)
		api.DELETE("/:id", sliceHandler.DeleteRun)
	}

	if opts.Events != nil {
		router.GET("/ws", gin.WrapF(opts.Events))
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "image-slicer",
		})
	})
	return router
}
