package http

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"go.ngs.io/spherediff/internal/usecase"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(pointUC *usecase.PointUseCase) *gin.Engine {

	router := gin.Default()

	// Setup CORS middleware.
	corsConfig := cors.DefaultConfig()

	// Default to allow all origins if not specified.
	allowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if allowedOrigins != "" {
		corsConfig.AllowOrigins = strings.Split(allowedOrigins, ",")
	} else {
		corsConfig.AllowAllOrigins = true
	}

	router.Use(cors.New(corsConfig))

	handler := NewHandler(pointUC)

	v1 := router.Group("/v1")
	v1.GET("/fields", handler.GetFields)
	v1.GET("/kernels", handler.GetKernels)
	v1.GET("/derivative", handler.GetDerivative)
	v1.GET("/gradient", handler.GetGradient)
	v1.GET("/vorticity", handler.GetVorticity)

	router.GET("/health", handler.HealthCheck)

	return router
}
