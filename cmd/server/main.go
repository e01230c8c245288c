// Package main provides the spherediff HTTP server.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"go.ngs.io/spherediff/internal/adapter/store"
	"go.ngs.io/spherediff/internal/adapter/store/dataset"
	"go.ngs.io/spherediff/internal/domain"
	httpHandler "go.ngs.io/spherediff/internal/http"
	"go.ngs.io/spherediff/internal/usecase"
)

const version = "0.1.0"

func main() {
	// Parse command-line flags.
	showHelp := flag.Bool("help", false, "Show usage information")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showHelp {
		printUsage()
		return
	}

	if *showVersion {
		fmt.Printf("spherediff-server version %s\n", version)
		return
	}

	// Load configuration from environment.
	port := getEnv("PORT", "8080")
	datasetPath := getEnv("DATASET_PATH", "./data/ocean.nc")
	uLon := getEnv("ULON_VAR", "u")
	uLat := getEnv("ULAT_VAR", "v")
	extra := getEnv("EXTRA_VARS", "")

	if level, err := log.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	radius, err := getEnvFloat("EARTH_RADIUS", domain.RadiusEarth)
	if err != nil {
		log.Fatalf("Invalid EARTH_RADIUS: %v", err)
	}
	timeStart, err := getEnvInt("TIME_START", 0)
	if err != nil {
		log.Fatalf("Invalid TIME_START: %v", err)
	}
	timeCount, err := getEnvInt("TIME_COUNT", 0)
	if err != nil {
		log.Fatalf("Invalid TIME_COUNT: %v", err)
	}

	log.Info("Starting spherediff server...")
	log.WithFields(log.Fields{
		"port":    port,
		"dataset": datasetPath,
		"u_lon":   uLon,
		"u_lat":   uLat,
		"radius":  radius,
	}).Info("Configuration")

	// Initialize store.
	var loader store.FieldLoader = dataset.NewStore(datasetPath, dataset.ReadOptions{
		TimeStart: timeStart,
		TimeCount: timeCount,
		Radius:    radius,
	})

	var extraVars []string
	if extra != "" {
		extraVars = strings.Split(extra, ",")
	}

	// Initialize use case.
	pointUC := usecase.NewPointUseCase(loader, uLon, uLat, extraVars...)

	// Setup router.
	router := httpHandler.SetupRouter(pointUC)

	// Start server.
	addr := fmt.Sprintf(":%s", port)
	log.Infof("Server listening on %s", addr)
	log.Infof("Health check: http://localhost:%s/health", port)
	log.Info("API endpoints:")
	log.Info("  - GET /v1/fields")
	log.Info("  - GET /v1/kernels")
	log.Info("  - GET /v1/derivative")
	log.Info("  - GET /v1/gradient")
	log.Info("  - GET /v1/vorticity")

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(value, 64)
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(value)
}

// printUsage prints usage information.
func printUsage() {
	fmt.Printf("Spherediff Server v%s\n\n", version)
	fmt.Println("USAGE:")
	fmt.Println("  spherediff-server [flags]")
	fmt.Println()
	fmt.Println("FLAGS:")
	fmt.Println("  -help          Show this help message")
	fmt.Println("  -version       Show version information")
	fmt.Println()
	fmt.Println("ENVIRONMENT VARIABLES:")
	fmt.Println("  PORT                    Server port (default: 8080)")
	fmt.Println("  DATASET_PATH            NetCDF dataset (default: ./data/ocean.nc)")
	fmt.Println("  ULON_VAR                Zonal velocity variable (default: u)")
	fmt.Println("  ULAT_VAR                Meridional velocity variable (default: v)")
	fmt.Println("  EXTRA_VARS              Comma-separated extra variables listed by /v1/fields")
	fmt.Println("  EARTH_RADIUS            Sphere radius in meters (default: 6371000)")
	fmt.Println("  TIME_START, TIME_COUNT  Time window to load (default: all steps)")
	fmt.Println("  LOG_LEVEL               Log level (default: info)")
	fmt.Println("  CORS_ALLOWED_ORIGINS    Comma-separated list of allowed origins (default: all origins)")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Serve a synthetic dataset")
	fmt.Println("  spherediff synth --out /tmp/gyre.nc --flow gyre")
	fmt.Println("  DATASET_PATH=/tmp/gyre.nc spherediff-server")
	fmt.Println()
	fmt.Println("API ENDPOINTS:")
	fmt.Println("  GET /health                    Health check")
	fmt.Println("  GET /v1/fields                 Describe configured variables")
	fmt.Println("  GET /v1/kernels                List kernels")
	fmt.Println("  GET /v1/derivative             Derivative along a grid axis at a point")
	fmt.Println("  GET /v1/gradient               Cartesian gradient at a point")
	fmt.Println("  GET /v1/vorticity              Radial vorticity at an index or lat/lon")
	fmt.Println()
}
