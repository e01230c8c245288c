package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"go.ngs.io/spherediff/internal/domain"
	"go.ngs.io/spherediff/internal/kernel"
	"go.ngs.io/spherediff/internal/usecase"
)

// Handler handles HTTP requests for point diagnostics.
type Handler struct {
	pointUC *usecase.PointUseCase
}

// NewHandler creates a new HTTP handler.
func NewHandler(pointUC *usecase.PointUseCase) *Handler {
	return &Handler{
		pointUC: pointUC,
	}
}

// GetFields handles GET /v1/fields.
func (h *Handler) GetFields(c *gin.Context) {
	fields, err := h.pointUC.Fields()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fields": fields})
}

// GetKernels handles GET /v1/kernels.
func (h *Handler) GetKernels(c *gin.Context) {
	type KernelInfo struct {
		Name     string        `json:"name"`
		LongName string        `json:"long_name"`
		Units    string        `json:"units"`
		Roles    []kernel.Role `json:"roles"`
	}

	names := kernel.Names()
	response := make([]KernelInfo, 0, len(names))
	for _, name := range names {
		k, _ := kernel.Lookup(name)
		response = append(response, KernelInfo{
			Name:     k.Name,
			LongName: k.LongName,
			Units:    k.Units,
			Roles:    k.Roles,
		})
	}
	c.JSON(http.StatusOK, gin.H{"kernels": response})
}

// GetDerivative handles GET /v1/derivative.
func (h *Handler) GetDerivative(c *gin.Context) {
	field := c.Query("field")
	axis := c.Query("axis")
	if field == "" || axis == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field and axis parameters are required"})
		return
	}
	idx, err := parseIndex(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pointUC.Derivative(field, axis, idx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetGradient handles GET /v1/gradient.
func (h *Handler) GetGradient(c *gin.Context) {
	field := c.Query("field")
	if field == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "field parameter is required"})
		return
	}
	idx, err := parseIndex(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pointUC.Gradient(field, idx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetVorticity handles GET /v1/vorticity. It takes either lat_index and
// lon_index, or lat and lon in degrees for an interpolated value.
func (h *Handler) GetVorticity(c *gin.Context) {
	latStr := c.Query("lat")
	lonStr := c.Query("lon")

	if latStr == "" && lonStr == "" {
		idx, err := parseIndex(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := h.pointUC.Vorticity(idx)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	if c.Query("lat_index") != "" || c.Query("lon_index") != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat/lon and lat_index/lon_index are mutually exclusive"})
		return
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid latitude: %v", err)})
		return
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid longitude: %v", err)})
		return
	}
	if lat < -90 || lat > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude must be between -90 and 90"})
		return
	}
	itime, err := queryInt(c, "time")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	idepth, err := queryInt(c, "depth")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pointUC.VorticityAt(lat, lon, itime, idepth)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HealthCheck handles GET /health.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// parseIndex reads time, depth, lat_index and lon_index. time and depth
// default to 0; the horizontal indices are required.
func parseIndex(c *gin.Context) (domain.MultiIndex, error) {
	var idx domain.MultiIndex
	if c.Query("lat_index") == "" || c.Query("lon_index") == "" {
		return idx, fmt.Errorf("lat_index and lon_index parameters are required")
	}
	var err error
	if idx.Itime, err = queryInt(c, "time"); err != nil {
		return idx, err
	}
	if idx.Idepth, err = queryInt(c, "depth"); err != nil {
		return idx, err
	}
	if idx.Ilat, err = queryInt(c, "lat_index"); err != nil {
		return idx, err
	}
	if idx.Ilon, err = queryInt(c, "lon_index"); err != nil {
		return idx, err
	}
	return idx, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	s := c.Query(key)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", key, err)
	}
	return v, nil
}

// respondError maps use case errors to status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, domain.ErrVariableNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrGridMismatch):
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
