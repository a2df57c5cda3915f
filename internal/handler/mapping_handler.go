package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/emerginginv/trace-aid-sub011/internal/domain"
	"github.com/emerginginv/trace-aid-sub011/internal/middleware"
	"github.com/emerginginv/trace-aid-sub011/internal/service"
)

// MappingConfigHandler handles stored mapping config HTTP requests.
type MappingConfigHandler struct {
	configService service.MappingConfigServiceInterface
}

// NewMappingConfigHandler creates a new MappingConfigHandler.
func NewMappingConfigHandler(configService service.MappingConfigServiceInterface) *MappingConfigHandler {
	return &MappingConfigHandler{configService: configService}
}

// orgID extracts and validates the organization_id query parameter.
func orgID(c *gin.Context) (uuid.UUID, bool) {
	raw := c.Query("organization_id")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id is required"})
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organization_id must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// GetConfig handles GET /api/v1/mapping-configs/:source
func (h *MappingConfigHandler) GetConfig(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}
	source := c.Param("source")

	config, err := h.configService.GetConfig(c.Request.Context(), org, source)
	if err != nil {
		log.Printf("[request_id=%s] Failed to get mapping config for %s: %v", middleware.GetRequestID(c), source, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve mapping config"})
		return
	}

	if config == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "mapping config not found"})
		return
	}

	c.JSON(http.StatusOK, config)
}

// SaveConfig handles PUT /api/v1/mapping-configs/:source
func (h *MappingConfigHandler) SaveConfig(c *gin.Context) {
	org, ok := orgID(c)
	if !ok {
		return
	}
	source := c.Param("source")

	var config domain.MappingConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	config.SourceSystem = source

	if err := h.configService.SaveConfig(c.Request.Context(), org, &config); err != nil {
		if _, bad := err.(*service.InvalidConfigError); bad {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.Printf("[request_id=%s] Failed to save mapping config for %s: %v", middleware.GetRequestID(c), source, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save mapping config"})
		return
	}

	c.JSON(http.StatusOK, config)
}
