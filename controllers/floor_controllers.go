package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-floor/utils"
)

type FloorController struct {
	*Deps
}

func NewFloorController(deps *Deps) *FloorController {
	return &FloorController{Deps: deps}
}

// RunCycle -> runs one floor cycle on demand
func (fc *FloorController) RunCycle(c *gin.Context) {
	result, err := fc.Coordinator.RunCycle(c.Request.Context(), fc.now())
	if err != nil {
		utils.RespondError(c, http.StatusServiceUnavailable, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Floor cycle completed", result)
}

// GetStatus -> what a cycle would do now, without changing anything
func (fc *FloorController) GetStatus(c *gin.Context) {
	analysis, err := fc.Coordinator.Analyze(c.Request.Context(), fc.now())
	if err != nil {
		utils.RespondError(c, http.StatusServiceUnavailable, err)
		return
	}

	data := gin.H{
		"analysis": analysis,
		"policy":   fc.Coordinator.Policy(),
	}
	if fc.Monitor != nil {
		data["metrics"] = fc.Monitor.GetMetrics()
	}
	utils.RespondJSON(c, http.StatusOK, "Floor status", data)
}

// GetNotifications -> the most recent notifications, oldest first
func (fc *FloorController) GetNotifications(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	notifier := fc.Coordinator.Notifier()
	utils.RespondJSON(c, http.StatusOK, "Recent notifications", gin.H{
		"notifications": notifier.Recent(limit),
		"total_sent":    notifier.Sent(),
	})
}
