package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-floor/database"
	"github.com/yeremiapane/restaurant-floor/models"
	"github.com/yeremiapane/restaurant-floor/utils"
)

type QueueController struct {
	*Deps
}

func NewQueueController(deps *Deps) *QueueController {
	return &QueueController{Deps: deps}
}

func (qc *QueueController) broadcastQueue(ctx context.Context) {
	queue, err := qc.Store.ListQueue(ctx)
	if err != nil {
		utils.ErrorLogger.Printf("Error loading queue for broadcast: %v", err)
		return
	}
	qc.Hub.BroadcastQueueUpdate(queue)
}

// GetQueue -> waiting parties in position order
func (qc *QueueController) GetQueue(c *gin.Context) {
	queue, err := qc.Store.ListQueue(c.Request.Context())
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Current queue", queue)
}

// JoinQueue -> appends a party and runs a floor cycle, which may seat it
// right away
func (qc *QueueController) JoinQueue(c *gin.Context) {
	var req struct {
		Name      string  `json:"name" binding:"required"`
		PartySize int     `json:"party_size" binding:"required,min=1"`
		Phone     *string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	entry := models.QueueEntry{Name: req.Name, PartySize: req.PartySize, Phone: req.Phone}
	outcome, err := qc.mutateAndCycle(c.Request.Context(), func(ctx context.Context) error {
		return qc.Store.JoinQueue(ctx, &entry, qc.Coordinator.Policy().WaitIncrementMinutes, qc.now())
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	match := outcome.matchFor(entry.ID)
	if match == nil {
		if latest, err := qc.Store.GetEntry(c.Request.Context(), entry.ID); err == nil {
			entry = *latest
		}
	}
	qc.broadcastQueue(c.Request.Context())

	utils.InfoLogger.Printf("Party %s (%d) joined the queue at position %d", entry.Name, entry.PartySize, entry.Position)
	utils.RespondJSON(c, http.StatusCreated, "Joined queue", gin.H{
		"entry":  entry,
		"seated": match != nil,
		"match":  match,
		"cycle":  outcome.data(),
	})
}

func (qc *QueueController) GetEntry(c *gin.Context) {
	id, err := paramID(c, "entry_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	entry, err := qc.Store.GetEntry(c.Request.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrEntryNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(c, status, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Queue entry", entry)
}

// LeaveQueue -> removes a party (seated elsewhere or cancelled) and runs a
// floor cycle to close up the positions
func (qc *QueueController) LeaveQueue(c *gin.Context) {
	id, err := paramID(c, "entry_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	outcome, err := qc.mutateAndCycle(c.Request.Context(), func(ctx context.Context) error {
		return qc.Store.LeaveQueue(ctx, id)
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, database.ErrEntryNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(c, status, err)
		return
	}

	qc.broadcastQueue(c.Request.Context())
	utils.RespondJSON(c, http.StatusOK, "Removed from queue", gin.H{
		"id":    id,
		"cycle": outcome.data(),
	})
}
