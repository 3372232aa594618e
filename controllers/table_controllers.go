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

type TableController struct {
	*Deps
}

func NewTableController(deps *Deps) *TableController {
	return &TableController{Deps: deps}
}

func tableErrorStatus(err error) int {
	switch {
	case errors.Is(err, database.ErrTableNotFound):
		return http.StatusNotFound
	case errors.Is(err, database.ErrDuplicateTable):
		return http.StatusConflict
	case errors.Is(err, database.ErrInvalidStatus), errors.Is(err, database.ErrInvalidCapacity), errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// CreateTable -> adds a table to the floor
func (tc *TableController) CreateTable(c *gin.Context) {
	var req struct {
		TableNumber string `json:"number" binding:"required"`
		Capacity    int    `json:"capacity" binding:"required"`
		Status      string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	table := models.Table{
		TableNumber: req.TableNumber,
		Capacity:    req.Capacity,
		Status:      req.Status,
	}
	if err := tc.Store.CreateTable(c.Request.Context(), &table, tc.now()); err != nil {
		utils.RespondError(c, tableErrorStatus(err), err)
		return
	}

	tc.Hub.BroadcastTableCreate(table)
	utils.InfoLogger.Printf("New table created: %s (capacity=%d, status=%s)", table.TableNumber, table.Capacity, table.Status)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", table)
}

// GetAllTables -> every table on the floor
func (tc *TableController) GetAllTables(c *gin.Context) {
	tables, err := tc.Store.ListTables(c.Request.Context())
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if status := c.Query("status"); status != "" {
		filtered := tables[:0]
		for _, t := range tables {
			if t.Status == status {
				filtered = append(filtered, t)
			}
		}
		tables = filtered
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", tables)
}

func (tc *TableController) GetTableByID(c *gin.Context) {
	id, err := paramID(c, "table_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	table, err := tc.Store.GetTable(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, tableErrorStatus(err), err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Table detail", table)
}

// UpdateTableStatus -> changes a table's status and runs a floor cycle
func (tc *TableController) UpdateTableStatus(c *gin.Context) {
	id, err := paramID(c, "table_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table *models.Table
	outcome, err := tc.mutateAndCycle(c.Request.Context(), func(ctx context.Context) error {
		var err error
		table, err = tc.Store.SetTableStatus(ctx, id, body.Status, tc.now())
		return err
	})
	if err != nil {
		utils.RespondError(c, tableErrorStatus(err), err)
		return
	}

	// the cycle may have seated a party at this table
	if latest, err := tc.Store.GetTable(c.Request.Context(), id); err == nil {
		table = latest
	}
	tc.Hub.BroadcastTableUpdate(*table)

	utils.InfoLogger.Printf("Table %d status changed to %s", table.ID, body.Status)
	utils.RespondJSON(c, http.StatusOK, "Table status updated", gin.H{
		"table": table,
		"cycle": outcome.data(),
	})
}

// DeleteTable -> removes a table and runs a floor cycle
func (tc *TableController) DeleteTable(c *gin.Context) {
	id, err := paramID(c, "table_id")
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	outcome, err := tc.mutateAndCycle(c.Request.Context(), func(ctx context.Context) error {
		return tc.Store.DeleteTable(ctx, id)
	})
	if err != nil {
		utils.RespondError(c, tableErrorStatus(err), err)
		return
	}

	tc.Hub.BroadcastTableDelete(id)
	utils.InfoLogger.Printf("Table %d deleted", id)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{
		"id":    id,
		"cycle": outcome.data(),
	})
}
