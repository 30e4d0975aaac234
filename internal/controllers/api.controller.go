package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"nigran/internal/models"
	"nigran/internal/services"
)

var (
	rpcClient *services.RPCClient
	rosterSvc *services.RosterService
)

// Init hands the controllers the shared transport client and roster
// cache. Call once before registering routes.
func Init(c *services.RPCClient, roster *services.RosterService) {
	rpcClient = c
	rosterSvc = roster
}

// GetGroups serves the dashboard's group list.
func GetGroups(c *gin.Context) {
	resp, err := services.GetGroupList(c.Request.Context(), rpcClient)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Fail(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetCurrentUser serves the dashboard's current-user lookup.
func GetCurrentUser(c *gin.Context) {
	resp, err := services.GetCurrentUser(c.Request.Context(), rpcClient)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Fail(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSettings serves the public settings/version blob.
func GetSettings(c *gin.Context) {
	resp, err := services.GetSettings(c.Request.Context(), rpcClient)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.Fail(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetMonitor serves the provisional per-entity monitor endpoint.
func GetMonitor(c *gin.Context) {
	c.JSON(http.StatusOK, services.GetMonitor(c.Param("id")))
}

// RefreshRoster forces a roster refetch.
func RefreshRoster(c *gin.Context) {
	if err := rosterSvc.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, models.Fail(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, models.OK(nil))
}
