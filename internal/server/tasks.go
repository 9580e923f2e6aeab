package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/taskdeck/internal/auth"
	"github.com/taskdeck/taskdeck/internal/types"
)

func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func (s *Server) handleListTasks(c *gin.Context) {
	userID, ok := requireOwner(c)
	if !ok {
		return
	}
	tasks, err := s.store.ListTasksContext(c.Request.Context(), userID)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	userID, ok := requireOwner(c)
	if !ok {
		return
	}

	var req types.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	check := types.Task{Title: req.Title, Description: req.Description}
	if err := check.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.store.CreateTaskContext(c.Request.Context(), userID, req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastTaskUpdate(userID, "created", task)
		s.broadcastStats(c, userID)
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	userID, ok := requireOwner(c)
	if !ok {
		return
	}
	taskID, ok := pathInt(c, "id")
	if !ok {
		return
	}

	var req types.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	task, err := s.store.UpdateTaskContext(c.Request.Context(), userID, taskID, req)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastTaskUpdate(userID, "updated", task)
		s.broadcastStats(c, userID)
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleToggleTask(c *gin.Context) {
	userID, ok := requireOwner(c)
	if !ok {
		return
	}
	taskID, ok := pathInt(c, "id")
	if !ok {
		return
	}

	task, err := s.store.ToggleTaskContext(c.Request.Context(), userID, taskID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastTaskUpdate(userID, "toggled", task)
		s.broadcastStats(c, userID)
	}
	c.JSON(http.StatusOK, task)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	userID, ok := requireOwner(c)
	if !ok {
		return
	}
	taskID, ok := pathInt(c, "id")
	if !ok {
		return
	}

	if err := s.store.DeleteTaskContext(c.Request.Context(), userID, taskID); err != nil {
		respondStoreError(c, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastTaskUpdate(userID, "deleted", types.Task{ID: taskID})
		s.broadcastStats(c, userID)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleTodayTasks(c *gin.Context) {
	userID := auth.UserID(c)

	limit := 5
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = v
	}

	today, err := s.store.TodayTasksContext(c.Request.Context(), userID, limit)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, today)
}

func (s *Server) handleTaskStats(c *gin.Context) {
	stats, err := s.store.TaskStatsContext(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleCategoryStats(c *gin.Context) {
	stats, err := s.store.CategoryStatsContext(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

type categoryRequest struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

func (s *Server) handleListCategories(c *gin.Context) {
	categories, err := s.store.ListCategoriesContext(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	userID := auth.UserID(c)

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	check := types.Category{Name: req.Name, Icon: req.Icon}
	if err := check.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := s.store.CreateCategoryContext(c.Request.Context(), userID, req.Name, req.Icon)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastCategoryUpdate(userID, "created", category.ID, category.Name)
	}
	c.JSON(http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(c *gin.Context) {
	userID := auth.UserID(c)
	categoryID, ok := pathInt(c, "id")
	if !ok {
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	check := types.Category{Name: req.Name, Icon: req.Icon}
	if err := check.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	category, err := s.store.UpdateCategoryContext(c.Request.Context(), userID, categoryID, req.Name, req.Icon)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastCategoryUpdate(userID, "updated", category.ID, category.Name)
	}
	c.JSON(http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	userID := auth.UserID(c)
	categoryID, ok := pathInt(c, "id")
	if !ok {
		return
	}

	if err := s.store.DeleteCategoryContext(c.Request.Context(), userID, categoryID); err != nil {
		respondStoreError(c, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastCategoryUpdate(userID, "deleted", categoryID, "")
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleGetPreferences(c *gin.Context) {
	prefs, err := s.store.GetPreferences(c.Request.Context(), auth.UserID(c))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *Server) handleUpdatePreferences(c *gin.Context) {
	userID := auth.UserID(c)

	var prefs types.UserPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.store.UpdatePreferences(c.Request.Context(), userID, prefs); err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, prefs)
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	userID := auth.UserID(c)

	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := s.store.UpdateUserProfile(c.Request.Context(), userID, req.Name); err != nil {
		respondStoreError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// broadcastStats pushes fresh aggregate counts after any task mutation.
func (s *Server) broadcastStats(c *gin.Context, userID string) {
	stats, err := s.store.TaskStatsContext(c.Request.Context(), userID)
	if err != nil {
		s.logger.Printf("failed to compute stats for broadcast: %v", err)
		return
	}
	s.hub.BroadcastStats(userID, stats)
}
