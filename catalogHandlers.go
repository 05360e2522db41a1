package main

import (
	"net/http"

	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"bitbucket.org/mmdatafocus/realapp_backend/workflow"
	"github.com/gin-gonic/gin"
)

func registerCatalogRoutes(api *gin.RouterGroup) {
	api.GET("/settings", getSettingsHandler())
	api.PUT("/settings", upsertSettingsHandler())

	api.GET("/projects", listProjectsHandler())
	api.POST("/projects", createProjectHandler())
	api.GET("/projects/:id", getProjectHandler())
	api.PUT("/projects/:id", updateProjectHandler())

	api.GET("/blocks", listBlocksHandler())
	api.POST("/blocks", createBlockHandler())
	api.GET("/blocks/:id", getBlockHandler())
	api.PUT("/blocks/:id", updateBlockHandler())
	api.POST("/blocks/:id/payment-schemes", addBlockPaymentSchemeHandler())
	api.PUT("/blocks/:id/tower-milestones", updateTowerMilestonesHandler())

	api.GET("/floors", listFloorsHandler())
	api.POST("/floors", createFloorHandler())
	api.GET("/floors/:id", getFloorHandler())
	api.GET("/floors/:id/hierarchy", floorHierarchyHandler())

	api.GET("/units", listUnitsHandler())
	api.POST("/units", createUnitHandler())
	api.GET("/units/:id", getUnitHandler())
	api.PUT("/units/:id", updateUnitHandler())
	api.POST("/units/:id/recalculate", recalculateUnitHandler())
	api.POST("/jobs/unit-recalculate", recalculateAllUnitsHandler())

	api.GET("/payment-scheme-templates", listTemplatesHandler())
	api.POST("/payment-scheme-templates", createTemplateHandler())
	api.GET("/payment-scheme-templates/:id", getTemplateHandler())
	api.PUT("/payment-scheme-templates/:id", updateTemplateHandler())
}

func getSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		settings, err := models.GetRealappSettings(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func upsertSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewRealappSettings
		if !bindJSON(c, &input) {
			return
		}
		settings, err := models.UpsertRealappSettings(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, settings)
	}
}

func listProjectsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projects, err := models.ListProjects(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, projects)
	}
}

func createProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewProject
		if !bindJSON(c, &input) {
			return
		}
		project, err := models.CreateProject(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, project)
	}
}

func getProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		project, err := models.GetProject(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, project)
	}
}

func updateProjectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewProject
		if !bindJSON(c, &input) {
			return
		}
		project, err := models.UpdateProject(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, project)
	}
}

func listBlocksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectId, ok := optionalIntQuery(c, "project_id")
		if !ok {
			return
		}
		blocks, err := models.ListBlocks(c.Request.Context(), projectId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, blocks)
	}
}

func createBlockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBlock
		if !bindJSON(c, &input) {
			return
		}
		block, err := models.CreateBlock(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, block)
	}
}

func getBlockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		block, err := models.GetBlock(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, block)
	}
}

func updateBlockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewBlock
		if !bindJSON(c, &input) {
			return
		}
		block, err := models.UpdateBlock(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, block)
	}
}

type addPaymentSchemeRequest struct {
	TemplateId int `json:"template_id" binding:"required,gt=0"`
}

func addBlockPaymentSchemeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req addPaymentSchemeRequest
		if !bindJSON(c, &req) {
			return
		}
		block, added, err := models.AddBlockPaymentScheme(c.Request.Context(), id, req.TemplateId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"block": block, "milestones_added": added})
	}
}

func updateTowerMilestonesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input []models.NewTowerMilestoneDate
		if !bindJSON(c, &input) {
			return
		}
		block, err := models.UpdateTowerMilestoneDates(c.Request.Context(), id, input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, block)
	}
}

func listFloorsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		blockId, ok := optionalIntQuery(c, "block_id")
		if !ok {
			return
		}
		floors, err := models.ListFloors(c.Request.Context(), blockId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, floors)
	}
}

func createFloorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewFloor
		if !bindJSON(c, &input) {
			return
		}
		floor, err := models.CreateFloor(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, floor)
	}
}

func getFloorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		floor, err := models.GetFloor(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, floor)
	}
}

func floorHierarchyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		h, err := models.ResolveHierarchy(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, h)
	}
}

func listUnitsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.UnitFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter: " + err.Error()})
			return
		}
		units, err := models.ListUnits(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, units)
	}
}

func createUnitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUnit
		if !bindJSON(c, &input) {
			return
		}
		unit, err := models.CreateUnit(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, unit)
	}
}

func getUnitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		unit, err := models.GetUnit(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, unit)
	}
}

func updateUnitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewUnit
		if !bindJSON(c, &input) {
			return
		}
		unit, err := workflow.UpdateUnit(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, unit)
	}
}

func recalculateUnitHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		unit, costSheets, err := workflow.RecalculateUnit(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"unit": unit, "cost_sheets_refreshed": costSheets})
	}
}

func recalculateAllUnitsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := workflow.RecalculateAllUnits(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func listTemplatesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		activeOnly := c.Query("active") == "true"
		templates, err := models.ListPaymentSchemeTemplates(c.Request.Context(), activeOnly)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, templates)
	}
}

func createTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewPaymentSchemeTemplate
		if !bindJSON(c, &input) {
			return
		}
		tpl, err := models.CreatePaymentSchemeTemplate(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, tpl)
	}
}

func getTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		tpl, err := models.GetPaymentSchemeTemplate(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tpl)
	}
}

func updateTemplateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewPaymentSchemeTemplate
		if !bindJSON(c, &input) {
			return
		}
		tpl, err := models.UpdatePaymentSchemeTemplate(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tpl)
	}
}
