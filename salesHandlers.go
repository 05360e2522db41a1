package main

import (
	"net/http"
	"strconv"

	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"bitbucket.org/mmdatafocus/realapp_backend/workflow"
	"github.com/gin-gonic/gin"
)

func registerSalesRoutes(api *gin.RouterGroup) {
	api.GET("/cost-sheets", listCostSheetsHandler())
	api.POST("/cost-sheets", createCostSheetHandler())
	api.GET("/cost-sheets/:id", getCostSheetHandler())
	api.PUT("/cost-sheets/:id", updateCostSheetHandler())
	api.GET("/cost-sheets/:id/schedule.xlsx", costSheetScheduleExcelHandler())

	api.GET("/booking-orders", listBookingOrdersHandler())
	api.POST("/booking-orders", createBookingOrderHandler())
	api.GET("/booking-orders/:id", getBookingOrderHandler())
	api.PUT("/booking-orders/:id", updateBookingOrderHandler())
	api.POST("/booking-orders/:id/submit", submitBookingOrderHandler())
	api.POST("/booking-orders/:id/cancel", cancelBookingOrderHandler())
	api.GET("/booking-orders/:id/invoices", listBookingOrderInvoicesHandler())
	api.POST("/booking-orders/:id/invoices", createBookingOrderInvoicesHandler())
	api.GET("/booking-orders/:id/schedule.xlsx", bookingOrderScheduleExcelHandler())

	api.GET("/sales-invoices/:id", getSalesInvoiceHandler())
	api.POST("/sales-invoices/:id/confirm", confirmSalesInvoiceHandler())
	api.POST("/sales-invoices/:id/payments", recordSalesInvoicePaymentHandler())
}

func listCostSheetsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		unitId, _ := strconv.Atoi(c.Query("unit_id"))
		costSheets, err := models.ListCostSheets(c.Request.Context(), unitId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, costSheets)
	}
}

func createCostSheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCostSheet
		if !bindJSON(c, &input) {
			return
		}
		costSheet, err := models.CreateCostSheet(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, costSheet)
	}
}

func getCostSheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		costSheet, err := models.GetCostSheet(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, costSheet)
	}
}

func updateCostSheetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewCostSheet
		if !bindJSON(c, &input) {
			return
		}
		costSheet, err := models.UpdateCostSheet(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, costSheet)
	}
}

func listBookingOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.BookingOrderFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter: " + err.Error()})
			return
		}
		orders, err := models.ListBookingOrders(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, orders)
	}
}

func createBookingOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBookingOrder
		if !bindJSON(c, &input) {
			return
		}
		order, err := models.CreateBookingOrder(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func getBookingOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		order, err := models.GetBookingOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func updateBookingOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.UpdateBookingOrderInput
		if !bindJSON(c, &input) {
			return
		}
		order, err := models.UpdateBookingOrder(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func submitBookingOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		order, err := models.SubmitBookingOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func cancelBookingOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		order, err := models.CancelBookingOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func listBookingOrderInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		invoices, err := models.ListSalesInvoices(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoices)
	}
}

// createBookingOrderInvoicesHandler honours the Idempotency-Key header; a replay answers 200 with the first result.
func createBookingOrderInvoicesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var req workflow.InvoiceRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := workflow.CreateBookingOrderInvoices(c.Request.Context(), id, req)
		if err != nil {
			respondError(c, err)
			return
		}
		if result.Replayed {
			c.Header("Idempotent-Replayed", "true")
			c.JSON(http.StatusOK, result)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func getSalesInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		invoice, err := models.GetSalesInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func confirmSalesInvoiceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		invoice, err := models.ConfirmSalesInvoice(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

func recordSalesInvoicePaymentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c)
		if !ok {
			return
		}
		var input models.NewInvoicePayment
		if !bindJSON(c, &input) {
			return
		}
		invoice, err := models.RecordSalesInvoicePayment(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}
