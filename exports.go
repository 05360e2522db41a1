package main

import (
	"fmt"
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/realapp_backend/models"
	"bitbucket.org/mmdatafocus/realapp_backend/models/reports"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

func registerReportRoutes(api *gin.RouterGroup) {
	api.GET("/reports/collection", collectionReportHandler())
	api.GET("/reports/collection.xlsx", collectionReportExcelHandler())
}

func writeExcel(c *gin.Context, f *excelize.File, fileName string) {
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, reports.ExcelContentType, buf.Bytes())
}

func collectionReport(c *gin.Context) (*reports.CollectionReport, bool) {
	var filter reports.CollectionReportFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter: " + err.Error()})
		return nil, false
	}
	report, err := reports.GetCollectionReport(c.Request.Context(), filter, time.Now())
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return report, true
}

func collectionReportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ok := collectionReport(c)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func collectionReportExcelHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ok := collectionReport(c)
		if !ok {
			return
		}
		f, err := reports.CollectionReportExcel(report)
		if err != nil {
			respondError(c, err)
			return
		}
		writeExcel(c, f, "collection-report-"+time.Now().Format("20060102")+".xlsx")
	}
}

func costSheetScheduleExcelHandler() gin.HandlerFunc {
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
		f, err := reports.PaymentScheduleExcel(costSheet.PaymentSchedule)
		if err != nil {
			respondError(c, err)
			return
		}
		writeExcel(c, f, reports.ExcelFileName("cost-sheet", costSheet.ID))
	}
}

func bookingOrderScheduleExcelHandler() gin.HandlerFunc {
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
		f, err := reports.PaymentScheduleExcel(order.PaymentSchedule)
		if err != nil {
			respondError(c, err)
			return
		}
		writeExcel(c, f, reports.ExcelFileName("booking-order", order.ID))
	}
}
