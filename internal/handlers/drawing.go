package handlers

import (
	"net/http"

	"nrm-schedules/internal/config"
	"nrm-schedules/internal/database"
	"nrm-schedules/internal/drawings"
	"nrm-schedules/internal/events"
	"nrm-schedules/internal/metrics"
	"nrm-schedules/internal/models"
	"nrm-schedules/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

//
// DRAWINGS
//

func ListDrawings(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}
	var list []models.Drawing
	if err := database.DB.Where("project_id = ?", project.ID).
		Order("source_name asc, page asc").
		Find(&list).Error; err != nil {
		respondError(c, "ListDrawings", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UploadDrawings splits a PDF into pages and stores one drawing per page.
func UploadDrawings(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}

	fh, data, err := readUpload(c, "file", svc.Config.MaxUploadBytes)
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	if err := drawings.ValidatePDF(fh.Filename, int64(len(data)), svc.Config.MaxUploadBytes); err != nil {
		respondError(c, "UploadDrawings", err)
		return
	}

	ctx := c.Request.Context()
	pages, err := svc.Splitter.Split(ctx, fh.Filename, data)
	if err != nil {
		respondError(c, "UploadDrawings", err)
		return
	}

	ownerID := currentUserID(c)
	created := make([]models.Drawing, 0, len(pages))
	var stored []string
	for _, page := range pages {
		url, err := svc.Blobs.Put(ctx, storage.ObjectKey(ownerID, "drawings", page.Name), "application/pdf", page.Data)
		if err != nil {
			deleteBlobs(c, stored...)
			respondError(c, "UploadDrawings", err)
			return
		}
		stored = append(stored, url)
		created = append(created, models.Drawing{
			ProjectID:   project.ID,
			OwnerID:     ownerID,
			FileName:    page.Name,
			SourceName:  fh.Filename,
			Page:        page.Number,
			URL:         url,
			Calibration: datatypes.NewJSONType(models.Calibration{}),
			Markups:     datatypes.NewJSONType(drawings.EnsureMarkups(models.Markups{})),
		})
	}

	if err := database.DB.Create(&created).Error; err != nil {
		deleteBlobs(c, stored...)
		respondError(c, "UploadDrawings", err)
		return
	}

	metrics.UploadsTotal.WithLabelValues("pdf").Inc()
	audit(c, "project", project.ID, "drawings_upload", fh.Filename)
	if err := svc.Events.Publish(ctx, events.Event{
		Type:      events.DrawingsUploaded,
		EntityID:  project.ID,
		ProjectID: project.ID,
		UserID:    ownerID,
		Details:   map[string]any{"file": fh.Filename, "pages": len(created)},
	}); err != nil {
		config.GetLogger().WithField("project_id", project.ID).Warn("failed to publish event: " + err.Error())
	}
	c.JSON(http.StatusCreated, created)
}

func loadDrawing(c *gin.Context) (models.Drawing, bool) {
	var drawing models.Drawing
	if err := lookup(&drawing, c.Param("id")); err != nil {
		respondError(c, "loadDrawing", err)
		return drawing, false
	}
	_, ok := loadProject(c, drawing.ProjectID)
	return drawing, ok
}

func GetDrawing(c *gin.Context) {
	drawing, ok := loadDrawing(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, drawing)
}

func DeleteDrawing(c *gin.Context) {
	drawing, ok := loadDrawing(c)
	if !ok {
		return
	}
	if err := database.DB.Delete(&drawing).Error; err != nil {
		respondError(c, "DeleteDrawing", err)
		return
	}
	deleteBlobs(c, drawing.URL)
	c.Status(http.StatusNoContent)
}

type calibrationRequest struct {
	PixelDistance decimal.Decimal `json:"pixel_distance"`
	RealDistance  decimal.Decimal `json:"real_distance"`
	Unit          string          `json:"unit" validate:"required,max=20"`
}

// CalibrateDrawing sets the scale and re-measures every markup.
func CalibrateDrawing(c *gin.Context) {
	drawing, ok := loadDrawing(c)
	if !ok {
		return
	}
	var req calibrationRequest
	if !bindJSON(c, &req) {
		return
	}
	cal, err := drawings.NewCalibration(req.PixelDistance, req.RealDistance, req.Unit)
	if err != nil {
		respondError(c, "CalibrateDrawing", err)
		return
	}

	markups := drawings.Recalculate(drawings.EnsureMarkups(drawing.Markups.Data()), cal)
	drawing.Calibration = datatypes.NewJSONType(cal)
	drawing.Markups = datatypes.NewJSONType(markups)
	if err := saveDrawing(&drawing); err != nil {
		respondError(c, "CalibrateDrawing", err)
		return
	}
	c.JSON(http.StatusOK, drawing)
}

type markupRequest struct {
	Label  string         `json:"label" validate:"max=255"`
	Points []models.Point `json:"points" validate:"required,min=1"`
}

// PutMarkup adds a markup (POST) or replaces :markup_id (PUT).
func PutMarkup(c *gin.Context) {
	drawing, ok := loadDrawing(c)
	if !ok {
		return
	}
	kind, err := drawings.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, "PutMarkup", err)
		return
	}
	var req markupRequest
	if !bindJSON(c, &req) {
		return
	}

	markups, id, err := drawings.PutMarkup(drawing.Markups.Data(), drawing.Calibration.Data(), kind, c.Param("markup_id"), req.Label, req.Points)
	if err != nil {
		respondError(c, "PutMarkup", err)
		return
	}
	drawing.Markups = datatypes.NewJSONType(markups)
	if err := saveDrawing(&drawing); err != nil {
		respondError(c, "PutMarkup", err)
		return
	}

	status := http.StatusOK
	if c.Param("markup_id") == "" {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"id": id, "drawing": drawing})
}

func DeleteMarkup(c *gin.Context) {
	drawing, ok := loadDrawing(c)
	if !ok {
		return
	}
	kind, err := drawings.ParseKind(c.Param("kind"))
	if err != nil {
		respondError(c, "DeleteMarkup", err)
		return
	}
	markups, err := drawings.DeleteMarkup(drawing.Markups.Data(), kind, c.Param("markup_id"))
	if err != nil {
		respondError(c, "DeleteMarkup", err)
		return
	}
	drawing.Markups = datatypes.NewJSONType(markups)
	if err := saveDrawing(&drawing); err != nil {
		respondError(c, "DeleteMarkup", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func DrawingSummary(c *gin.Context) {
	drawing, ok := loadDrawing(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, drawings.Summarize(drawing.Markups.Data(), drawing.Calibration.Data()))
}

func saveDrawing(d *models.Drawing) error {
	return database.DB.Save(d).Error
}
