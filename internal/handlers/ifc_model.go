package handlers

import (
	"net/http"
	"path"
	"strings"

	"nrm-schedules/internal/database"
	"nrm-schedules/internal/ifc"
	"nrm-schedules/internal/metrics"
	"nrm-schedules/internal/models"
	"nrm-schedules/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

//
// IFC MODELS
//

func ListModels(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}
	var list []models.IFCModel
	if err := database.DB.Where("project_id = ?", project.ID).
		Order("created_at asc").
		Find(&list).Error; err != nil {
		respondError(c, "ListModels", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// UploadModel stores an .ifc file as a new model in the project.
func UploadModel(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}
	fh, data, err := readUpload(c, "file", svc.Config.MaxUploadBytes)
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	kind, err := ifc.Classify(fh.Filename, int64(len(data)), svc.Config.MaxUploadBytes)
	if err != nil {
		respondError(c, "UploadModel", err)
		return
	}
	if kind != ifc.KindIFC {
		badRequest(c, "upload the .ifc model first, then attach .frag geometry to it")
		return
	}

	ownerID := currentUserID(c)
	url, err := svc.Blobs.Put(c.Request.Context(), storage.ObjectKey(ownerID, "models", fh.Filename), "application/x-step", data)
	if err != nil {
		respondError(c, "UploadModel", err)
		return
	}

	model := models.IFCModel{
		ProjectID: project.ID,
		OwnerID:   ownerID,
		FileName:  path.Base(fh.Filename),
		URL:       url,
		Link:      datatypes.NewJSONType(models.ModelLink{}),
	}
	if err := database.DB.Create(&model).Error; err != nil {
		deleteBlobs(c, url)
		respondError(c, "UploadModel", err)
		return
	}

	metrics.UploadsTotal.WithLabelValues("ifc").Inc()
	audit(c, "project", project.ID, "model_upload", model.FileName)
	c.JSON(http.StatusCreated, model)
}

func loadModel(c *gin.Context) (models.IFCModel, bool) {
	var model models.IFCModel
	if err := lookup(&model, c.Param("id")); err != nil {
		respondError(c, "loadModel", err)
		return model, false
	}
	_, ok := loadProject(c, model.ProjectID)
	return model, ok
}

func GetModel(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, model)
}

func DeleteModel(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	if err := database.DB.Delete(&model).Error; err != nil {
		respondError(c, "DeleteModel", err)
		return
	}
	deleteBlobs(c, model.URL, model.FragmentURL)
	c.Status(http.StatusNoContent)
}

// UploadFragment attaches converted .frag geometry to a model, replacing any earlier one.
func UploadFragment(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	fh, data, err := readUpload(c, "file", svc.Config.MaxUploadBytes)
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	kind, err := ifc.Classify(fh.Filename, int64(len(data)), svc.Config.MaxUploadBytes)
	if err != nil {
		respondError(c, "UploadFragment", err)
		return
	}
	if kind != ifc.KindFragment {
		badRequest(c, "geometry must be a .frag file")
		return
	}

	url, err := svc.Blobs.Put(c.Request.Context(), storage.ObjectKey(model.OwnerID, "models/fragments", fh.Filename), "application/octet-stream", data)
	if err != nil {
		respondError(c, "UploadFragment", err)
		return
	}
	old := model.FragmentURL
	model.FragmentURL = url
	if err := database.DB.Save(&model).Error; err != nil {
		deleteBlobs(c, url)
		respondError(c, "UploadFragment", err)
		return
	}
	deleteBlobs(c, old)

	metrics.UploadsTotal.WithLabelValues("frag").Inc()
	c.JSON(http.StatusOK, model)
}

type linkRequest struct {
	ScheduleID     string `json:"schedule_id" validate:"required,uuid"`
	ScheduleColumn string `json:"schedule_column" validate:"required"`
	ModelProperty  string `json:"model_property" validate:"required"`
}

// LinkModel ties the model to a schedule column in the same project.
func LinkModel(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	var req linkRequest
	if !bindJSON(c, &req) {
		return
	}

	var sched models.Schedule
	if err := database.DB.Where("id = ? AND project_id = ?", req.ScheduleID, model.ProjectID).
		First(&sched).Error; err != nil {
		respondError(c, "LinkModel", database.NotFound(err))
		return
	}
	headers, _, err := svc.Pipeline.Rows(c.Request.Context(), sched.ID)
	if err != nil {
		respondError(c, "LinkModel", err)
		return
	}

	link := models.ModelLink{
		ScheduleID:     sched.ID,
		ScheduleColumn: req.ScheduleColumn,
		ModelProperty:  strings.TrimSpace(req.ModelProperty),
	}
	if err := ifc.ValidateLink(link, headers); err != nil {
		respondError(c, "LinkModel", err)
		return
	}

	model.Link = datatypes.NewJSONType(link)
	if err := database.DB.Save(&model).Error; err != nil {
		respondError(c, "LinkModel", err)
		return
	}
	audit(c, "project", model.ProjectID, "model_link", model.FileName+" -> "+sched.FileName+"."+link.ScheduleColumn)
	c.JSON(http.StatusOK, model)
}

func UnlinkModel(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	model.Link = datatypes.NewJSONType(models.ModelLink{})
	if err := database.DB.Save(&model).Error; err != nil {
		respondError(c, "UnlinkModel", err)
		return
	}
	c.JSON(http.StatusOK, model)
}

type highlightRequest struct {
	Values []string `json:"values"`
	Rows   []int    `json:"rows" validate:"dive,gte=0"`
}

// HighlightModel maps selected element values to schedule row indexes, and
// selected row indexes back to element values.
func HighlightModel(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	var req highlightRequest
	if !bindJSON(c, &req) {
		return
	}

	link := model.Link.Data()
	if link.ScheduleColumn == "" {
		respondError(c, "HighlightModel", ifc.ErrNotLinked)
		return
	}
	_, rows, err := svc.Pipeline.Rows(c.Request.Context(), link.ScheduleID)
	if err != nil {
		respondError(c, "HighlightModel", err)
		return
	}

	indexes, err := ifc.Highlight(rows, link, req.Values)
	if err != nil {
		respondError(c, "HighlightModel", err)
		return
	}
	values, err := ifc.SelectRows(rows, link, req.Rows)
	if err != nil {
		respondError(c, "HighlightModel", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"property": link.ModelProperty,
		"rows":     indexes,
		"values":   values,
	})
}

// SuggestModelLink proposes the GUID column of a schedule for linking.
func SuggestModelLink(c *gin.Context) {
	model, ok := loadModel(c)
	if !ok {
		return
	}
	scheduleID := c.Query("schedule_id")
	if scheduleID == "" {
		badRequest(c, "schedule_id is required")
		return
	}
	var sched models.Schedule
	if err := database.DB.Where("id = ? AND project_id = ?", scheduleID, model.ProjectID).
		First(&sched).Error; err != nil {
		respondError(c, "SuggestModelLink", database.NotFound(err))
		return
	}
	headers, rows, err := svc.Pipeline.Rows(c.Request.Context(), sched.ID)
	if err != nil {
		respondError(c, "SuggestModelLink", err)
		return
	}
	c.JSON(http.StatusOK, ifc.Suggest(headers, rows))
}
