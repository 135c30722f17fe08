package handlers

import (
	"net/http"
	"strings"
	"time"

	"nrm-schedules/internal/config"
	"nrm-schedules/internal/database"
	"nrm-schedules/internal/metrics"
	"nrm-schedules/internal/models"
	"nrm-schedules/internal/photo"
	"nrm-schedules/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

//
// PROJECTS
//

func ListProjects(c *gin.Context) {
	q := database.DB.Order("created_at desc")
	if role := currentRole(c); role != models.RoleAdmin && role != models.RoleViewer {
		q = q.Where("owner_id = ?", currentUserID(c))
	}
	if name := strings.TrimSpace(c.Query("q")); name != "" {
		q = q.Where("name ILIKE ?", "%"+name+"%")
	}

	var projects []models.Project
	if err := q.Find(&projects).Error; err != nil {
		respondError(c, "ListProjects", err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

type projectRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=255"`
	Location    string `json:"location" validate:"max=255"`
	Description string `json:"description"`
	StartDate   string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r projectRequest) apply(p *models.Project) {
	p.Name = strings.TrimSpace(r.Name)
	p.Location = strings.TrimSpace(r.Location)
	p.Description = strings.TrimSpace(r.Description)
	p.StartDate = nil
	if r.StartDate != "" {
		if t, err := time.Parse("2006-01-02", r.StartDate); err == nil {
			p.StartDate = &t
		}
	}
}

func CreateProject(c *gin.Context) {
	var req projectRequest
	if !bindJSON(c, &req) {
		return
	}

	project := models.Project{OwnerID: currentUserID(c)}
	req.apply(&project)
	if len(project.Name) < 3 {
		badRequest(c, "project name must be at least 3 characters")
		return
	}

	if err := database.DB.Create(&project).Error; err != nil {
		respondError(c, "CreateProject", err)
		return
	}

	audit(c, "project", project.ID, "create", "created project "+project.Name)
	c.JSON(http.StatusCreated, project)
}

// loadProject fetches the :id project and checks the caller may use it.
func loadProject(c *gin.Context, id string) (models.Project, bool) {
	var project models.Project
	if err := lookup(&project, id); err != nil {
		respondError(c, "loadProject", err)
		return project, false
	}
	if !canAccess(c, project.OwnerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return project, false
	}
	return project, true
}

func GetProject(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}
	c.JSON(http.StatusOK, project)
}

func UpdateProject(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}

	var req projectRequest
	if !bindJSON(c, &req) {
		return
	}
	req.apply(&project)
	if len(project.Name) < 3 {
		badRequest(c, "project name must be at least 3 characters")
		return
	}

	if err := database.DB.Save(&project).Error; err != nil {
		respondError(c, "UpdateProject", err)
		return
	}

	audit(c, "project", project.ID, "update", "updated project "+project.Name)
	c.JSON(http.StatusOK, project)
}

// DeleteProject removes the project and every document scoped to it.
func DeleteProject(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}

	var blobURLs []string
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var schedules []models.Schedule
		if err := tx.Where("project_id = ?", project.ID).Find(&schedules).Error; err != nil {
			return err
		}
		ids := make([]string, 0, len(schedules))
		for _, s := range schedules {
			ids = append(ids, s.ID)
			blobURLs = append(blobURLs, s.RawURL, s.ExtractedURL, s.StandardizedURL, s.GroupedURL)
		}
		if len(ids) > 0 {
			if err := tx.Where("schedule_id IN ?", ids).Delete(&models.ScheduleView{}).Error; err != nil {
				return err
			}
		}

		var drawingsList []models.Drawing
		if err := tx.Where("project_id = ?", project.ID).Find(&drawingsList).Error; err != nil {
			return err
		}
		for _, d := range drawingsList {
			blobURLs = append(blobURLs, d.URL)
		}

		var modelsList []models.IFCModel
		if err := tx.Where("project_id = ?", project.ID).Find(&modelsList).Error; err != nil {
			return err
		}
		for _, m := range modelsList {
			blobURLs = append(blobURLs, m.URL, m.FragmentURL)
		}

		for _, model := range []any{&models.Schedule{}, &models.Pack{}, &models.Drawing{}, &models.IFCModel{}} {
			if err := tx.Where("project_id = ?", project.ID).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&project).Error
	})
	if err != nil {
		respondError(c, "DeleteProject", err)
		return
	}

	blobURLs = append(blobURLs, project.PhotoURL, project.ThumbnailURL)
	deleteBlobs(c, blobURLs...)

	audit(c, "project", project.ID, "delete", "deleted project "+project.Name)
	c.Status(http.StatusNoContent)
}

// UploadProjectPhoto stores the photo and a thumbnail, replacing earlier ones.
func UploadProjectPhoto(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}

	fh, data, err := readUpload(c, "file", svc.Config.MaxImageBytes)
	if err != nil {
		badRequest(c, "file is required")
		return
	}
	contentType, err := photo.Validate(data, svc.Config.MaxImageBytes)
	if err != nil {
		respondError(c, "UploadProjectPhoto", err)
		return
	}
	thumb, err := photo.Thumbnail(data)
	if err != nil {
		respondError(c, "UploadProjectPhoto", err)
		return
	}

	ctx := c.Request.Context()
	key := storage.ObjectKey(project.OwnerID, "projects", fh.Filename)
	photoURL, err := svc.Blobs.Put(ctx, key, contentType, data)
	if err != nil {
		respondError(c, "UploadProjectPhoto", err)
		return
	}
	thumbURL, err := svc.Blobs.Put(ctx, photo.ThumbnailKey(key), "image/jpeg", thumb)
	if err != nil {
		deleteBlobs(c, photoURL)
		respondError(c, "UploadProjectPhoto", err)
		return
	}

	oldPhoto, oldThumb := project.PhotoURL, project.ThumbnailURL
	project.PhotoURL = photoURL
	project.ThumbnailURL = thumbURL
	if err := database.DB.Save(&project).Error; err != nil {
		deleteBlobs(c, photoURL, thumbURL)
		respondError(c, "UploadProjectPhoto", err)
		return
	}
	deleteBlobs(c, oldPhoto, oldThumb)

	metrics.UploadsTotal.WithLabelValues("photo").Inc()
	audit(c, "project", project.ID, "photo", "uploaded photo "+fh.Filename)
	c.JSON(http.StatusOK, project)
}

// ProjectHistory returns the audit trail of one project.
func ProjectHistory(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}

	var logs []models.AuditLog
	if err := database.DB.Where("entity = ? AND entity_id = ?", "project", project.ID).
		Preload("User").
		Order("created_at asc").
		Find(&logs).Error; err != nil {
		respondError(c, "ProjectHistory", err)
		return
	}
	c.JSON(http.StatusOK, logs)
}

func deleteBlobs(c *gin.Context, urls ...string) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if err := svc.Blobs.Delete(c.Request.Context(), u); err != nil {
			config.GetLogger().WithField("url", u).Warn("failed to delete blob: " + err.Error())
		}
	}
}
