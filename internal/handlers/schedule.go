package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"nrm-schedules/internal/database"
	"nrm-schedules/internal/export"
	"nrm-schedules/internal/ifc"
	"nrm-schedules/internal/models"
	"nrm-schedules/internal/pipeline"
	"nrm-schedules/internal/review"

	"github.com/gin-gonic/gin"
)

//
// SCHEDULES
//

func ListSchedules(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}

	var schedules []models.Schedule
	if err := database.DB.Where("project_id = ?", project.ID).
		Order("created_at desc").
		Find(&schedules).Error; err != nil {
		respondError(c, "ListSchedules", err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

// UploadSchedule accepts a multipart CSV under "file" with optional
// custom_name, tags (comma separated), icon and color fields.
func UploadSchedule(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}

	fh, data, err := readUpload(c, "file", svc.Config.MaxUploadBytes)
	if err != nil {
		badRequest(c, "file is required")
		return
	}

	sched, state, err := svc.Pipeline.Upload(c.Request.Context(), pipeline.UploadInput{
		OwnerID:   currentUserID(c),
		ProjectID: project.ID,
		FileName:  fh.Filename,
		Data:      data,
		Metadata: models.ScheduleMetadata{
			CustomName: strings.TrimSpace(c.PostForm("custom_name")),
			Tags:       splitTags(c.PostForm("tags")),
			Icon:       strings.TrimSpace(c.PostForm("icon")),
			Color:      strings.TrimSpace(c.PostForm("color")),
		},
	})
	if err != nil {
		respondError(c, "UploadSchedule", err)
		return
	}

	audit(c, "schedule", sched.ID, "upload", "uploaded "+sched.FileName)
	c.JSON(http.StatusCreated, gin.H{"schedule": sched, "state": state})
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

func loadSchedule(c *gin.Context) (models.Schedule, bool) {
	var sched models.Schedule
	if err := lookup(&sched, c.Param("id")); err != nil {
		respondError(c, "loadSchedule", err)
		return sched, false
	}
	_, ok := loadProject(c, sched.ProjectID)
	return sched, ok
}

func GetSchedule(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sched)
}

type metadataRequest struct {
	CustomName string   `json:"custom_name" validate:"max=255"`
	Tags       []string `json:"tags" validate:"max=20,dive,max=50"`
	Icon       string   `json:"icon" validate:"max=50"`
	Color      string   `json:"color" validate:"omitempty,hexcolor"`
}

func UpdateScheduleMetadata(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	var req metadataRequest
	if !bindJSON(c, &req) {
		return
	}

	updated, err := svc.Pipeline.UpdateMetadata(c.Request.Context(), sched.ID, models.ScheduleMetadata{
		CustomName: strings.TrimSpace(req.CustomName),
		Tags:       req.Tags,
		Icon:       req.Icon,
		Color:      req.Color,
	})
	if err != nil {
		respondError(c, "UpdateScheduleMetadata", err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func DeleteSchedule(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	if err := svc.Pipeline.Delete(c.Request.Context(), sched.ID); err != nil {
		respondError(c, "DeleteSchedule", err)
		return
	}
	audit(c, "schedule", sched.ID, "delete", "deleted "+sched.FileName)
	c.Status(http.StatusNoContent)
}

// ScheduleRows returns the current flat row-set. offset and limit page it.
func ScheduleRows(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	headers, rows, err := svc.Pipeline.Rows(c.Request.Context(), sched.ID)
	if err != nil {
		respondError(c, "ScheduleRows", err)
		return
	}

	total := len(rows)
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	c.JSON(http.StatusOK, gin.H{
		"headers": headers,
		"rows":    rows[offset:end],
		"offset":  offset,
		"total":   total,
	})
}

func ScheduleGroups(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	groups, err := svc.Pipeline.Groups(c.Request.Context(), sched.ID)
	if err != nil {
		respondError(c, "ScheduleGroups", err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// SuggestGUIDColumn scores every column for GUID-like values.
func SuggestGUIDColumn(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	headers, rows, err := svc.Pipeline.Rows(c.Request.Context(), sched.ID)
	if err != nil {
		respondError(c, "SuggestGUIDColumn", err)
		return
	}
	c.JSON(http.StatusOK, ifc.Suggest(headers, rows))
}

// ExportSchedule streams an xlsx. kind=groups writes one sheet per section.
func ExportSchedule(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	name := strings.TrimSuffix(sched.FileName, path.Ext(sched.FileName))
	if custom := sched.Metadata.Data().CustomName; custom != "" {
		name = custom
	}

	headers, rows, err := svc.Pipeline.Rows(ctx, sched.ID)
	if err != nil {
		respondError(c, "ExportSchedule", err)
		return
	}

	var buf *bytes.Buffer
	switch c.DefaultQuery("kind", "rows") {
	case "rows":
		buf, err = export.Rows(name, headers, rows)
	case "groups":
		groups, gerr := svc.Pipeline.Groups(ctx, sched.ID)
		if gerr != nil {
			respondError(c, "ExportSchedule", gerr)
			return
		}
		buf, err = export.Groups(headers, groups)
		name += " groups"
	default:
		badRequest(c, "kind must be rows or groups")
		return
	}
	if err != nil {
		respondError(c, "ExportSchedule", err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".xlsx"))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

//
// WIZARD
//

// wizardAction adapts a pipeline step to a handler that returns the new state.
func wizardAction(name string, action func(c *gin.Context, id string) (any, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		sched, ok := loadSchedule(c)
		if !ok {
			return
		}
		state, err := action(c, sched.ID)
		if err != nil {
			respondError(c, name, err)
			return
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

var (
	WizardState = wizardAction("WizardState", func(c *gin.Context, id string) (any, error) {
		return svc.Pipeline.State(c.Request.Context(), id)
	})
	ExtractSchedule = wizardAction("ExtractSchedule", func(c *gin.Context, id string) (any, error) {
		return svc.Pipeline.Extract(c.Request.Context(), id)
	})
	ProposeRenames = wizardAction("ProposeRenames", func(c *gin.Context, id string) (any, error) {
		return svc.Pipeline.ProposeRenames(c.Request.Context(), id)
	})
	CompleteReview = wizardAction("CompleteReview", func(c *gin.Context, id string) (any, error) {
		return svc.Pipeline.CompleteReview(c.Request.Context(), id)
	})
	GroupSchedule = wizardAction("GroupSchedule", func(c *gin.Context, id string) (any, error) {
		return svc.Pipeline.Group(c.Request.Context(), id)
	})
	WizardBack = wizardAction("WizardBack", func(c *gin.Context, id string) (any, error) {
		return svc.Pipeline.Back(c.Request.Context(), id)
	})
	WizardReset = wizardAction("WizardReset", func(c *gin.Context, id string) (any, error) {
		return svc.Pipeline.Reset(c.Request.Context(), id)
	})
)

type decisionsRequest struct {
	Decisions map[string]review.Decision `json:"decisions" validate:"required,min=1"`
}

var DecideRenames = wizardAction("DecideRenames", func(c *gin.Context, id string) (any, error) {
	var req decisionsRequest
	if !bindJSON(c, &req) {
		return nil, nil
	}
	return svc.Pipeline.Decide(c.Request.Context(), id, req.Decisions)
})

type editsRequest struct {
	Edits []pipeline.CellEdit `json:"edits" validate:"required,min=1,dive"`
}

var EditScheduleRows = wizardAction("EditScheduleRows", func(c *gin.Context, id string) (any, error) {
	var req editsRequest
	if !bindJSON(c, &req) {
		return nil, nil
	}
	return svc.Pipeline.EditRows(c.Request.Context(), id, req.Edits)
})
