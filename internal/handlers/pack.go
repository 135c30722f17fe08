package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"nrm-schedules/internal/database"
	"nrm-schedules/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

//
// PACKS
//

type packRequest struct {
	Name       string   `json:"name" validate:"required,max=255"`
	ScheduleID string   `json:"schedule_id" validate:"omitempty,uuid"`
	RowIndexes []int    `json:"row_indexes" validate:"dive,gte=0"`
	DrawingIDs []string `json:"drawing_ids" validate:"dive,uuid"`
}

// resolve validates row and drawing references against the project and
// writes them to p. Row indexes are deduplicated and sorted.
func (r packRequest) resolve(project models.Project, p *models.Pack) error {
	p.Name = strings.TrimSpace(r.Name)
	p.ScheduleID = r.ScheduleID
	p.RowIndexes = datatypes.JSONSlice[int]{}
	p.DrawingIDs = datatypes.JSONSlice[string]{}

	if len(r.RowIndexes) > 0 && r.ScheduleID == "" {
		return fmt.Errorf("%w: row_indexes need a schedule_id", errBadReference)
	}
	if r.ScheduleID != "" {
		var sched models.Schedule
		if err := database.DB.Where("id = ? AND project_id = ?", r.ScheduleID, project.ID).
			First(&sched).Error; err != nil {
			return fmt.Errorf("schedule %s: %w", r.ScheduleID, database.NotFound(err))
		}
		rows, err := packRows(r.RowIndexes, sched.RowCount)
		if err != nil {
			return err
		}
		p.RowIndexes = rows
	}

	if len(r.DrawingIDs) > 0 {
		var count int64
		ids := dedupe(r.DrawingIDs)
		if err := database.DB.Model(&models.Drawing{}).
			Where("id IN ? AND project_id = ?", ids, project.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if int(count) != len(ids) {
			return fmt.Errorf("drawing_ids: %w", models.ErrNotFound)
		}
		p.DrawingIDs = ids
	}
	return nil
}

// packRows checks every index is within the schedule's row count.
func packRows(indexes []int, rowCount int) ([]int, error) {
	seen := map[int]bool{}
	out := []int{}
	for _, i := range indexes {
		if i < 0 || i >= rowCount {
			return nil, fmt.Errorf("%w: row index %d out of range (schedule has %d rows)", errBadReference, i, rowCount)
		}
		if !seen[i] {
			seen[i] = true
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out, nil
}

func dedupe(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func ListPacks(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}
	var packs []models.Pack
	if err := database.DB.Where("project_id = ?", project.ID).
		Order("created_at asc").
		Find(&packs).Error; err != nil {
		respondError(c, "ListPacks", err)
		return
	}
	c.JSON(http.StatusOK, packs)
}

func CreatePack(c *gin.Context) {
	project, ok := loadProject(c, c.Param("id"))
	if !ok {
		return
	}
	var req packRequest
	if !bindJSON(c, &req) {
		return
	}

	pack := models.Pack{ProjectID: project.ID, OwnerID: currentUserID(c)}
	if err := req.resolve(project, &pack); err != nil {
		respondError(c, "resolvePack", err)
		return
	}
	if err := database.DB.Create(&pack).Error; err != nil {
		respondError(c, "CreatePack", err)
		return
	}

	audit(c, "project", project.ID, "pack_create", "created pack "+pack.Name)
	c.JSON(http.StatusCreated, pack)
}

func loadPack(c *gin.Context) (models.Pack, models.Project, bool) {
	var pack models.Pack
	if err := lookup(&pack, c.Param("id")); err != nil {
		respondError(c, "loadPack", err)
		return pack, models.Project{}, false
	}
	project, ok := loadProject(c, pack.ProjectID)
	return pack, project, ok
}

func GetPack(c *gin.Context) {
	pack, _, ok := loadPack(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, pack)
}

func UpdatePack(c *gin.Context) {
	pack, project, ok := loadPack(c)
	if !ok {
		return
	}
	var req packRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.resolve(project, &pack); err != nil {
		respondError(c, "resolvePack", err)
		return
	}
	if err := database.DB.Save(&pack).Error; err != nil {
		respondError(c, "UpdatePack", err)
		return
	}
	c.JSON(http.StatusOK, pack)
}

func DeletePack(c *gin.Context) {
	pack, project, ok := loadPack(c)
	if !ok {
		return
	}
	if err := database.DB.Delete(&pack).Error; err != nil {
		respondError(c, "DeletePack", err)
		return
	}
	audit(c, "project", project.ID, "pack_delete", "deleted pack "+pack.Name)
	c.Status(http.StatusNoContent)
}

// PackRows returns the schedule rows referenced by the pack.
func PackRows(c *gin.Context) {
	pack, _, ok := loadPack(c)
	if !ok {
		return
	}
	if pack.ScheduleID == "" {
		c.JSON(http.StatusOK, gin.H{"headers": []string{}, "rows": []models.Row{}})
		return
	}
	headers, rows, err := svc.Pipeline.Rows(c.Request.Context(), pack.ScheduleID)
	if err != nil {
		respondError(c, "PackRows", err)
		return
	}
	selected := make([]models.Row, 0, len(pack.RowIndexes))
	for _, i := range pack.RowIndexes {
		if i >= 0 && i < len(rows) {
			selected = append(selected, rows[i])
		}
	}
	c.JSON(http.StatusOK, gin.H{"headers": headers, "rows": selected})
}
