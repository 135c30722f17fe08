package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"nrm-schedules/internal/database"
	"nrm-schedules/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

//
// SCHEDULE VIEWS
//

type viewRequest struct {
	Name            string   `json:"name" validate:"required,max=255"`
	VisibleColumns  []string `json:"visible_columns"`
	GroupBy         string   `json:"group_by"`
	ExpandedGroups  []string `json:"expanded_groups"`
	PaginateRows    bool     `json:"paginate_rows"`
	PaginateColumns bool     `json:"paginate_columns"`
	PageSize        int      `json:"page_size" validate:"gte=0,lte=1000"`
}

// apply copies the request onto v after checking columns exist in the schedule.
func (r viewRequest) apply(v *models.ScheduleView, headers []string) error {
	known := make(map[string]bool, len(headers))
	for _, h := range headers {
		known[h] = true
	}
	for _, col := range r.VisibleColumns {
		if !known[col] {
			return fmt.Errorf("%w: unknown column %q", errBadReference, col)
		}
	}
	if r.GroupBy != "" && !known[r.GroupBy] {
		return fmt.Errorf("%w: unknown group column %q", errBadReference, r.GroupBy)
	}

	v.Name = strings.TrimSpace(r.Name)
	v.VisibleColumns = datatypes.JSONSlice[string](r.VisibleColumns)
	v.GroupBy = r.GroupBy
	v.ExpandedGroups = datatypes.JSONSlice[string](r.ExpandedGroups)
	v.PaginateRows = r.PaginateRows
	v.PaginateColumns = r.PaginateColumns
	v.PageSize = r.PageSize
	if v.PageSize == 0 {
		v.PageSize = 50
	}
	return nil
}

func ListViews(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	var views []models.ScheduleView
	if err := database.DB.Where("schedule_id = ?", sched.ID).
		Order("created_at asc").
		Find(&views).Error; err != nil {
		respondError(c, "ListViews", err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func CreateView(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	var req viewRequest
	if !bindJSON(c, &req) {
		return
	}

	view := models.ScheduleView{ScheduleID: sched.ID, OwnerID: currentUserID(c)}
	if err := req.apply(&view, sched.Headers); err != nil {
		respondError(c, "applyView", err)
		return
	}
	if err := database.DB.Create(&view).Error; err != nil {
		respondError(c, "CreateView", err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

// loadView fetches :view_id within the :id schedule.
func loadView(c *gin.Context, sched models.Schedule) (models.ScheduleView, bool) {
	var view models.ScheduleView
	if err := database.DB.Where("id = ? AND schedule_id = ?", c.Param("view_id"), sched.ID).
		First(&view).Error; err != nil {
		respondError(c, "loadView", database.NotFound(err))
		return view, false
	}
	return view, true
}

func UpdateView(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	view, ok := loadView(c, sched)
	if !ok {
		return
	}
	var req viewRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.apply(&view, sched.Headers); err != nil {
		respondError(c, "applyView", err)
		return
	}
	if err := database.DB.Save(&view).Error; err != nil {
		respondError(c, "UpdateView", err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func DeleteView(c *gin.Context) {
	sched, ok := loadSchedule(c)
	if !ok {
		return
	}
	view, ok := loadView(c, sched)
	if !ok {
		return
	}
	if err := database.DB.Delete(&view).Error; err != nil {
		respondError(c, "DeleteView", err)
		return
	}
	c.Status(http.StatusNoContent)
}
