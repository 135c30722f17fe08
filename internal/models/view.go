package models

import "gorm.io/datatypes"

// ScheduleView is saved table presentation state for a schedule.
type ScheduleView struct {
	Document
	ScheduleID string `gorm:"size:36;index;not null" json:"schedule_id"`
	OwnerID    string `gorm:"size:36;index" json:"owner_id"`

	Name            string                      `gorm:"size:255;not null" json:"name"`
	VisibleColumns  datatypes.JSONSlice[string] `json:"visible_columns"`
	GroupBy         string                      `gorm:"size:255" json:"group_by,omitempty"`
	ExpandedGroups  datatypes.JSONSlice[string] `json:"expanded_groups"`
	PaginateRows    bool                        `json:"paginate_rows"`
	PaginateColumns bool                        `json:"paginate_columns"`
	PageSize        int                         `json:"page_size"`
}

// Pack is a named bucket of schedule rows and drawings within a project.
type Pack struct {
	Document
	ProjectID  string `gorm:"size:36;index;not null" json:"project_id"`
	ScheduleID string `gorm:"size:36;index" json:"schedule_id,omitempty"`
	OwnerID    string `gorm:"size:36;index" json:"owner_id"`

	Name       string                      `gorm:"size:255;not null" json:"name"`
	RowIndexes datatypes.JSONSlice[int]    `json:"row_indexes"`
	DrawingIDs datatypes.JSONSlice[string] `json:"drawing_ids"`
}
