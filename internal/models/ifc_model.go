package models

import "gorm.io/datatypes"

// ModelLink ties a schedule column to an IFC element property for cross-highlighting.
// An empty ScheduleColumn means the model is not linked.
type ModelLink struct {
	ScheduleID     string `json:"schedule_id"`
	ScheduleColumn string `json:"schedule_column"`
	ModelProperty  string `json:"model_property"`
}

type IFCModel struct {
	Document
	ProjectID string `gorm:"size:36;index;not null" json:"project_id"`
	OwnerID   string `gorm:"size:36;index" json:"owner_id"`

	FileName    string `gorm:"size:255;not null" json:"file_name"`
	URL         string `gorm:"size:512" json:"url"`
	FragmentURL string `gorm:"size:512" json:"fragment_url,omitempty"`

	Link datatypes.JSONType[ModelLink] `json:"link"`
}
