package models

import "gorm.io/datatypes"

// Row is one NRM element: column name to cell value, no fixed schema.
type Row map[string]string

// Group is an NRM section and the rows assigned to it.
type Group struct {
	Section  string `json:"section"`
	Category string `json:"category,omitempty"`
	Rows     []Row  `json:"rows"`
}

type ScheduleMetadata struct {
	CustomName string   `json:"custom_name,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Icon       string   `json:"icon,omitempty"`
	Color      string   `json:"color,omitempty"`
}

// Schedule is an uploaded CSV. Row sets live in the blob store and are referenced by URL.
type Schedule struct {
	Document
	ProjectID string `gorm:"size:36;index;not null" json:"project_id"`
	OwnerID   string `gorm:"size:36;index;not null" json:"owner_id"`

	FileName        string `gorm:"size:255;not null" json:"file_name"`
	RawURL          string `gorm:"size:512" json:"raw_url,omitempty"`
	ExtractedURL    string `gorm:"size:512" json:"extracted_url,omitempty"`
	StandardizedURL string `gorm:"size:512" json:"standardized_url,omitempty"`
	GroupedURL      string `gorm:"size:512" json:"grouped_url,omitempty"`

	SourceHeaders datatypes.JSONSlice[string]          `json:"source_headers"`
	Headers       datatypes.JSONSlice[string]          `json:"headers"`
	RowCount      int                                  `json:"row_count"`
	Metadata      datatypes.JSONType[ScheduleMetadata] `json:"metadata"`

	Step      int    `json:"step"`
	LastError string `gorm:"type:text" json:"last_error,omitempty"`
}
