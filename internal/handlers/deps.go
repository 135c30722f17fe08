package handlers

import (
	"nrm-schedules/internal/config"
	"nrm-schedules/internal/drawings"
	"nrm-schedules/internal/events"
	"nrm-schedules/internal/pipeline"
	"nrm-schedules/internal/storage"
)

// Services are the collaborators handlers need beyond database.DB.
type Services struct {
	Config   *config.Config
	Pipeline *pipeline.Service
	Blobs    storage.Store
	Splitter *drawings.Splitter
	Events   events.Publisher
}

var svc Services

func Configure(s Services) {
	svc = s
}
