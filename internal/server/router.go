package server

import (
	"nrm-schedules/internal/config"
	"nrm-schedules/internal/handlers"
	"nrm-schedules/internal/middleware"
	"nrm-schedules/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())
	r.MaxMultipartMemory = 32 << 20

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
	})
	r.Use(sessions.Sessions("nrm_session", store))

	r.GET("/health", handlers.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// AUTH
	r.POST("/auth/register", handlers.Register)
	r.POST("/auth/login", handlers.Login)
	r.POST("/auth/logout", handlers.Logout)

	api := r.Group("/api")
	api.Use(middleware.RequireAuth(), middleware.InjectUser())

	// viewers read, editors and admins write
	write := middleware.RequireRole(models.RoleAdmin, models.RoleEditor)

	api.GET("/me", handlers.Me)

	// PROJECTS
	api.GET("/projects", handlers.ListProjects)
	api.POST("/projects", write, handlers.CreateProject)
	api.GET("/projects/:id", handlers.GetProject)
	api.PUT("/projects/:id", write, handlers.UpdateProject)
	api.DELETE("/projects/:id", write, handlers.DeleteProject)
	api.POST("/projects/:id/photo", write, handlers.UploadProjectPhoto)
	api.GET("/projects/:id/history", handlers.ProjectHistory)

	api.GET("/projects/:id/schedules", handlers.ListSchedules)
	api.POST("/projects/:id/schedules", write, handlers.UploadSchedule)
	api.GET("/projects/:id/packs", handlers.ListPacks)
	api.POST("/projects/:id/packs", write, handlers.CreatePack)
	api.GET("/projects/:id/drawings", handlers.ListDrawings)
	api.POST("/projects/:id/drawings", write, handlers.UploadDrawings)
	api.GET("/projects/:id/models", handlers.ListModels)
	api.POST("/projects/:id/models", write, handlers.UploadModel)

	// SCHEDULES
	api.GET("/schedules/:id", handlers.GetSchedule)
	api.PATCH("/schedules/:id/metadata", write, handlers.UpdateScheduleMetadata)
	api.DELETE("/schedules/:id", write, handlers.DeleteSchedule)
	api.GET("/schedules/:id/rows", handlers.ScheduleRows)
	api.GET("/schedules/:id/groups", handlers.ScheduleGroups)
	api.GET("/schedules/:id/guid", handlers.SuggestGUIDColumn)
	api.GET("/schedules/:id/export", handlers.ExportSchedule)

	// wizard
	api.GET("/schedules/:id/state", handlers.WizardState)
	api.POST("/schedules/:id/extract", write, handlers.ExtractSchedule)
	api.POST("/schedules/:id/renames", write, handlers.ProposeRenames)
	api.POST("/schedules/:id/renames/decisions", write, handlers.DecideRenames)
	api.POST("/schedules/:id/renames/complete", write, handlers.CompleteReview)
	api.POST("/schedules/:id/edits", write, handlers.EditScheduleRows)
	api.POST("/schedules/:id/group", write, handlers.GroupSchedule)
	api.POST("/schedules/:id/back", write, handlers.WizardBack)
	api.POST("/schedules/:id/reset", write, handlers.WizardReset)

	api.GET("/schedules/:id/views", handlers.ListViews)
	api.POST("/schedules/:id/views", write, handlers.CreateView)
	api.PUT("/schedules/:id/views/:view_id", write, handlers.UpdateView)
	api.DELETE("/schedules/:id/views/:view_id", write, handlers.DeleteView)

	// PACKS
	api.GET("/packs/:id", handlers.GetPack)
	api.PUT("/packs/:id", write, handlers.UpdatePack)
	api.DELETE("/packs/:id", write, handlers.DeletePack)
	api.GET("/packs/:id/rows", handlers.PackRows)

	// DRAWINGS
	api.GET("/drawings/:id", handlers.GetDrawing)
	api.DELETE("/drawings/:id", write, handlers.DeleteDrawing)
	api.PUT("/drawings/:id/calibration", write, handlers.CalibrateDrawing)
	api.GET("/drawings/:id/summary", handlers.DrawingSummary)
	api.POST("/drawings/:id/markups/:kind", write, handlers.PutMarkup)
	api.PUT("/drawings/:id/markups/:kind/:markup_id", write, handlers.PutMarkup)
	api.DELETE("/drawings/:id/markups/:kind/:markup_id", write, handlers.DeleteMarkup)

	// IFC MODELS
	api.GET("/models/:id", handlers.GetModel)
	api.DELETE("/models/:id", write, handlers.DeleteModel)
	api.POST("/models/:id/fragment", write, handlers.UploadFragment)
	api.PUT("/models/:id/link", write, handlers.LinkModel)
	api.DELETE("/models/:id/link", write, handlers.UnlinkModel)
	api.GET("/models/:id/link/suggest", handlers.SuggestModelLink)
	api.POST("/models/:id/highlight", handlers.HighlightModel)

	// NRM CATALOG
	api.GET("/nrm/sections", handlers.ListNRMSections)
	api.GET("/nrm/lookup", handlers.LookupNRMSection)

	// AUDIT
	api.GET("/audit", middleware.RequireRole(models.RoleAdmin), handlers.ListAuditLogs)

	return r
}
