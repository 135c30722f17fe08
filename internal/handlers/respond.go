package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"nrm-schedules/internal/ai"
	"nrm-schedules/internal/cache"
	"nrm-schedules/internal/config"
	"nrm-schedules/internal/csvparse"
	"nrm-schedules/internal/database"
	"nrm-schedules/internal/drawings"
	"nrm-schedules/internal/ifc"
	"nrm-schedules/internal/middleware"
	"nrm-schedules/internal/models"
	"nrm-schedules/internal/photo"
	"nrm-schedules/internal/pipeline"
	"nrm-schedules/internal/review"
	"nrm-schedules/internal/storage"
	"nrm-schedules/internal/wizard"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// errBadReference marks request ids or indexes that point nowhere valid.
var errBadReference = errors.New("invalid reference")

var badRequestErrors = []error{
	csvparse.ErrEmpty, csvparse.ErrNotCSV, csvparse.ErrTooLarge, csvparse.ErrMalformed,
	pipeline.ErrNoRows, pipeline.ErrBadEdit, pipeline.ErrNoRawFile,
	review.ErrUnknownHeader, review.ErrInvalidDecision,
	drawings.ErrNotPDF, drawings.ErrEmptyPDF, drawings.ErrTooLarge, drawings.ErrBadPDF,
	drawings.ErrBadCalibration, drawings.ErrTooFewPoints, drawings.ErrBadPoints, drawings.ErrUnknownKind,
	ifc.ErrUnsupported, ifc.ErrEmpty, ifc.ErrTooLarge, ifc.ErrBadLink, ifc.ErrNotLinked,
	photo.ErrEmpty, photo.ErrTooLarge, photo.ErrUnsupported,
	errBadReference,
}

var conflictErrors = []error{
	review.ErrPending, wizard.ErrOutOfOrder, wizard.ErrWrongStep, cache.ErrLocked, cache.ErrLockLost,
}

// statusFor classifies service errors into HTTP status codes.
func statusFor(err error) int {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, storage.ErrNotFound) || errors.Is(err, drawings.ErrMarkupNotFound) {
		return http.StatusNotFound
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	var stepErr *pipeline.StepError
	if errors.As(err, &stepErr) || errors.Is(err, ai.ErrService) || errors.Is(err, ai.ErrResponse) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, funcName string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		config.LogError("handlers", funcName, c.Request.Method+" "+c.FullPath(), c.Params, err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// bindJSON decodes the body and runs struct validation. It writes the 400
// response itself and reports whether the handler may continue.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "invalid request body")
		return false
	}
	if err := validate.Struct(v); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": validationFields(ve)})
			return false
		}
		badRequest(c, err.Error())
		return false
	}
	return true
}

func validationFields(ve validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

// currentUserID reads the session user id; RequireAuth guarantees it on /api.
func currentUserID(c *gin.Context) string {
	if u, ok := middleware.CurrentUser(c); ok {
		return u.ID
	}
	uid, _ := sessions.Default(c).Get("user_id").(string)
	return uid
}

func currentRole(c *gin.Context) models.UserRole {
	roleStr, _ := sessions.Default(c).Get("role").(string)
	return models.UserRole(roleStr)
}

// canAccess allows owners and admins, and viewers for reading. Write routes
// are closed to viewers by RequireRole.
func canAccess(c *gin.Context, ownerID string) bool {
	switch currentRole(c) {
	case models.RoleAdmin, models.RoleViewer:
		return true
	}
	return ownerID == currentUserID(c)
}

// lookup loads one row by id into dest.
var lookup = func(dest any, id string) error {
	return database.NotFound(database.DB.Where("id = ?", id).First(dest).Error)
}

// readUpload reads the multipart file under field, refusing bodies over limit.
func readUpload(c *gin.Context, field string, limit int64) (*multipart.FileHeader, []byte, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := io.Reader(f)
	if limit > 0 {
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	return fh, data, nil
}

// audit writes the audit entry for the current user.
func audit(c *gin.Context, entity, entityID, action, details string) {
	database.CreateAuditLog(currentUserID(c), entity, entityID, action, details)
}
