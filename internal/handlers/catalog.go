package handlers

import (
	"net/http"

	"nrm-schedules/internal/nrm"

	"github.com/gin-gonic/gin"
)

// ListNRMSections returns the NRM1 group element catalog.
func ListNRMSections(c *gin.Context) {
	c.JSON(http.StatusOK, nrm.Catalog())
}

// LookupNRMSection resolves a section label like "2.5 Walls" to its element.
func LookupNRMSection(c *gin.Context) {
	e, ok := nrm.Lookup(c.Query("label"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no NRM element matches the label"})
		return
	}
	c.JSON(http.StatusOK, e)
}
