package nrm

import (
	"testing"

	"nrm-schedules/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestLookup(t *testing.T) {
	e, ok := Lookup("2.6 Windows & doors")
	assert.True(t, ok)
	assert.Equal(t, "Windows and external doors", e.Name)

	e, ok = Lookup("5.10 Lifts")
	assert.True(t, ok)
	assert.Equal(t, "5.10", e.Code)

	_, ok = Lookup("2 Superstructure")
	assert.False(t, ok)
	_, ok = Lookup("Unclassified")
	assert.False(t, ok)
	_, ok = Lookup("9.1 Nothing")
	assert.False(t, ok)
}

func TestSortGroups(t *testing.T) {
	groups := []models.Group{
		{Section: "Unclassified"},
		{Section: "5.10 Lift and conveyor installations"},
		{Section: "2.5 External walls"},
		{Section: "5.2 Services equipment"},
		{Section: "Misc"},
		{Section: "1.1 Substructure"},
	}
	SortGroups(groups)

	var got []string
	for _, g := range groups {
		got = append(got, g.Section)
	}
	assert.Equal(t, []string{
		"1.1 Substructure",
		"2.5 External walls",
		"5.2 Services equipment",
		"5.10 Lift and conveyor installations",
		"Unclassified",
		"Misc",
	}, got)
}

func TestCatalogIsCopied(t *testing.T) {
	c := Catalog()
	c[0].Elements[0].Name = "changed"
	assert.NotEqual(t, "changed", Catalog()[0].Elements[0].Name)
	assert.Contains(t, Labels(), "2.1 Frame")
}
