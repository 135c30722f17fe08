// Package nrm is the RICS NRM1 group element catalog used to label and order
// schedule groupings.
package nrm

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"nrm-schedules/internal/models"
)

type Element struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Label is the "<code> <name>" form used as a section label.
func (e Element) Label() string {
	return e.Code + " " + e.Name
}

type Group struct {
	Code     string    `json:"code"`
	Name     string    `json:"name"`
	Elements []Element `json:"elements"`
}

var catalog = []Group{
	{"0", "Facilitating works", []Element{
		{"0.1", "Toxic or hazardous material removal"},
		{"0.2", "Major demolition works"},
		{"0.3", "Temporary support to adjacent structures"},
		{"0.4", "Specialist groundworks"},
		{"0.5", "Temporary diversion works"},
		{"0.6", "Extraordinary site investigation works"},
	}},
	{"1", "Substructure", []Element{
		{"1.1", "Substructure"},
	}},
	{"2", "Superstructure", []Element{
		{"2.1", "Frame"},
		{"2.2", "Upper floors"},
		{"2.3", "Roof"},
		{"2.4", "Stairs and ramps"},
		{"2.5", "External walls"},
		{"2.6", "Windows and external doors"},
		{"2.7", "Internal walls and partitions"},
		{"2.8", "Internal doors"},
	}},
	{"3", "Internal finishes", []Element{
		{"3.1", "Wall finishes"},
		{"3.2", "Floor finishes"},
		{"3.3", "Ceiling finishes"},
	}},
	{"4", "Fittings, furnishings and equipment", []Element{
		{"4.1", "Fittings, furnishings and equipment"},
	}},
	{"5", "Services", []Element{
		{"5.1", "Sanitary installations"},
		{"5.2", "Services equipment"},
		{"5.3", "Disposal installations"},
		{"5.4", "Water installations"},
		{"5.5", "Heat source"},
		{"5.6", "Space heating and air conditioning"},
		{"5.7", "Ventilation"},
		{"5.8", "Electrical installations"},
		{"5.9", "Fuel installations"},
		{"5.10", "Lift and conveyor installations"},
		{"5.11", "Fire and lightning protection"},
		{"5.12", "Communication, security and control systems"},
		{"5.13", "Specialist installations"},
		{"5.14", "Builder's work in connection with services"},
	}},
	{"6", "Prefabricated buildings and building units", []Element{
		{"6.1", "Prefabricated buildings and building units"},
	}},
	{"7", "Work to existing buildings", []Element{
		{"7.1", "Minor demolition and alteration works"},
		{"7.2", "Repairs to existing services"},
		{"7.3", "Damp-proof courses and fungus eradication"},
		{"7.4", "Facade retention"},
		{"7.5", "Cleaning existing surfaces"},
		{"7.6", "Renovation works"},
	}},
	{"8", "External works", []Element{
		{"8.1", "Site preparation works"},
		{"8.2", "Roads, paths, pavings and surfacings"},
		{"8.3", "Soft landscaping, planting and irrigation systems"},
		{"8.4", "Fencing, railings and walls"},
		{"8.5", "External fixtures"},
		{"8.6", "External drainage"},
		{"8.7", "External services"},
		{"8.8", "Minor building works and ancillary buildings"},
	}},
}

var codePattern = regexp.MustCompile(`^\s*(\d+)(?:\.(\d+))?\b`)

// Catalog returns a copy of every group and its elements.
func Catalog() []Group {
	out := make([]Group, len(catalog))
	for i, g := range catalog {
		g.Elements = append([]Element(nil), g.Elements...)
		out[i] = g
	}
	return out
}

// Lookup finds the element a section label starts with, e.g. "2.5 Walls".
func Lookup(label string) (Element, bool) {
	m := codePattern.FindStringSubmatch(label)
	if m == nil || m[2] == "" {
		return Element{}, false
	}
	code := m[1] + "." + m[2]
	for _, g := range catalog {
		if g.Code != m[1] {
			continue
		}
		for _, e := range g.Elements {
			if e.Code == code {
				return e, true
			}
		}
	}
	return Element{}, false
}

// Labels lists every element label in catalog order.
func Labels() []string {
	var out []string
	for _, g := range catalog {
		for _, e := range g.Elements {
			out = append(out, e.Label())
		}
	}
	return out
}

// SortGroups orders groups by NRM code. Labels without a code keep their
// relative order after the coded ones.
func SortGroups(groups []models.Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		a, aok := sortKey(groups[i].Section)
		b, bok := sortKey(groups[j].Section)
		switch {
		case aok && bok:
			if a[0] != b[0] {
				return a[0] < b[0]
			}
			return a[1] < b[1]
		case aok:
			return true
		default:
			return false
		}
	})
}

func sortKey(label string) ([2]int, bool) {
	m := codePattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return [2]int{}, false
	}
	group, _ := strconv.Atoi(m[1])
	element := 0
	if m[2] != "" {
		element, _ = strconv.Atoi(m[2])
	}
	return [2]int{group, element}, true
}
