package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"nrm-schedules/internal/models"
	"nrm-schedules/internal/nrm"
)

const (
	// UnclassifiedSection collects rows the model did not place in any section.
	UnclassifiedSection = "Unclassified"

	standardizeSystem = `You standardize column headers of construction schedules exported from BIM and estimating tools.
Rename each header to a concise canonical name (for example "Description", "Quantity", "Unit", "Level", "Type", "GUID").
Keep headers that are already canonical unchanged.
Reply with a single JSON object of the form {"mapping": {"<original header>": "<new header>"}} and nothing else.`

	groupSystem = `You classify construction schedule rows into RICS New Rules of Measurement (NRM1) element groups.
Each row is given with its index. Assign every index to exactly one section such as "2.1 Frame" or "2.5 External walls".
Reply with a single JSON object of the form {"groups": [{"section": "<NRM section>", "category": "<element category>", "rows": [<index>, ...]}]} and nothing else.`
)

var groupSystemWithCatalog = groupSystem + "\nUse one of these section labels when one fits:\n" + strings.Join(nrm.Labels(), "\n")

type standardizeReply struct {
	Mapping map[string]string `json:"mapping"`
}

type groupReply struct {
	Groups []struct {
		Section  string `json:"section"`
		Category string `json:"category"`
		Rows     []int  `json:"rows"`
	} `json:"groups"`
}

// StandardizeHeaders proposes a canonical name for each header. Headers the
// model leaves out map to themselves.
func (c *Client) StandardizeHeaders(ctx context.Context, headers []string) (map[string]string, error) {
	if len(headers) == 0 {
		return map[string]string{}, nil
	}

	list, err := json.Marshal(headers)
	if err != nil {
		return nil, err
	}

	var reply standardizeReply
	if err := c.complete(ctx, "standardize", standardizeSystem, "Headers: "+string(list), &reply); err != nil {
		return nil, err
	}

	mapping := make(map[string]string, len(headers))
	for _, h := range headers {
		proposed := strings.TrimSpace(reply.Mapping[h])
		if proposed == "" {
			proposed = h
		}
		mapping[h] = proposed
	}
	return mapping, nil
}

type indexedRow struct {
	Index int        `json:"index"`
	Row   models.Row `json:"row"`
}

// GroupRows assigns every row to an NRM section. Rows are sent in batches and
// sections with the same label are merged in first-seen order.
func (c *Client) GroupRows(ctx context.Context, rows []models.Row) ([]models.Group, error) {
	var (
		order  []string
		groups = map[string]*models.Group{}
	)
	add := func(section, category string, row models.Row) {
		g, ok := groups[section]
		if !ok {
			g = &models.Group{Section: section, Category: category}
			groups[section] = g
			order = append(order, section)
		}
		if g.Category == "" {
			g.Category = category
		}
		g.Rows = append(g.Rows, row)
	}

	for start := 0; start < len(rows); start += c.cfg.GroupBatch {
		end := start + c.cfg.GroupBatch
		if end > len(rows) {
			end = len(rows)
		}

		batch := make([]indexedRow, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, indexedRow{Index: i, Row: rows[i]})
		}
		payload, err := json.Marshal(batch)
		if err != nil {
			return nil, err
		}

		var reply groupReply
		if err := c.complete(ctx, "group", groupSystemWithCatalog, "Rows: "+string(payload), &reply); err != nil {
			return nil, fmt.Errorf("grouping rows %d-%d: %w", start, end-1, err)
		}

		assigned := make(map[int]bool, end-start)
		for _, g := range reply.Groups {
			section := strings.TrimSpace(g.Section)
			if section == "" {
				section = UnclassifiedSection
			}
			for _, idx := range g.Rows {
				if idx < start || idx >= end || assigned[idx] {
					continue
				}
				assigned[idx] = true
				add(section, strings.TrimSpace(g.Category), rows[idx])
			}
		}
		for i := start; i < end; i++ {
			if !assigned[i] {
				add(UnclassifiedSection, "", rows[i])
			}
		}
	}

	out := make([]models.Group, 0, len(order))
	for _, s := range order {
		out = append(out, *groups[s])
	}
	return out, nil
}
