// Package review gates AI-proposed header renames behind a per-header user decision.
package review

import (
	"errors"
	"fmt"
	"sort"

	"nrm-schedules/internal/models"
)

type Decision string

const (
	Pending  Decision = "pending"
	Accepted Decision = "accepted"
	Rejected Decision = "rejected"
)

var (
	ErrPending         = errors.New("rename review has pending decisions")
	ErrUnknownHeader   = errors.New("header has no rename proposal")
	ErrInvalidDecision = errors.New("invalid decision")
)

type Proposal struct {
	Original string   `json:"original"`
	Proposed string   `json:"proposed"`
	Decision Decision `json:"decision"`
}

// Review holds one proposal per original header.
type Review struct {
	Proposals map[string]*Proposal `json:"proposals"`
}

// New starts every proposal as Pending.
func New(mapping map[string]string) *Review {
	r := &Review{Proposals: make(map[string]*Proposal, len(mapping))}
	for original, proposed := range mapping {
		r.Proposals[original] = &Proposal{Original: original, Proposed: proposed, Decision: Pending}
	}
	return r
}

func (r *Review) Accept(original string) error { return r.Set(original, Accepted) }

func (r *Review) Reject(original string) error { return r.Set(original, Rejected) }

func (r *Review) Set(original string, d Decision) error {
	switch d {
	case Pending, Accepted, Rejected:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDecision, d)
	}
	p, ok := r.Proposals[original]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownHeader, original)
	}
	p.Decision = d
	return nil
}

// PendingHeaders lists undecided headers in sorted order.
func (r *Review) PendingHeaders() []string {
	var out []string
	for h, p := range r.Proposals {
		if p.Decision == Pending {
			out = append(out, h)
		}
	}
	sort.Strings(out)
	return out
}

// Complete returns the final old→new mapping once nothing is pending.
func (r *Review) Complete() (map[string]string, error) {
	if pending := r.PendingHeaders(); len(pending) > 0 {
		return nil, fmt.Errorf("%w: %d remaining", ErrPending, len(pending))
	}
	mapping := make(map[string]string, len(r.Proposals))
	for h, p := range r.Proposals {
		if p.Decision == Accepted {
			mapping[h] = p.Proposed
		} else {
			mapping[h] = h
		}
	}
	return mapping, nil
}

// Apply renames row keys and headers. Headers missing from mapping keep their
// name. When two headers collapse onto the same name the later column wins.
func Apply(headers []string, rows []models.Row, mapping map[string]string) ([]string, []models.Row) {
	rename := func(h string) string {
		if n, ok := mapping[h]; ok && n != "" {
			return n
		}
		return h
	}

	outHeaders := make([]string, 0, len(headers))
	seen := make(map[string]bool, len(headers))
	for _, h := range headers {
		n := rename(h)
		if seen[n] {
			continue
		}
		seen[n] = true
		outHeaders = append(outHeaders, n)
	}

	outRows := make([]models.Row, len(rows))
	for i, row := range rows {
		nr := make(models.Row, len(row))
		for _, h := range headers {
			if v, ok := row[h]; ok {
				nr[rename(h)] = v
			}
		}
		outRows[i] = nr
	}
	return outHeaders, outRows
}
