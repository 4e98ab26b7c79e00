package api

import (
	"context"
	"fmt"
)

// originsQuery lists every non-archived origin with its group embedded, so
// no follow-up call per origin is needed.
const originsQuery = `
query Origins {
  origin(where: {archived_at: {_is_null: true}}) {
    id
    name
    group_id
    group {
      id
      name
    }
  }
}
`

// GroupRef is the group association embedded in an origin row.
type GroupRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Origin is one exportable lead-source entity.
type Origin struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	GroupID *string   `json:"group_id"`
	Group   *GroupRef `json:"group"`
}

// GroupName returns the origin's group name or "".
func (o Origin) GroupName() string {
	if o.Group == nil {
		return ""
	}
	return o.Group.Name
}

// OriginGroup is a group with its origins in API order.
type OriginGroup struct {
	ID      string
	Name    string
	Origins []Origin
}

// ListOrigins fetches all exportable origins. Callers treat an error as
// fatal for the run; there is nothing to export without a directory.
func (c *Client) ListOrigins(ctx context.Context) ([]Origin, error) {
	var data struct {
		Origin []Origin `json:"origin"`
	}
	if err := c.Do(ctx, originsQuery, nil, &data); err != nil {
		return nil, fmt.Errorf("list origins: %w", err)
	}
	return data.Origin, nil
}

// GroupOrigins buckets origins by their group, preserving first-seen group
// order and within-group order. Origins with no group association are not
// exportable and come back separately.
func GroupOrigins(origins []Origin) (groups []OriginGroup, ungrouped []Origin) {
	index := map[string]int{}
	for _, origin := range origins {
		if origin.Group == nil {
			ungrouped = append(ungrouped, origin)
			continue
		}
		at, ok := index[origin.Group.ID]
		if !ok {
			at = len(groups)
			index[origin.Group.ID] = at
			groups = append(groups, OriginGroup{ID: origin.Group.ID, Name: origin.Group.Name})
		}
		groups[at].Origins = append(groups[at].Origins, origin)
	}
	return groups, ungrouped
}
