// Package models contains domain types for the sustainability dashboard.
package models

import (
	"encoding/json"
	"time"
)

// Tag is a label shared by projects, infrastructure elements and pipelines.
// Tags are the only link between a project and the entities it owns.
// In JSON a tag is just its name.
type Tag struct {
	ID   int64
	Name string
}

// MarshalJSON encodes the tag as its name.
func (t Tag) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Name)
}

// UnmarshalJSON decodes a tag name; the ID stays zero.
func (t *Tag) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &t.Name)
}

// Project groups infrastructure elements and pipelines through its tags.
type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []Tag     `json:"tags"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// TagNames returns the names of tags in order.
func TagNames(tags []Tag) []string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}
