package types

import "time"

// ScriptEntry represents a script or executable pinned to the toolbar
type ScriptEntry struct {
	ID        int64     `json:"id"`
	Path      string    `json:"path"`
	Label     string    `json:"label"`
	Icon      string    `json:"icon"`
	Editor    string    `json:"editor"`   // preferred editor id, empty means default
	Position  int       `json:"position"` // ordering on the toolbar
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
