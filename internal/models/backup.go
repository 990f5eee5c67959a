package models

import "time"

// Backup describes one snapshot archive of the persisted collections.
type Backup struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}
