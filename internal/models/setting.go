package models

import "time"

// Setting represents a row in the host_settings table.
// Value holds the JSON encoding of the setting's value.
type Setting struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
