package model

import "github.com/rs/xid"

// NewID returns a globally unique, time-sortable identifier.
func NewID() string {
	return xid.New().String()
}
