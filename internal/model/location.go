package model

import "time"

// RT is a neighbourhood unit (rukun tetangga), the lowest administrative
// tier that can issue a surat pengantar.
type RT struct {
	ID        uint64    // rt.id
	Name      string    // rt.name
	CreatedAt time.Time // rt.created_at
}

// Kelurahan is an urban village, the tier above RT.
type Kelurahan struct {
	ID        uint64    // kelurahan.id
	Name      string    // kelurahan.name
	CreatedAt time.Time // kelurahan.created_at
}
