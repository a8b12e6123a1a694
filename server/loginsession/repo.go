package loginsession

import "time"

// Session records who is signed in on a UI surface.
type Session struct {
	SurfaceID string
	Subject   string
	Method    string
	Email     string
	Address   string

	SignedInAt time.Time
}

type Repo interface {
	Upsert(surfaceID string, session Session) error
	Get(surfaceID string) (Session, error)
	Delete(surfaceID string) error
	Count() int
}
