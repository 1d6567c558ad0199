package domain

import "fmt"

// Coach represents a player-level account participating in matchmaking
type Coach struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`

	locked bool
}

// Lock prevents the coach from being considered for new matchmaking
// activity. Taken when one of the coach's matches launches.
func (c *Coach) Lock() {
	c.locked = true
}

// Unlock releases a previously taken lock
func (c *Coach) Unlock() {
	c.locked = false
}

// Locked reports whether the coach is locked out of new matchmaking
func (c *Coach) Locked() bool {
	return c.locked
}

func (c *Coach) String() string {
	return fmt.Sprintf("Coach(%d:%s)", c.ID, c.Name)
}
