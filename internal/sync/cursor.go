package sync

import "time"

// Cursor is the lower bound ("since") for the next incremental fetch. The
// zero value is an empty cursor, meaning the first fetch is unbounded.
//
// A Cursor is owned by a single poll loop and passed by value into each
// fetch, so it needs no locking.
type Cursor struct {
	at  time.Time
	set bool
}

// Since returns a copy of the cursor time, or nil when the cursor is empty.
func (c Cursor) Since() *time.Time {
	if !c.set {
		return nil
	}
	t := c.at
	return &t
}

// IsSet reports whether a fetch has succeeded yet.
func (c Cursor) IsSet() bool {
	return c.set
}

// Advance moves the cursor to t. The cursor never moves backwards: if t is
// not after the current value (e.g. the wall clock was adjusted), the
// cursor is left alone and Advance returns false.
func (c *Cursor) Advance(t time.Time) bool {
	if c.set && !t.After(c.at) {
		return false
	}
	c.at = t
	c.set = true
	return true
}
