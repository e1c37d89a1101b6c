package clock

import "time"

// Clock supplies the current time so reconcilers stamp deterministic
// timestamps under test.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func System() Clock { return systemClock{} }
