package usage

import (
	"errors"
	"time"
)

const maxTokenIDLength = 64

// maxClockSkew bounds how far in the future an event may claim to be.
const maxClockSkew = time.Minute

// Validate rejects events the worker must not apply.
func (e Event) Validate(now time.Time) error {
	switch {
	case e.TokenID == "":
		return errors.New("token id is required")
	case len(e.TokenID) > maxTokenIDLength:
		return errors.New("token id too long")
	case e.UsedAt <= 0:
		return errors.New("used_at must be set")
	case time.UnixMilli(e.UsedAt).After(now.Add(maxClockSkew)):
		return errors.New("used_at is in the future")
	}
	return nil
}
