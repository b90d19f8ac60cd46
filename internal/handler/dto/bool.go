package dto

import (
	"bytes"
	"fmt"
)

// Bool is a request flag that also accepts the string and numeric forms
// browser form code tends to send: "true", "false", "1", "0", 1 and 0.
// Use *Bool so an absent field stays nil.
type Bool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *Bool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case `true`, `"true"`, `1`, `"1"`:
		*b = true
	case `false`, `"false"`, `0`, `"0"`:
		*b = false
	default:
		return fmt.Errorf("invalid boolean %s", data)
	}
	return nil
}

// Ptr returns the flag as *bool, nil when the field was absent or null.
func (b *Bool) Ptr() *bool {
	if b == nil {
		return nil
	}
	v := bool(*b)
	return &v
}

// True reports whether the flag was given and set.
func (b *Bool) True() bool {
	return b != nil && bool(*b)
}
