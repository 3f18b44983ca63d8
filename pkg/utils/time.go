package utils

import "time"

// ToMillis converts t to unix milliseconds for storage.
func ToMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts stored unix milliseconds back to UTC time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
