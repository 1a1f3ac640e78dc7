// Package bytesconv provides allocation-free conversions between byte
// slices and strings for hot parsing paths.
package bytesconv

import "unsafe"

// B2S converts a byte slice to a string without memory allocation.
// The returned string must not outlive the buffer it was created from,
// and the buffer must not be modified while the string is in use.
func B2S(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// S2B converts a string to a byte slice without memory allocation.
// The returned slice must not be modified.
func S2B(s string) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
