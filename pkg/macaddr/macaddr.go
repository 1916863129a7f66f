// Package macaddr provides small utilities for working with MAC address strings.
package macaddr

// OUILength is the number of leading characters of a display-format MAC
// address that cover the vendor prefix (e.g. "00:11:22" or "00-11-22").
const OUILength = 8

// OUI returns the Organizationally Unique Identifier portion of a MAC
// address string: its first 8 characters. Inputs shorter than 8 characters
// are returned unchanged rather than causing an out-of-range slice.
func OUI(mac string) string {
	if len(mac) <= OUILength {
		return mac
	}
	return mac[:OUILength]
}
