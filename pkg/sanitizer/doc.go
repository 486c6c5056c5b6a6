// Package sanitizer normalises user-supplied strings before they are
// validated or stored.
package sanitizer
