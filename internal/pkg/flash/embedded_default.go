//go:build !avrdude

package flash

var embedded []byte
