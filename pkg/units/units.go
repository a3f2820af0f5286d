// Package units names byte sizes used for buffer and cache limits.
package units

const (
	Kilobyte = 1000
	Kb       = Kilobyte
	Megabyte = Kilobyte * Kilobyte
	Mb       = Megabyte

	Kibibyte = 1 << 10
	KiB      = Kibibyte
	Mebibyte = Kibibyte << 10
	MiB      = Mebibyte
)
