// Package ledwire holds the compiled-in GATT identifiers and mask layout
// shared by the peripheral and the desktop controller.
package ledwire

const (
	// LEDServiceUUID identifies the custom LED control service.
	LEDServiceUUID = "9e7312e0-2354-11eb-9f10-fbc30a62cf38"

	// LEDMaskCharUUID is the one-byte mask characteristic (read, write, notify).
	LEDMaskCharUUID = "9e7312e0-2354-11eb-9f10-fbc30a63cf38"

	// DefaultLocalName is the name the peripheral advertises.
	DefaultLocalName = "ledlink"
)

// LedCount is the number of driven outputs. Bits 0..LedCount-1 of a mask
// are meaningful; the rest are ignored.
const LedCount = 4

// MaskBits covers the meaningful bits of a mask byte.
const MaskBits uint8 = 1<<LedCount - 1

// Bit returns the mask bit for output index i (0-based).
func Bit(i int) uint8 {
	return 1 << uint(i)
}
