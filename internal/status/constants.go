// internal/status/constants.go
package status

// Channel Status Block layout constants.
// These values define the published layout and MUST NOT be configurable.

// ---- BLOCK GEOMETRY ----

// SlotsPerChannel is the fixed number of registers per channel block.
const SlotsPerChannel = 20

// ---- SLOT INDICES ----

// SlotHealthCode holds the channel health state.
const SlotHealthCode = 0

// SlotLastErrorCode holds the last error code.
const SlotLastErrorCode = 1

// SlotSecondsInError holds the duration (in seconds) the channel has been in error.
const SlotSecondsInError = 2

// SlotLinkResets holds the link reset count (saturating).
const SlotLinkResets = 3

// SlotOverflows holds the buffer overflow event count (saturating).
const SlotOverflows = 4

// SlotDropped holds the dropped sample count (saturating).
const SlotDropped = 5

// ---- RESERVED RANGE ----

// Slots 6-10 are reserved.
const SlotReservedStart = 6
const SlotReservedEnd = 10

// ---- CHANNEL TAG ----

// SlotTagStart is the first slot used for the channel tag.
// The tag is always placed at the END of the status block.
const SlotTagStart = 11

// SlotTagSlots is the number of slots reserved for the channel tag.
const SlotTagSlots = 8

// SlotTagEnd is the last slot used for the channel tag (inclusive).
const SlotTagEnd = SlotTagStart + SlotTagSlots - 1

// ---- LIMITS ----

// TagMaxChars is the maximum number of ASCII characters stored for the tag.
const TagMaxChars = 16

// ---- HEALTH CODES ----

// HealthUnknown represents a channel that has not produced anything yet.
const HealthUnknown uint16 = 0

// HealthOK represents a channel producing samples.
const HealthOK uint16 = 1

// HealthError represents a channel whose last read failed.
const HealthError uint16 = 2

// HealthStopped represents a stopped channel.
const HealthStopped uint16 = 3

// ---- ERROR CODES ----

// ErrorCodeGeneric is used when an error exposes no code of its own.
const ErrorCodeGeneric uint16 = 1

// ErrorCodeTimeout marks a link read timeout.
const ErrorCodeTimeout uint16 = 0x0100

// ErrorCodeCRC marks a CRC mismatch.
const ErrorCodeCRC uint16 = 0x0101

// ErrorCodeShortResponse marks a short or malformed response.
const ErrorCodeShortResponse uint16 = 0x0102
