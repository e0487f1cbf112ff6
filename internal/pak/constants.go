package pak

const (
	// HeaderSize is the fixed size of the archive header (16 + 1 + 8 bytes).
	// Only the first 4 bytes, the directory offset, are interpreted.
	HeaderSize = 16 + 1 + 8

	// LabelSize is the part of the header that looks like a text label
	// followed by a NUL.
	LabelSize = 16 + 1

	// PreambleSize is the unused block at the start of the directory
	// segment (13 + 4 + 4 + 4 bytes).
	PreambleSize = 13 + 4 + 4 + 4

	// MarkerSize is the 2-byte lookahead read before every file record.
	// It is either a terminator or the record's leading marker.
	MarkerSize = 2
)
