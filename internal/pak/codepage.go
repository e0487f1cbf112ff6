package pak

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultCodePage is the code page pak names are stored in.
const DefaultCodePage = "windows-1250"

// CodePage decodes single-byte legacy strings through a fixed 256-entry table.
// It never goes through a Unicode-aware decoder, so every byte maps to exactly
// one rune.
type CodePage struct {
	name string
	cm   *charmap.Charmap
}

// Windows1250 is the code page used when none is configured.
var Windows1250 = &CodePage{name: DefaultCodePage, cm: charmap.Windows1250}

// LookupCodePage resolves an IANA encoding name (e.g. "windows-1250",
// "ISO-8859-2") to a single-byte code page.
func LookupCodePage(name string) (*CodePage, error) {
	if name == "" {
		return Windows1250, nil
	}

	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown code page %q: %w", name, err)
	}
	cm, ok := enc.(*charmap.Charmap)
	if !ok || cm == nil {
		return nil, fmt.Errorf("code page %q is not a single-byte encoding", name)
	}

	return &CodePage{name: strings.ToLower(name), cm: cm}, nil
}

// Name returns the configured code page name.
func (cp *CodePage) Name() string { return cp.name }

// Decode maps every byte of b through the code page table.
func (cp *CodePage) Decode(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, c := range b {
		sb.WriteRune(cp.cm.DecodeByte(c))
	}
	return sb.String()
}
