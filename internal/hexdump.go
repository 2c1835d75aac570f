package internal

import (
	"fmt"
	"strings"
)

// Hexdump renders p as rows of 16 hex bytes with an ASCII gutter, each row
// prefixed by its address starting at base.
func Hexdump(base uint64, p []byte) string {
	var out strings.Builder

	for row := 0; row < len(p); row += 16 {
		end := min(row+16, len(p))

		fmt.Fprintf(&out, "%08x ", base+uint64(row))
		for n := row; n < row+16; n++ {
			if n%8 == 0 {
				out.WriteByte(' ')
			}
			if n < end {
				fmt.Fprintf(&out, "%02x ", p[n])
			} else {
				out.WriteString("   ")
			}
		}

		out.WriteString(" |")
		for n := row; n < end; n++ {
			if p[n] >= 0x20 && p[n] < 0x7f {
				out.WriteByte(p[n])
			} else {
				out.WriteByte('.')
			}
		}
		out.WriteString("|\n")
	}

	return out.String()
}
