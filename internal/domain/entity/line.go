package entity

import (
	"fmt"

	"github.com/lite-lake/infra-cfdns/internal/domain"
)

// Line is a network line in the shared taxonomy. Providers translate it to
// their own identifiers.
type Line string

const (
	LineMobile   Line = "mobile"
	LineUnicom   Line = "unicom"
	LineTelecom  Line = "telecom"
	LineOverseas Line = "overseas"
	LineDefault  Line = "default"
)

var lineTokens = map[string]Line{
	"CM":  LineMobile,
	"CU":  LineUnicom,
	"CT":  LineTelecom,
	"AB":  LineOverseas,
	"DEF": LineDefault,
}

var lineLabels = map[Line]string{
	LineMobile:   "移动",
	LineUnicom:   "联通",
	LineTelecom:  "电信",
	LineOverseas: "境外",
	LineDefault:  "默认",
}

// AllLines lists the taxonomy in token order.
func AllLines() []Line {
	return []Line{LineMobile, LineUnicom, LineTelecom, LineOverseas, LineDefault}
}

// ParseLineToken maps a target-spec token (CM, CU, CT, AB, DEF) to a Line.
func ParseLineToken(token string) (Line, error) {
	line, ok := lineTokens[token]
	if !ok {
		return "", fmt.Errorf("%w: unknown line token %q", domain.ErrInvalidLine, token)
	}
	return line, nil
}

// LineFromLabel maps a Chinese line label back to the taxonomy.
func LineFromLabel(label string) (Line, bool) {
	for line, l := range lineLabels {
		if l == label {
			return line, true
		}
	}
	return "", false
}

func (l Line) Token() string {
	for token, line := range lineTokens {
		if line == l {
			return token
		}
	}
	return ""
}

// Label returns the human-readable Chinese label, or "" outside the taxonomy.
func (l Line) Label() string {
	return lineLabels[l]
}

func (l Line) IsKnown() bool {
	_, ok := lineLabels[l]
	return ok
}

func (l Line) String() string {
	return string(l)
}
