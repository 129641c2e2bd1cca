package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MajenkoProjects/InstrumentVideo/telemetry"
)

// OverloadText is shown in place of the value when the meter is out of range.
const OverloadText = " OL."

// FormatValue renders a value token for the big display. Precision drops as
// the magnitude grows so the width stays near six characters; non-negative
// values get a leading space where negative values carry their sign.
// Tokens that do not parse show as zero.
func FormatValue(token string) string {
	if strings.EqualFold(token, telemetry.OverflowValue) {
		return OverloadText
	}
	v := leadingFloat(token)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return OverloadText
	}
	var out string
	switch a := math.Abs(v); {
	case a < 10:
		out = fmt.Sprintf("%6.4f", v)
	case a < 100:
		out = fmt.Sprintf("%6.3f", v)
	case a < 1000:
		out = fmt.Sprintf("%6.2f", v)
	case a < 10000:
		out = fmt.Sprintf("%6.1f", v)
	default:
		out = fmt.Sprintf("%6d", int64(v))
	}
	if v >= 0 {
		out = " " + out
	}
	return out
}

// leadingFloat parses the longest numeric prefix of s, so "1.5V" reads 1.5.
func leadingFloat(s string) float64 {
	s = strings.TrimSpace(s)
	for end := len(s); end > 0; end-- {
		if v, err := strconv.ParseFloat(s[:end], 64); err == nil {
			return v
		}
	}
	return 0
}
