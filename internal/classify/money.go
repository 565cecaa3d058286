package classify

import (
	"regexp"
	"strconv"
	"strings"
)

var amountRe = regexp.MustCompile(`\$\d[\d,]*(?:\.\d{2})?`)

// amounts returns the distinct currency literals in text, in order of appearance.
func amounts(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range amountRe.FindAllString(text, -1) {
		m = strings.TrimRight(m, ",")
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

func parseMoney(s string) (float64, bool) {
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

// formatMoney renders v as "$1,234" or "$1,234.50".
func formatMoney(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	cents := int64(v*100 + 0.5)
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String()
	if rem := cents % 100; rem != 0 {
		out += "." + strconv.FormatInt(rem/10, 10) + strconv.FormatInt(rem%10, 10)
	}
	if neg {
		out = "-" + out
	}
	return out
}
