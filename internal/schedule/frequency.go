package schedule

import (
	"regexp"
	"strconv"
	"strings"
)

// DefaultIntervalDays is used when a watering frequency cannot be understood.
const DefaultIntervalDays = 7

// PhraseTableVersion identifies the revision of the phrase table below. Bump it
// whenever an entry is added, removed or reordered.
const PhraseTableVersion = 2

type frequencyPhrase struct {
	phrase string
	days   int
}

// frequencyPhrases is matched in order against the lowercased text and the
// first hit wins, so text naming two frequencies resolves to the earlier row.
// The two-week phrases sit ahead of "weekly" because they contain it.
var frequencyPhrases = []frequencyPhrase{
	{"daily", 1},
	{"every 2 days", 2},
	{"every 3 days", 3},
	{"every 5 days", 5},
	{"every 7 days", 7},
	{"bi-weekly", 14},
	{"biweekly", 14},
	{"every 2 weeks", 14},
	{"weekly", 7},
	{"every 10 days", 10},
	{"every 3 weeks", 21},
	{"monthly", 30},
}

var leadingDaysPattern = regexp.MustCompile(`(\d+).*?day`)

// ParseIntervalDays turns a free-text watering frequency such as "Every 7 days"
// or "Bi-weekly" into a number of days. It never fails: text that matches no
// known phrase and carries no "<N> ... day" count yields DefaultIntervalDays.
func ParseIntervalDays(frequency string) int {
	text := strings.ToLower(strings.TrimSpace(frequency))
	if text == "" {
		return DefaultIntervalDays
	}

	for _, p := range frequencyPhrases {
		if strings.Contains(text, p.phrase) {
			return p.days
		}
	}

	if m := leadingDaysPattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			return n
		}
	}

	return DefaultIntervalDays
}
