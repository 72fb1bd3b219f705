package dispatch

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/tidewatch/intelsentry/internal/models"
)

var typeEmoji = map[models.AlertType]string{
	models.AlertMarketState:    "📊",
	models.AlertWhaleActivity:  "🐋",
	models.AlertHighImpactNews: "📰",
}

// caveatPools holds the short "why this might not matter" lines appended to
// every message, one pool per alert category.
var caveatPools = map[models.AlertType][]string{
	models.AlertMarketState: {
		"Score bands are coarse; a single crossing can be noise.",
		"Bias labels lag a fast-moving tape.",
		"Confidence reflects source agreement, not outcome odds.",
		"Crossings cluster when the score sits near the line.",
	},
	models.AlertWhaleActivity: {
		"Large flows are sometimes exchange rebalancing, not conviction.",
		"Net flow ignores derivatives positioning.",
		"One wallet can dominate a single reading.",
		"A flow delta says nothing about intent.",
	},
	models.AlertHighImpactNews: {
		"High-impact stories are often already priced in.",
		"Single-source items can be corrected within hours.",
		"Impact scores overweight novelty.",
		"Confirmation usually arrives after the move.",
	},
}

// caveatFor picks a caveat line deterministically from the alert's score, so
// the same alert always renders the same message.
func caveatFor(typ models.AlertType, score float64) string {
	pool := caveatPools[typ]
	if len(pool) == 0 {
		return ""
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(score))
	h := fnv.New32a()
	h.Write(buf[:])
	return pool[int(h.Sum32())%len(pool)]
}

// FormatMessage renders a candidate alert plus its context into a Telegram
// MarkdownV2 message: title, the alert's body (two lines at most), a context
// line, and the deterministic caveat.
func FormatMessage(alert models.CandidateAlert, actx models.AlertContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s *%s*\n", typeEmoji[alert.Type], escapeMarkdownV2(alert.Title))

	lines := strings.Split(alert.Message, "\n")
	if len(lines) > 2 {
		lines = lines[:2]
	}
	for _, line := range lines {
		b.WriteString(escapeMarkdownV2(line))
		b.WriteByte('\n')
	}

	fmt.Fprintf(&b, "`%s` \\| %s \\| %s\n",
		escapeMarkdownV2(actx.Symbol), escapeMarkdownV2(actx.Bias), escapeMarkdownV2(actx.Category))

	if caveat := caveatFor(alert.Type, alert.Score); caveat != "" {
		fmt.Fprintf(&b, "_%s_", escapeMarkdownV2(caveat))
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
