package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"SetupSentinel/internal/model"
)

// FormatAlert formats an alert as a Telegram HTML message.
func FormatAlert(symbol, title, message string, at time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>%s - %s</b>\n", html.EscapeString(symbol), html.EscapeString(title)))
	b.WriteString(html.EscapeString(message))
	b.WriteString(fmt.Sprintf("\n\n<i>%s UTC</i>", at.UTC().Format("2006-01-02 15:04:05")))
	return b.String()
}

// FormatChecklist renders the display flags as a checkbox list.
func FormatChecklist(f model.Flags) string {
	var b strings.Builder
	for i, v := range f.Values() {
		mark := "⬜"
		if v {
			mark = "✅"
		}
		b.WriteString(fmt.Sprintf("%s %s\n", mark, model.FlagLabels[i]))
	}
	return b.String()
}
