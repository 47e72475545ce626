package llm

import (
	"bytes"
	"encoding/json"
	"strings"

	"shirley/internal/conversation"
)

const (
	unknownWeather  = "לא ידוע"
	unknownContacts = "לא ידועים"
)

// Context is what the backend knows about the user when composing the
// preamble.
type Context struct {
	Weather  string
	Contacts string
	Memory   json.RawMessage
}

// Preamble is the fixed system instruction for the Shirley persona. It
// defines the [CALL:number] directive that the client parses.
func Preamble(c Context) string {
	weather := c.Weather
	if weather == "" {
		weather = unknownWeather
	}
	contacts := c.Contacts
	if contacts == "" {
		contacts = unknownContacts
	}

	var b strings.Builder
	b.WriteString("את שירלי, עוזרת קולית אישית דוברת עברית. ")
	b.WriteString("עני בעברית רהוטה, קצרה, עם פיסוק נכון. ")
	b.WriteString("דברי בטון נעים, לא רשמי מדי אבל לא ילדותי. ")
	b.WriteString("אם שואלים על מזג אוויר, השתמשי בנתון הבא אם הוא קיים: " + weather + ". ")
	b.WriteString("אנשי קשר: " + contacts + ". ")
	b.WriteString(`חיוג: אם מבקשים להתקשר לאדם שאפשר לזהות מתוך אנשי הקשר, כתבי בסוף התשובה: "[CALL:מספר]" בלי הסברים נוספים. `)
	b.WriteString("אל תמציאי מספרים. אם אינך בטוחה במספר, אל תוסיפי תגית CALL. ")
	b.WriteString("אם המשתמש מתייחס לדברים שאמר בעבר, נסי להשתמש בהקשר השיחה ובזיכרון, אם קיים. ")
	if mem := compact(c.Memory); mem != "" {
		b.WriteString("מידע קודם על המשתמש: " + mem + ". ")
	}
	b.WriteString("כשאינך בטוחה, תגידי בכנות שאינך בטוחה, ותציעי נוסח אלטרנטיבי.")
	return b.String()
}

// Messages lays out the preamble, the forwarded history and the new user
// message in completion order.
func Messages(preamble string, history []conversation.Turn, message string) []Message {
	out := make([]Message, 0, len(history)+2)
	out = append(out, Message{Role: RoleSystem, Content: preamble})
	for _, t := range history {
		role := RoleUser
		if t.Role == conversation.RoleAssistant {
			role = RoleAssistant
		}
		out = append(out, Message{Role: role, Content: t.Content})
	}
	return append(out, Message{Role: RoleUser, Content: message})
}

func compact(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}
