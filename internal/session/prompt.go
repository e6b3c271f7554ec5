package session

import (
	"fmt"
	"strings"
)

// topicFamily groups bilingual keywords that hint at what the guest has
// been asking about recently.
type topicFamily struct {
	name     string
	hint     string
	keywords []string
}

var topicFamilies = []topicFamily{
	{
		name: "reservation",
		hint: "The guest has recently been asking about room reservations and availability.",
		keywords: []string{
			"reserva", "reservar", "habitacion", "habitación", "habitaciones",
			"disponibilidad", "disponible", "check-in", "check-out",
			"reservation", "booking", "book", "room", "availability", "available",
		},
	},
	{
		name: "dining",
		hint: "The guest has recently been asking about dining, restaurants or meals.",
		keywords: []string{
			"restaurante", "cena", "cenar", "desayuno", "comida", "menu", "menú", "almuerzo",
			"restaurant", "dinner", "breakfast", "lunch", "dining", "meal",
		},
	},
	{
		name: "activity",
		hint: "The guest has recently been asking about activities and facilities.",
		keywords: []string{
			"actividad", "actividades", "excursion", "excursión", "piscina", "gimnasio",
			"activity", "activities", "tour", "spa", "pool", "gym", "hike", "excursion",
		},
	},
}

// promptScanWindow is how many trailing messages are scanned for a topic hint.
const promptScanWindow = 4

// BuildPrompt returns the system prompt and the history slice to feed
// the agent. The system prompt carries hotel identity and a lightweight
// topic hint derived from the most recent messages.
func BuildPrompt(s Session) (string, []Message) {
	var b strings.Builder
	b.WriteString("You are a helpful hotel concierge assistant")
	if name := s.PlatformContext["hotel_name"]; name != "" {
		fmt.Fprintf(&b, " for %s", name)
	}
	if s.HotelID != "" {
		fmt.Fprintf(&b, " (hotel %s)", s.HotelID)
	}
	b.WriteString(". Be professional, friendly and concise. ")
	b.WriteString("Answer in the language the guest writes in.")

	if hint := topicHint(s.History); hint != "" {
		b.WriteString(" ")
		b.WriteString(hint)
	}

	history := make([]Message, len(s.History))
	copy(history, s.History)
	return b.String(), history
}

// topicHint scans the last few messages for bilingual keyword families
// and returns the hint of the dominant family, or empty when nothing
// stands out.
func topicHint(history []Message) string {
	start := len(history) - promptScanWindow
	if start < 0 {
		start = 0
	}

	var window strings.Builder
	for _, msg := range history[start:] {
		window.WriteString(strings.ToLower(msg.Content))
		window.WriteString(" ")
	}
	text := window.String()
	if strings.TrimSpace(text) == "" {
		return ""
	}

	best := ""
	bestHits := 0
	for _, family := range topicFamilies {
		hits := 0
		for _, kw := range family.keywords {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = family.hint
		}
	}
	return best
}
