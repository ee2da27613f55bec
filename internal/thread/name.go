package thread

// NameMaxRunes is the maximum thread name length before truncation.
const NameMaxRunes = 25

// NameFromText derives a thread name from the first user message:
// the first NameMaxRunes runes, with an ellipsis suffix when truncated.
// The text is taken as-is, whitespace included.
func NameFromText(text string) string {
	runes := []rune(text)
	if len(runes) <= NameMaxRunes {
		return text
	}
	return string(runes[:NameMaxRunes]) + "..."
}
