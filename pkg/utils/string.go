package utils

// Truncate returns s cut to at most maxLen runes, ending in "..." when
// shortened.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// MaskSecret keeps the first and last four characters of long values and
// hides the rest.
func MaskSecret(s string) string {
	runes := []rune(s)
	if len(runes) <= 8 {
		return "********"
	}
	return string(runes[:4]) + "****" + string(runes[len(runes)-4:])
}
