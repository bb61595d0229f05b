package telegram

import "strings"

const messageLimit = 4096

// SplitMessage делит текст на части не длиннее лимита сообщения.
// Разрез ищется сначала по переводу строки, затем по пробелу.
func SplitMessage(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) <= messageLimit {
		return []string{trimmed}
	}

	var parts []string
	for start := 0; start < len(runes); {
		end := min(start+messageLimit, len(runes))
		if end < len(runes) {
			end = cutPoint(runes, start, end)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			parts = append(parts, chunk)
		}
		start = end
		for start < len(runes) && (runes[start] == '\n' || runes[start] == ' ') {
			start++
		}
	}
	return parts
}

func cutPoint(runes []rune, start, end int) int {
	for _, sep := range []rune{'\n', ' '} {
		for i := end; i > start; i-- {
			if runes[i-1] == sep {
				return i
			}
		}
	}
	return end
}
