package services

import "aura-scribe-backend/internal/models"

// BoundHistory keeps the most recent turns that fit within maxTurns and
// maxChars (zero or negative disables a bound). Turns are never edited. After
// trimming, leading model turns are dropped so the history opens with a user
// turn, which Gemini requires. A history within both bounds is returned as is.
func BoundHistory(history []models.Turn, maxTurns, maxChars int) []models.Turn {
	start := 0
	if maxTurns > 0 && len(history) > maxTurns {
		start = len(history) - maxTurns
	}

	if maxChars > 0 {
		total := 0
		for i := len(history) - 1; i >= start; i-- {
			total += len(history[i].Text)
			if total > maxChars {
				start = i + 1
				break
			}
		}
	}

	if start == 0 {
		return history
	}

	for start < len(history) && history[start].Role == models.RoleModel {
		start++
	}
	return history[start:]
}
