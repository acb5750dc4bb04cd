package phase

import "strings"

// advanceSignals are phrases the assistant is instructed to use when it thinks
// the current phase is done. Missing a signal is fine, the user can move on by
// hand. Matching one the assistant did not mean is not, so the list stays short.
var advanceSignals = []string{
	"ready to move on",
	"next phase",
	"good understanding",
	"comprehensive picture",
	"let's explore",
	"shall we continue",
}

// ShouldAdvance is an advisory signal. The caller decides whether to act on it.
func ShouldAdvance(reply string) bool {
	text := normalize(reply)
	if text == "" {
		return false
	}
	for _, signal := range advanceSignals {
		if strings.Contains(text, signal) {
			return true
		}
	}
	return false
}

// Suggest returns the phase to offer after reply, or false when there is
// nothing to suggest.
func Suggest(current Phase, reply string) (Phase, bool) {
	if current.Terminal() || !current.Valid() {
		return "", false
	}
	if !ShouldAdvance(reply) {
		return "", false
	}
	next, ok, err := Next(current)
	if err != nil {
		return "", false
	}
	return next, ok
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(apostrophes.Replace(s))), " ")
}
