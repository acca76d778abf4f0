package content

import (
	"regexp"
	"strings"
)

// Reading speed used for the estimate, in words per minute.
const wordsPerMinute = 200

var htmlTagPattern = regexp.MustCompile(`<[^>]+>`)

// ReadTime estimates reading time in minutes for a post body. HTML tags
// are stripped before counting words; the result rounds up and is never
// below one minute.
func ReadTime(body string) int {
	text := htmlTagPattern.ReplaceAllString(body, "")
	words := len(strings.Fields(text))

	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
