package push

import (
	"regexp"
	"strings"
)

// productPrefix is trimmed off push messages so phone/desktop toasts
// don't repeat the app name
const productPrefix = "Fleetwatch"

var urlPattern = regexp.MustCompile(`https?://\S+`)

// SanitizeMessage prepares text for a push notification: URLs are
// stripped, the leading product-name prefix is trimmed, and a trailing
// colon left over from either is removed.
func SanitizeMessage(text string) string {
	text = urlPattern.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, productPrefix) {
		text = strings.TrimPrefix(text, productPrefix)
		text = strings.TrimLeft(text, ": ")
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, ":")
	return strings.TrimSpace(text)
}
