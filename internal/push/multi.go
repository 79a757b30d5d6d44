package push

// Notifier delivers one push payload to one user, best effort
type Notifier interface {
	Notify(username string, payload map[string]interface{})
}

// Multi fans a notification out to several notifiers (e.g. the websocket
// hub plus Slack DMs)
type Multi []Notifier

// Notify delivers to every underlying notifier
func (m Multi) Notify(username string, payload map[string]interface{}) {
	for _, n := range m {
		n.Notify(username, payload)
	}
}
