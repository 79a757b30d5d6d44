package push

import (
	"fmt"
	"log"
	"sync"

	"github.com/slack-go/slack"
)

// EmailLookup resolves a local username to the e-mail address Slack knows
// the user by
type EmailLookup func(username string) (string, error)

// SlackNotifier delivers push payloads as Slack direct messages. Slack
// user ids are cached after the first lookup.
type SlackNotifier struct {
	client *slack.Client
	lookup EmailLookup

	mu    sync.Mutex
	cache map[string]string // username -> slack user id
}

// NewSlackNotifier creates a notifier from a bot token
func NewSlackNotifier(botToken string, lookup EmailLookup) *SlackNotifier {
	return &SlackNotifier{
		client: slack.New(botToken),
		lookup: lookup,
		cache:  make(map[string]string),
	}
}

// Notify sends the payload's message as a DM. Best effort: all failures
// are logged and swallowed.
func (n *SlackNotifier) Notify(username string, payload map[string]interface{}) {
	message, _ := payload["message"].(string)
	if message == "" {
		return
	}

	slackID, err := n.slackUserID(username)
	if err != nil {
		log.Printf("SlackNotifier: cannot resolve Slack user for %s: %v", username, err)
		return
	}

	text := message
	if kind, ok := payload["record_kind"].(string); ok && kind != "" {
		if id, ok := payload["record_id"].(string); ok && id != "" {
			text = fmt.Sprintf("%s (%s %s)", message, kind, id)
		}
	}

	_, _, err = n.client.PostMessage(slackID, slack.MsgOptionText(text, false))
	if err != nil {
		log.Printf("SlackNotifier: failed to DM %s: %v", username, err)
		return
	}
	log.Printf("SlackNotifier: notified %s", username)
}

// slackUserID resolves and caches the Slack user id for a local username
func (n *SlackNotifier) slackUserID(username string) (string, error) {
	n.mu.Lock()
	if id, ok := n.cache[username]; ok {
		n.mu.Unlock()
		return id, nil
	}
	n.mu.Unlock()

	email, err := n.lookup(username)
	if err != nil {
		return "", err
	}
	if email == "" {
		return "", fmt.Errorf("user %s has no e-mail address", username)
	}

	su, err := n.client.GetUserByEmail(email)
	if err != nil {
		return "", err
	}

	n.mu.Lock()
	n.cache[username] = su.ID
	n.mu.Unlock()
	return su.ID, nil
}
