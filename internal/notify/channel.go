package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
	"github.com/fleetwatch/fleetwatch/internal/push"
)

// Broadcaster delivers a lightweight push notification to one user.
// Best effort: failures are invisible to the dispatch pipeline.
type Broadcaster interface {
	Notify(username string, payload map[string]interface{})
}

// ChannelHandler is the composite `channel` action type: it fans out to
// e-mail, a webhook, a triggered event and direct user pushes, merging
// the sub-results into one parent result, guarded by a per-day cap.
type ChannelHandler struct {
	db        *gorm.DB
	email     Handler
	webhook   Handler
	runEvent  Handler
	push      Broadcaster
	antiflood *Antiflood
}

// NewChannelHandler creates the channel action handler. push may be nil.
func NewChannelHandler(db *gorm.DB, email, webhook, runEvent Handler, broadcaster Broadcaster, antiflood *Antiflood) *ChannelHandler {
	return &ChannelHandler{
		db:        db,
		email:     email,
		webhook:   webhook,
		runEvent:  runEvent,
		push:      broadcaster,
		antiflood: antiflood,
	}
}

// Timeout bounds the whole fan-out
func (h *ChannelHandler) Timeout() time.Duration {
	return 120 * time.Second
}

// Handle runs the antiflood check, then up to four concurrent
// sub-dispatches. Sub-results a=email, b=webhook, c=event aggregate into
// the parent (last failing one wins); the user push (d) cannot fail it.
func (h *ChannelHandler) Handle(ctx context.Context, a *Action, dc *Context) {
	ch, err := database.GetChannelByChannelID(h.db, a.ChannelID)
	if err != nil {
		a.Fail(CodeChannelNotFound, fmt.Sprintf("channel not found: %s", a.ChannelID))
		return
	}
	if !ch.Enabled {
		a.Fail(CodeChannelDisabled, fmt.Sprintf("channel is disabled: %s", a.ChannelID))
		return
	}

	if !h.antiflood.Allow(ch.ChannelID, ch.MaxPerDay) {
		a.Fail(CodeChannelDeclined,
			fmt.Sprintf("channel '%s' hit its daily notification limit (%d per day)", ch.Name, ch.MaxPerDay))
		return
	}

	a.Succeed(fmt.Sprintf("Notified channel: %s", ch.Name))

	var emailAct, hookAct, eventAct *Action
	if len(ch.Users) > 0 || ch.Email != "" {
		emailAct = &Action{Type: TypeEmail, Enabled: true, Condition: a.Condition, Users: ch.Users, Email: ch.Email}
	}
	if ch.WebHook != "" {
		hookAct = &Action{Type: TypeWebHook, Enabled: true, Condition: a.Condition, WebHook: ch.WebHook}
	}
	if ch.RunEvent != "" {
		eventAct = &Action{Type: TypeRunEvent, Enabled: true, Condition: a.Condition, EventID: ch.RunEvent}
	}

	var wg sync.WaitGroup
	sub := func(act *Action, handler Handler) {
		if act == nil || handler == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			handler.Handle(ctx, act, dc)
		}()
	}
	sub(emailAct, h.email)
	sub(hookAct, h.webhook)
	sub(eventAct, h.runEvent)

	// Direct user pushes are fire-and-forget and never touch the
	// parent result.
	if h.push != nil && len(ch.Users) > 0 {
		message := push.SanitizeMessage(dc.Message)
		if message == "" {
			message = push.SanitizeMessage(dc.Title)
		}
		payload := map[string]interface{}{
			"message":     message,
			"sound":       ch.Sound,
			"record_kind": string(dc.RecordKind),
			"record_id":   dc.RecordID,
		}
		for _, username := range ch.Users {
			go h.push.Notify(username, payload)
		}
	}

	wg.Wait()

	// Last failing sub-result in evaluation order a, b, c wins.
	for _, s := range []*Action{emailAct, hookAct, eventAct} {
		if s != nil && !s.OK() {
			a.Code = s.Code
			a.Description = s.Description
		}
	}

	var details strings.Builder
	appendSection := func(title string, act *Action) {
		if act != nil && act.Details != "" {
			details.WriteString(fmt.Sprintf("## %s\n\n%s\n\n", title, act.Details))
		}
	}
	appendSection("Email Details", emailAct)
	appendSection("Web Hook Details", hookAct)
	appendSection("Event Details", eventAct)
	a.Details = strings.TrimSpace(details.String())
}
