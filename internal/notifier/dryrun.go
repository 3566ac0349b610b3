package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/campushub/campushub/internal/event"
)

// DryRunNotifier prints what would be published or posted without sending anything
type DryRunNotifier struct {
	mu  sync.Mutex
	out io.Writer
	now func() time.Time
}

// NewDryRunNotifier creates a new dry-run notifier writing to out
func NewDryRunNotifier(out io.Writer) *DryRunNotifier {
	return &DryRunNotifier{out: out, now: time.Now}
}

// NotifyRegistration prints the notice that would be published
func (n *DryRunNotifier) NotifyRegistration(ctx context.Context, evt *event.Event, attendee *event.Attendee) error {
	return n.print(RoutingKeyRegistered, NewRegistrationNotice(evt, attendee, n.now()))
}

// AnnounceEvent prints the notice and the tweet that would be sent
func (n *DryRunNotifier) AnnounceEvent(ctx context.Context, evt *event.Event) error {
	if err := n.print(RoutingKeyCreated, NewEventNotice(evt, n.now())); err != nil {
		return err
	}

	tweet := formatTweet(evt)

	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.out, "--- Tweet ---\n%s\n\n(Length: %d characters)\n\n", tweet, len([]rune(tweet)))
	return err
}

func (n *DryRunNotifier) print(key string, notice interface{}) error {
	data, err := json.MarshalIndent(notice, "", "  ")
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	_, err = fmt.Fprintf(n.out, "--- %s ---\n%s\n\n", key, data)
	return err
}
