package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dghubble/go-twitter/twitter" //nolint:staticcheck // Using stable v1.1 API
	"github.com/dghubble/oauth1"

	"github.com/campushub/campushub/internal/event"
)

const maxTweetLen = 280

// TwitterCredentials are the OAuth1 keys of the posting account
type TwitterCredentials struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Complete reports whether every key is set
func (c TwitterCredentials) Complete() bool {
	return c.APIKey != "" && c.APISecret != "" && c.AccessToken != "" && c.AccessSecret != ""
}

// TwitterAnnouncer posts new events to Twitter
type TwitterAnnouncer struct {
	client *twitter.Client
}

// NewTwitterAnnouncer creates an announcer for the account behind creds
func NewTwitterAnnouncer(creds TwitterCredentials) (*TwitterAnnouncer, error) {
	if !creds.Complete() {
		return nil, errors.New("missing required Twitter credentials")
	}

	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(oauth1.NoContext, token)

	return &TwitterAnnouncer{client: twitter.NewClient(httpClient)}, nil
}

// AnnounceEvent tweets about evt
func (a *TwitterAnnouncer) AnnounceEvent(ctx context.Context, evt *event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, _, err := a.client.Statuses.Update(formatTweet(evt), nil)
	if err != nil {
		return fmt.Errorf("failed to post tweet for event %s: %w", evt.ID, err)
	}
	return nil
}

// formatTweet prefers the stored social media post and falls back to a
// plain announcement built from the event fields.
func formatTweet(evt *event.Event) string {
	tweet := strings.TrimSpace(evt.GeneratedSocialMediaPost)

	if tweet == "" {
		var b strings.Builder
		b.WriteString("🎉 New campus event!\n\n")
		fmt.Fprintf(&b, "📌 %s\n", evt.Name)
		if evt.Date != "" {
			fmt.Fprintf(&b, "📅 %s %s\n", evt.Date, evt.Time)
		}
		if evt.Location != "" {
			fmt.Fprintf(&b, "📍 %s\n", evt.Location)
		}
		if evt.Organizers != "" {
			fmt.Fprintf(&b, "👥 %s\n", evt.Organizers)
		}
		b.WriteString("\n#CampusHub")
		tweet = b.String()
	}

	return truncate(tweet, maxTweetLen)
}

// truncate shortens s to at most max runes, ending in "..." when cut
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max-3]) + "..."
}
