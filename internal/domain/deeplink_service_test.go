package domain

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestGenerateContestLink(t *testing.T) {
	s := NewDeepLinkService("contest_test_bot")

	link := s.GenerateContestLink("1700000000000")
	want := "https://t.me/contest_test_bot?start=contest_1700000000000"
	if link != want {
		t.Errorf("GenerateContestLink = %q, want %q", link, want)
	}
}

func TestParseContestIDFromStart(t *testing.T) {
	s := NewDeepLinkService("contest_test_bot")

	id, err := s.ParseContestIDFromStart("contest_42")
	if err != nil || id != "42" {
		t.Errorf("ParseContestIDFromStart = (%q, %v)", id, err)
	}

	invalid := []string{"", "contest_", "event_42", "42", "contest"}
	for _, payload := range invalid {
		if _, err := s.ParseContestIDFromStart(payload); err == nil {
			t.Errorf("expected error for payload %q", payload)
		}
	}
}

// Property: every generated link carries a payload that parses back to the
// original contest ID
func TestProperty_DeepLinkRoundTrip(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("link payload round-trips", prop.ForAll(
		func(contestID int64) bool {
			s := NewDeepLinkService("contest_test_bot")
			idStr := fmt.Sprintf("%d", contestID)

			link := s.GenerateContestLink(idStr)
			prefix := "https://t.me/contest_test_bot?start="
			if len(link) <= len(prefix) {
				return false
			}
			parsed, err := s.ParseContestIDFromStart(link[len(prefix):])
			return err == nil && parsed == idStr
		},
		gen.Int64Range(1, 1<<50),
	))

	properties.TestingRun(t)
}
