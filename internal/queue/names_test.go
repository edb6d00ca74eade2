package queue_test

import (
	"errors"
	"strings"
	"testing"

	"workq/internal/queue"
)

func TestValidateName(t *testing.T) {
	cases := []struct {
		name  string
		input string
		valid bool
	}{
		{"simple", "jobs", true},
		{"with underscore", "email_outbox", true},
		{"with digits", "tier2_retries", true},
		{"max length", strings.Repeat("a", 48), true},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 49), false},
		{"leading digit", "2fast", false},
		{"leading underscore", "_hidden", false},
		{"uppercase", "Jobs", false},
		{"hyphen", "my-queue", false},
		{"sql injection", "jobs; DROP TABLE x", false},
		{"spaces", "two words", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := queue.ValidateName(tc.input)
			if tc.valid && err != nil {
				t.Fatalf("ValidateName(%q) = %v, want nil", tc.input, err)
			}
			if !tc.valid {
				if err == nil {
					t.Fatalf("ValidateName(%q) = nil, want error", tc.input)
				}
				if !errors.Is(err, queue.ErrBadQueueName) {
					t.Fatalf("ValidateName(%q) = %v, want ErrBadQueueName", tc.input, err)
				}
			}
		})
	}
}
