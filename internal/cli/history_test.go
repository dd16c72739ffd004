package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/emberhq/kilnd/internal/ledger"
)

func TestRenderHistory(t *testing.T) {
	started := time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC)
	finished := started.Add(92 * time.Second)

	builds := []*ledger.Build{
		{
			ID:          uuid.MustParse("3b241101-e2bb-4255-8caf-4136c566a962"),
			Resource:    "app",
			Status:      ledger.StatusSucceeded,
			ImageDigest: "sha256:deadbeef",
			StartedAt:   started,
			FinishedAt:  &finished,
		},
		{
			ID:        uuid.MustParse("9f86d081-884c-4d63-a5f2-21b863f1b5a7"),
			Resource:  "app",
			Status:    ledger.StatusFailed,
			Error:     "step 2 exited with 1",
			StartedAt: started,
		},
	}

	out := renderHistory(builds)

	for _, want := range []string{"3b241101", "9f86d081", "succeeded", "failed", "sha256:deadbeef", "step 2 exited with 1", "1m32s"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 40); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	long := strings.Repeat("a", 50)
	got := truncate(long, 40)
	if len(got) != 40 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate(long) = %q", got)
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("3b241101-e2bb-4255-8caf-4136c566a962"); got != "3b241101" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}
