package orders

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestNumberGeneratorFormat(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g := NewNumberGenerator("opal")
	g.now = func() time.Time { return at }
	g.intn = func(n int) int { return n - 1 }

	got := g.Next()
	want := "OPAL-" + strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36)) + "-ZZZZ"
	if got != want {
		t.Fatalf("Next() = %q, want %q", got, want)
	}
}

func TestNumberGeneratorDefaults(t *testing.T) {
	pattern := regexp.MustCompile(`^OPAL-[0-9A-Z]+-[0-9A-Z]{4}$`)
	g := NewNumberGenerator(" ")
	for i := 0; i < 20; i++ {
		if n := g.Next(); !pattern.MatchString(n) {
			t.Fatalf("unexpected order number %q", n)
		}
	}
}
