package pubsub

import (
	"context"
	"testing"

	"github.com/rapidsites/storefront/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	cases := []struct {
		project, name, want string
	}{
		{"proj", "orders", "projects/proj/topics/orders"},
		{"proj", " orders ", "projects/proj/topics/orders"},
		{"proj", "projects/other/topics/orders", "projects/other/topics/orders"},
		{"", "orders", ""},
		{"proj", "", ""},
	}
	for _, tc := range cases {
		if got := TopicResourceName(tc.project, tc.name); got != tc.want {
			t.Fatalf("TopicResourceName(%q, %q) = %q, want %q", tc.project, tc.name, got, tc.want)
		}
	}
}

func TestNewClientValidatesInput(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, []string{"orders"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "proj"}, []string{" ", ""}, nil); err != errNoTopics {
		t.Fatalf("expected topics error, got %v", err)
	}
}

func TestCleanTopicsDedupes(t *testing.T) {
	got := cleanTopics([]string{" orders", "orders ", "", "refunds"})
	if len(got) != 2 || got[0] != "orders" || got[1] != "refunds" {
		t.Fatalf("unexpected topics %v", got)
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
	if _, err := c.Send(context.Background(), "orders", Message{}); err == nil {
		t.Fatal("expected send error")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
