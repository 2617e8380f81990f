package otel_test

import (
	"context"
	"testing"

	"github.com/louisbranch/tabletop.chat/internal/platform/otel"
)

func TestSetupNoopWithoutEndpoint(t *testing.T) {
	t.Setenv("TABLETOP_CHAT_OTEL_ENDPOINT", "")

	shutdown, err := otel.Setup(context.Background(), "gamemaster")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetupNoopWhenDisabled(t *testing.T) {
	t.Setenv("TABLETOP_CHAT_OTEL_ENDPOINT", "http://localhost:4318")
	t.Setenv("TABLETOP_CHAT_OTEL_ENABLED", "false")

	shutdown, err := otel.Setup(context.Background(), "gamemaster")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
