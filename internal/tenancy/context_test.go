package tenancy

import (
	"context"
	"testing"
)

func TestHotelIDRoundTrip(t *testing.T) {
	ctx := WithHotelID(context.Background(), "hotel-42")
	got, ok := HotelIDFromContext(ctx)
	if !ok || got != "hotel-42" {
		t.Fatalf("expected hotel-42, got %q / %v", got, ok)
	}
}

func TestHotelIDMissing(t *testing.T) {
	if _, ok := HotelIDFromContext(context.Background()); ok {
		t.Fatal("expected no hotel id in empty context")
	}
}

func TestHotelIDEmptyValue(t *testing.T) {
	ctx := WithHotelID(context.Background(), "")
	if _, ok := HotelIDFromContext(ctx); ok {
		t.Fatal("empty hotel id should not report present")
	}
}
