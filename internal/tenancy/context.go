package tenancy

import "context"

type ctxKey string

const hotelKey ctxKey = "concierge.hotel_id"

// WithHotelID stores the hotel id in context.
func WithHotelID(ctx context.Context, hotelID string) context.Context {
	return context.WithValue(ctx, hotelKey, hotelID)
}

// HotelIDFromContext extracts the hotel id if present.
func HotelIDFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(hotelKey)
	if val == nil {
		return "", false
	}
	hotelID, ok := val.(string)
	return hotelID, ok && hotelID != ""
}
