package springboardvr

import (
	"fmt"
	"time"
)

const (
	// Wall-clock timestamp layouts without offset, the naive ISO-8601 form
	// the booking API stores.
	isoLayout      = "2006-01-02T15:04:05"
	isoMicroLayout = "2006-01-02T15:04:05.000000"

	customTierID   = "custom"
	defaultPlayers = 1
)

// FormatTimestamp renders t in its own location without a zone offset, the
// form used on the wire.
// Microseconds are included only when non-zero.
func FormatTimestamp(t time.Time) string {
	if t.Nanosecond()/1000 == 0 {
		return t.Format(isoLayout)
	}
	return t.Format(isoMicroLayout)
}

// ParseTimestamp parses either the naive wall-clock form used on the wire,
// interpreted in loc, or an RFC 3339 timestamp. A nil loc means time.Local.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(isoLayout, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: want %s or RFC 3339", s, isoLayout)
	}
	return t, nil
}

// wholeMinutes converts d to the integer minute count used on the wire.
func wholeMinutes(d time.Duration) int {
	return int(d / time.Minute)
}

// idRef is a nested {"id": ...} reference to another remote entity.
type idRef struct {
	ID string `json:"id"`
}

// emptyObject marshals as {}.
type emptyObject struct{}

// tierInput is the pricing tier attached to a station time.
type tierInput struct {
	ID     string `json:"id"`
	Length int    `json:"length"`
	Price  int    `json:"price"`
}

// hostInput carries host contact fields. Nil fields are sent as null.
type hostInput struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

// newStationTimeInput is a station time submitted together with a new booking.
type newStationTimeInput struct {
	AmountDue  int         `json:"amountDue"`
	AmountPaid int         `json:"amountPaid"`
	Coupon     emptyObject `json:"coupon"`
	Discount   emptyObject `json:"discount"`
	Experience idRef       `json:"experience"`
	StartedAt  *string     `json:"startedAt"`
	Station    idRef       `json:"station"`
	EndTime    string      `json:"endTime"`
	Tier       tierInput   `json:"tier"`
}

// newBookingInput is the BookingInput for storeBooking when creating.
type newBookingInput struct {
	BookingStationTimes []newStationTimeInput `json:"bookingStationTimes"`
	Host                hostInput             `json:"host"`
	Location            idRef                 `json:"location"`
	NotifyHost          bool                  `json:"notifyHost"`
	NumPlayers          int                   `json:"numPlayers"`
	StartTime           string                `json:"startTime"`
	Title               string                `json:"title"`
}

// storeBookingResponse is the data shape returned by storeBooking.
type storeBookingResponse struct {
	StoreBooking struct {
		ID                  string `json:"id"`
		StartTime           string `json:"startTime"`
		BookingStationTimes []struct {
			ID string `json:"id"`
		} `json:"bookingStationTimes"`
	} `json:"storeBooking"`
}
