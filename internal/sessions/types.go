// Package sessions exposes SpringboardVR booking session operations as MCP
// tools.
package sessions

import (
	"context"
	"time"

	"github.com/jamesprial/springboardvr"
)

// Manager defines the session lifecycle operations the tools drive. It is
// satisfied by *springboardvr.SessionAPI.
type Manager interface {
	CreateSession(ctx context.Context, locationID, experienceID, stationID string, start time.Time, duration time.Duration, title string) (bookingID, stationSessionID string, err error)
	UpdateSession(ctx context.Context, bookingID, stationSessionID string, start time.Time, duration time.Duration) error
	DeleteSession(ctx context.Context, bookingID string) error
	StartSession(ctx context.Context, bookingID, stationID, stationSessionID string, bookedStart time.Time, duration time.Duration) (start, end time.Time, err error)
	PauseSession(ctx context.Context, stationSessionID string, pauseDuration time.Duration) error
	UnpauseSession(ctx context.Context, stationSessionID string, end time.Time) error
	ModifyStationSessionEndTime(ctx context.Context, stationSessionID string, end time.Time) error
}

// Compile-time interface check.
var _ Manager = (*springboardvr.SessionAPI)(nil)

// CreatedSession is the tool result of session_create.
type CreatedSession struct {
	BookingID        string `json:"booking_id"`
	StationSessionID string `json:"station_session_id"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
}

// StartedSession is the tool result of session_start.
type StartedSession struct {
	BookingID        string `json:"booking_id"`
	StationSessionID string `json:"station_session_id"`
	StartedAt        string `json:"started_at"`
	EndTime          string `json:"end_time"`
}
