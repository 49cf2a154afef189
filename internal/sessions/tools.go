package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/jamesprial/springboardvr"
	"github.com/jamesprial/springboardvr/internal/safety"
	"github.com/jamesprial/springboardvr/internal/tools"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	toolCreate        = "session_create"
	toolUpdate        = "session_update"
	toolDelete        = "session_delete"
	toolStart         = "session_start"
	toolPause         = "session_pause"
	toolUnpause       = "session_unpause"
	toolModifyEndTime = "session_modify_end_time"
)

// DestructiveTools lists session tool names that require confirmation before
// execution.
var DestructiveTools = []string{toolDelete}

const timeArgHelp = "Local wall-clock time as 2006-01-02T15:04:05, or RFC 3339."

// Deps bundles what the session tools need.
type Deps struct {
	Manager   Manager
	Locations *safety.Filter
	Stations  *safety.Filter
	Confirm   *safety.ConfirmationTracker
	Recorder  tools.Recorder
	// TimeZone is used to read naive timestamps. Nil means time.Local.
	TimeZone *time.Location
}

// SessionTools returns the tool registrations for booking session lifecycle
// management.
func SessionTools(d Deps) []tools.Registration {
	if d.Manager == nil {
		panic("session manager must not be nil")
	}
	return []tools.Registration{
		toolSessionCreate(d),
		toolSessionUpdate(d),
		toolSessionDelete(d),
		toolSessionStart(d),
		toolSessionPause(d),
		toolSessionUnpause(d),
		toolSessionModifyEndTime(d),
	}
}

// failure records err against toolName and turns it into a tool result.
func failure(rec tools.Recorder, toolName string, params map[string]any, start time.Time, err error) *mcp.CallToolResult {
	rec.Record(toolName, params, "error: "+err.Error(), start)
	return tools.ErrorResult(err.Error())
}

// toolSessionCreate constructs the session_create Registration.
func toolSessionCreate(d Deps) tools.Registration {
	tool := mcp.NewTool(toolCreate,
		mcp.WithDescription("Create a single-player booking with one station time at a zero-priced custom tier. Returns the booking id and station session id needed by the other session tools."),
		mcp.WithString("location_id", mcp.Required(), mcp.Description("SpringboardVR location id")),
		mcp.WithString("experience_id", mcp.Required(), mcp.Description("Experience (game or content) id")),
		mcp.WithString("station_id", mcp.Required(), mcp.Description("Station id to book")),
		mcp.WithString("start_time", mcp.Required(), mcp.Description("Booked start. "+timeArgHelp)),
		mcp.WithNumber("duration_minutes", mcp.Required(), mcp.Description("Session length in whole minutes")),
		mcp.WithString("title", mcp.Description("Booking title shown in the venue calendar")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		params := map[string]any{
			"location_id":      req.GetString("location_id", ""),
			"experience_id":    req.GetString("experience_id", ""),
			"station_id":       req.GetString("station_id", ""),
			"start_time":       req.GetString("start_time", ""),
			"duration_minutes": req.GetArguments()["duration_minutes"],
			"title":            req.GetString("title", ""),
		}

		locationID, err := tools.RequiredString(req, "location_id")
		if err != nil {
			return failure(d.Recorder, toolCreate, params, start, err), nil
		}
		experienceID, err := tools.RequiredString(req, "experience_id")
		if err != nil {
			return failure(d.Recorder, toolCreate, params, start, err), nil
		}
		stationID, err := tools.RequiredString(req, "station_id")
		if err != nil {
			return failure(d.Recorder, toolCreate, params, start, err), nil
		}
		bookedStart, err := tools.TimeArg(req, "start_time", d.TimeZone)
		if err != nil {
			return failure(d.Recorder, toolCreate, params, start, err), nil
		}
		duration, err := tools.MinutesArg(req, "duration_minutes", 1)
		if err != nil {
			return failure(d.Recorder, toolCreate, params, start, err), nil
		}
		if err := d.Locations.Check(locationID); err != nil {
			return failure(d.Recorder, toolCreate, params, start, err), nil
		}
		if err := d.Stations.Check(stationID); err != nil {
			return failure(d.Recorder, toolCreate, params, start, err), nil
		}

		title := req.GetString("title", "")
		bookingID, stationSessionID, err := d.Manager.CreateSession(ctx, locationID, experienceID, stationID, bookedStart, duration, title)
		if err != nil {
			return failure(d.Recorder, toolCreate, params, start, err), nil
		}

		d.Recorder.Record(toolCreate, params, "ok: booking "+bookingID, start)
		return tools.JSONResult(CreatedSession{
			BookingID:        bookingID,
			StationSessionID: stationSessionID,
			StartTime:        springboardvr.FormatTimestamp(bookedStart),
			EndTime:          springboardvr.FormatTimestamp(bookedStart.Add(duration)),
		}), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// toolSessionUpdate constructs the session_update Registration.
func toolSessionUpdate(d Deps) tools.Registration {
	tool := mcp.NewTool(toolUpdate,
		mcp.WithDescription("Move a booking to a new start time and resize its station time to the given duration."),
		mcp.WithString("booking_id", mcp.Required(), mcp.Description("Booking id returned by session_create")),
		mcp.WithString("station_session_id", mcp.Required(), mcp.Description("Station session id returned by session_create")),
		mcp.WithString("start_time", mcp.Required(), mcp.Description("New start. "+timeArgHelp)),
		mcp.WithNumber("duration_minutes", mcp.Required(), mcp.Description("New session length in whole minutes")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		params := map[string]any{
			"booking_id":         req.GetString("booking_id", ""),
			"station_session_id": req.GetString("station_session_id", ""),
			"start_time":         req.GetString("start_time", ""),
			"duration_minutes":   req.GetArguments()["duration_minutes"],
		}

		bookingID, err := tools.RequiredString(req, "booking_id")
		if err != nil {
			return failure(d.Recorder, toolUpdate, params, start, err), nil
		}
		stationSessionID, err := tools.RequiredString(req, "station_session_id")
		if err != nil {
			return failure(d.Recorder, toolUpdate, params, start, err), nil
		}
		newStart, err := tools.TimeArg(req, "start_time", d.TimeZone)
		if err != nil {
			return failure(d.Recorder, toolUpdate, params, start, err), nil
		}
		duration, err := tools.MinutesArg(req, "duration_minutes", 1)
		if err != nil {
			return failure(d.Recorder, toolUpdate, params, start, err), nil
		}

		if err := d.Manager.UpdateSession(ctx, bookingID, stationSessionID, newStart, duration); err != nil {
			return failure(d.Recorder, toolUpdate, params, start, err), nil
		}

		d.Recorder.Record(toolUpdate, params, "ok", start)
		return mcp.NewToolResultText(fmt.Sprintf("booking %q now runs %s to %s",
			bookingID,
			springboardvr.FormatTimestamp(newStart),
			springboardvr.FormatTimestamp(newStart.Add(duration)),
		)), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// toolSessionDelete constructs the session_delete Registration.
func toolSessionDelete(d Deps) tools.Registration {
	tool := mcp.NewTool(toolDelete,
		mcp.WithDescription("Delete a booking and its station time. Requires a confirmation token."),
		mcp.WithString("booking_id", mcp.Required(), mcp.Description("Booking id to delete")),
		mcp.WithString("confirmation_token", mcp.Description("Confirmation token returned by a prior call")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		params := map[string]any{
			"booking_id": req.GetString("booking_id", ""),
		}

		bookingID, err := tools.RequiredString(req, "booking_id")
		if err != nil {
			return failure(d.Recorder, toolDelete, params, start, err), nil
		}

		if d.Confirm != nil && d.Confirm.NeedsConfirmation(toolDelete) {
			token := req.GetString("confirmation_token", "")
			if !d.Confirm.Confirm(token, toolDelete, bookingID) {
				desc := "This will permanently delete the booking and its station time. This cannot be undone."
				d.Recorder.Record(toolDelete, params, "confirmation required", start)
				return tools.ConfirmPrompt(d.Confirm, toolDelete, bookingID, desc), nil
			}
		}

		if err := d.Manager.DeleteSession(ctx, bookingID); err != nil {
			return failure(d.Recorder, toolDelete, params, start, err), nil
		}

		d.Recorder.Record(toolDelete, params, "ok", start)
		return mcp.NewToolResultText(fmt.Sprintf("booking %q deleted successfully", bookingID)), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// toolSessionStart constructs the session_start Registration.
func toolSessionStart(d Deps) tools.Registration {
	tool := mcp.NewTool(toolStart,
		mcp.WithDescription("Check a booking in and start its station time now. Returns the actual start and end times."),
		mcp.WithString("booking_id", mcp.Required(), mcp.Description("Booking id")),
		mcp.WithString("station_id", mcp.Required(), mcp.Description("Station the player is on")),
		mcp.WithString("station_session_id", mcp.Required(), mcp.Description("Station session id")),
		mcp.WithString("start_time", mcp.Required(), mcp.Description("Booked start. "+timeArgHelp)),
		mcp.WithNumber("duration_minutes", mcp.Required(), mcp.Description("Session length in whole minutes")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		params := map[string]any{
			"booking_id":         req.GetString("booking_id", ""),
			"station_id":         req.GetString("station_id", ""),
			"station_session_id": req.GetString("station_session_id", ""),
			"start_time":         req.GetString("start_time", ""),
			"duration_minutes":   req.GetArguments()["duration_minutes"],
		}

		bookingID, err := tools.RequiredString(req, "booking_id")
		if err != nil {
			return failure(d.Recorder, toolStart, params, start, err), nil
		}
		stationID, err := tools.RequiredString(req, "station_id")
		if err != nil {
			return failure(d.Recorder, toolStart, params, start, err), nil
		}
		stationSessionID, err := tools.RequiredString(req, "station_session_id")
		if err != nil {
			return failure(d.Recorder, toolStart, params, start, err), nil
		}
		bookedStart, err := tools.TimeArg(req, "start_time", d.TimeZone)
		if err != nil {
			return failure(d.Recorder, toolStart, params, start, err), nil
		}
		duration, err := tools.MinutesArg(req, "duration_minutes", 1)
		if err != nil {
			return failure(d.Recorder, toolStart, params, start, err), nil
		}
		if err := d.Stations.Check(stationID); err != nil {
			return failure(d.Recorder, toolStart, params, start, err), nil
		}

		startedAt, endTime, err := d.Manager.StartSession(ctx, bookingID, stationID, stationSessionID, bookedStart, duration)
		if err != nil {
			return failure(d.Recorder, toolStart, params, start, err), nil
		}

		d.Recorder.Record(toolStart, params, "ok", start)
		return tools.JSONResult(StartedSession{
			BookingID:        bookingID,
			StationSessionID: stationSessionID,
			StartedAt:        springboardvr.FormatTimestamp(startedAt),
			EndTime:          springboardvr.FormatTimestamp(endTime),
		}), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// toolSessionPause constructs the session_pause Registration.
func toolSessionPause(d Deps) tools.Registration {
	tool := mcp.NewTool(toolPause,
		mcp.WithDescription("Pause a running station time as of now."),
		mcp.WithString("station_session_id", mcp.Required(), mcp.Description("Station session id")),
		mcp.WithNumber("pause_minutes", mcp.Required(), mcp.Description("Expected pause length in whole minutes")),
	)

	handler := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		params := map[string]any{
			"station_session_id": req.GetString("station_session_id", ""),
			"pause_minutes":      req.GetArguments()["pause_minutes"],
		}

		stationSessionID, err := tools.RequiredString(req, "station_session_id")
		if err != nil {
			return failure(d.Recorder, toolPause, params, start, err), nil
		}
		pause, err := tools.MinutesArg(req, "pause_minutes", 0)
		if err != nil {
			return failure(d.Recorder, toolPause, params, start, err), nil
		}

		if err := d.Manager.PauseSession(ctx, stationSessionID, pause); err != nil {
			return failure(d.Recorder, toolPause, params, start, err), nil
		}

		d.Recorder.Record(toolPause, params, "ok", start)
		return mcp.NewToolResultText(fmt.Sprintf("station session %q paused", stationSessionID)), nil
	}

	return tools.Registration{Tool: tool, Handler: server.ToolHandlerFunc(handler)}
}

// endTimeHandler builds the handler shared by the tools that set a new end
// time on a station time.
func endTimeHandler(d Deps, toolName, verb string, apply func(ctx context.Context, id string, end time.Time) error) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		params := map[string]any{
			"station_session_id": req.GetString("station_session_id", ""),
			"end_time":           req.GetString("end_time", ""),
		}

		stationSessionID, err := tools.RequiredString(req, "station_session_id")
		if err != nil {
			return failure(d.Recorder, toolName, params, start, err), nil
		}
		end, err := tools.TimeArg(req, "end_time", d.TimeZone)
		if err != nil {
			return failure(d.Recorder, toolName, params, start, err), nil
		}

		if err := apply(ctx, stationSessionID, end); err != nil {
			return failure(d.Recorder, toolName, params, start, err), nil
		}

		d.Recorder.Record(toolName, params, "ok", start)
		return mcp.NewToolResultText(fmt.Sprintf("station session %q %s, ends %s",
			stationSessionID, verb, springboardvr.FormatTimestamp(end))), nil
	}
}

// toolSessionUnpause constructs the session_unpause Registration.
func toolSessionUnpause(d Deps) tools.Registration {
	tool := mcp.NewTool(toolUnpause,
		mcp.WithDescription("Resume a paused station time, clearing its pause and setting a new end time."),
		mcp.WithString("station_session_id", mcp.Required(), mcp.Description("Station session id")),
		mcp.WithString("end_time", mcp.Required(), mcp.Description("New end. "+timeArgHelp)),
	)
	return tools.Registration{Tool: tool, Handler: endTimeHandler(d, toolUnpause, "resumed", d.Manager.UnpauseSession)}
}

// toolSessionModifyEndTime constructs the session_modify_end_time Registration.
func toolSessionModifyEndTime(d Deps) tools.Registration {
	tool := mcp.NewTool(toolModifyEndTime,
		mcp.WithDescription("Set a new end time on a station time. Resets amounts due and paid to zero and clears any stored payment card."),
		mcp.WithString("station_session_id", mcp.Required(), mcp.Description("Station session id")),
		mcp.WithString("end_time", mcp.Required(), mcp.Description("New end. "+timeArgHelp)),
	)
	return tools.Registration{Tool: tool, Handler: endTimeHandler(d, toolModifyEndTime, "updated", d.Manager.ModifyStationSessionEndTime)}
}
