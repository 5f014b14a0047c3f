package model

// EventKind tags engine outcomes so any presentation layer can subscribe
// without threading callbacks through the core.
type EventKind string

const (
	EventLocationResolved       EventKind = "location_resolved"
	EventLocationChangeDetected EventKind = "location_change_detected"
	EventAlreadyActive          EventKind = "already_active"
	EventModeSwitched           EventKind = "mode_switched"
	EventFetchFailed            EventKind = "fetch_failed"
	EventWidgetSync             EventKind = "widget_sync"
)

// Event is emitted by the engine and poller. Exactly one of the payload
// fields is set depending on Kind.
type Event struct {
	Kind        EventKind    `json:"kind"`
	Mode        LocationMode `json:"mode,omitempty"`
	DisplayName string       `json:"display_name,omitempty"`
	GPS         *GPSCityInfo `json:"gps,omitempty"`
	Today       *PrayerTime  `json:"today,omitempty"`
	Err         string       `json:"error,omitempty"`
}
