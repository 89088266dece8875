package variantlib

// Event is one progress notification for a download job. The schema is
// stable JSON consumed by subscribers over the push channel.
type Event struct {
	JobID       string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Percent     int       `json:"percent"`
	ContentID   string    `json:"content_id"`
	ContentName string    `json:"content_name"`
	DownloadURL string    `json:"download_url,omitempty"`
}

// EventSink receives progress events for fan-out to a client's
// subscribers. Publish must not block the caller: delivery is
// best-effort and event loss never affects job state.
type EventSink interface {
	Publish(clientID string, ev Event)
}

// nopSink drops all events. Used when no broadcaster is wired.
type nopSink struct{}

func (nopSink) Publish(string, Event) {}
