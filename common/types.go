package common

import "github.com/variantdl/variantdl/pkg/variantlib"

// ResolveParams is the input for content.resolve. Device and
// RequestedName are mandatory; FailedContentID switches the call into
// fallback mode after a reported delivery failure.
type ResolveParams struct {
	Device          variantlib.DeviceInfo `json:"device_info"`
	RequestedName   string                `json:"requested_content"`
	ClientID        string                `json:"client_id"`
	FailedContentID string                `json:"failed_content_id,omitempty"`
}

// ResolveResult is the chosen (or fallback) content variant.
type ResolveResult struct {
	Fallback    bool            `json:"fallback"`
	ContentID   string          `json:"id"`
	Kind        variantlib.Kind `json:"type"`
	Version     string          `json:"version"`
	DownloadURL string          `json:"download_url"`
}

// DownloadParams is the input for download.request.
type DownloadParams struct {
	ContentID string `json:"content_id"`
	ClientID  string `json:"client_id"`
	Tier      Tier   `json:"tier,omitempty"`
}

// DownloadResult reports the admitted (or coalesced) job.
type DownloadResult struct {
	JobID     string               `json:"job_id"`
	Status    variantlib.JobStatus `json:"status"`
	Coalesced bool                 `json:"coalesced,omitempty"`
}

// JobParams addresses a single job.
type JobParams struct {
	JobID string `json:"job_id"`
}

// JobStatusResult is the response for download.status.
type JobStatusResult struct {
	JobID    string               `json:"job_id"`
	Status   variantlib.JobStatus `json:"status"`
	Percent  int                  `json:"percent"`
	Attempts int                  `json:"attempts"`
}

// HistoryParams is the input for history.list.
type HistoryParams struct {
	ClientID string `json:"client_id"`
	Limit    int    `json:"limit,omitempty"`
}

// HistoryResult is the most recent delivery outcomes for a client,
// newest first.
type HistoryResult struct {
	Records []variantlib.HistoryRecord `json:"records"`
}

// ContentListResult lists original assets with their derived variants.
type ContentListResult struct {
	Contents []*ContentEntry `json:"contents"`
}

// ContentEntry is one original asset and its variants.
type ContentEntry struct {
	ID              string                       `json:"id"`
	Name            string                       `json:"name"`
	Version         string                       `json:"version"`
	ConversionState variantlib.ConversionState   `json:"conversion_state"`
	Variants        []*variantlib.ContentVariant `json:"variants"`
}

// EmptyResult is a placeholder for methods that return no data.
type EmptyResult struct{}
