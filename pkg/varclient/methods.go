package varclient

import (
	"context"

	"github.com/variantdl/variantdl/common"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

// Resolve asks the daemon which variant the device should receive.
func (c *Client) Resolve(ctx context.Context, device variantlib.DeviceInfo, name, clientID string) (*common.ResolveResult, error) {
	return invoke[common.ResolveResult](ctx, c, "content.resolve", &common.ResolveParams{
		Device:        device,
		RequestedName: name,
		ClientID:      clientID,
	})
}

// ResolveFallback asks for a replacement after failedContentID could
// not be delivered.
func (c *Client) ResolveFallback(ctx context.Context, device variantlib.DeviceInfo, name, clientID, failedContentID string) (*common.ResolveResult, error) {
	return invoke[common.ResolveResult](ctx, c, "content.resolve", &common.ResolveParams{
		Device:          device,
		RequestedName:   name,
		ClientID:        clientID,
		FailedContentID: failedContentID,
	})
}

// RequestDownload admits (or coalesces onto) a download job.
func (c *Client) RequestDownload(ctx context.Context, contentID, clientID string, tier common.Tier) (*common.DownloadResult, error) {
	return invoke[common.DownloadResult](ctx, c, "download.request", &common.DownloadParams{
		ContentID: contentID,
		ClientID:  clientID,
		Tier:      tier,
	})
}

// JobStatus reports a job's state and progress.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*common.JobStatusResult, error) {
	return invoke[common.JobStatusResult](ctx, c, "download.status", &common.JobParams{JobID: jobID})
}

// CancelJob requests a job stop.
func (c *Client) CancelJob(ctx context.Context, jobID string) error {
	_, err := invoke[common.EmptyResult](ctx, c, "download.cancel", &common.JobParams{JobID: jobID})
	return err
}

// History lists the client's most recent delivery outcomes.
func (c *Client) History(ctx context.Context, clientID string, limit int) (*common.HistoryResult, error) {
	return invoke[common.HistoryResult](ctx, c, "history.list", &common.HistoryParams{
		ClientID: clientID,
		Limit:    limit,
	})
}

// ListContents lists original assets with their derived variants.
func (c *Client) ListContents(ctx context.Context) (*common.ContentListResult, error) {
	return invoke[common.ContentListResult](ctx, c, "content.list", nil)
}

// AddVariant registers a catalog entry.
func (c *Client) AddVariant(ctx context.Context, v *variantlib.ContentVariant) error {
	_, err := invoke[common.EmptyResult](ctx, c, "content.add", v)
	return err
}

// MarkConversion records a conversion pipeline state transition.
func (c *Client) MarkConversion(ctx context.Context, contentID string, state variantlib.ConversionState) error {
	_, err := invoke[common.EmptyResult](ctx, c, "content.markConversion", map[string]any{
		"content_id": contentID,
		"state":      state,
	})
	return err
}

// AddDependency records that contentID requires requiredID.
func (c *Client) AddDependency(ctx context.Context, contentID, requiredID string) error {
	_, err := invoke[common.EmptyResult](ctx, c, "dependency.add", map[string]any{
		"content_id":  contentID,
		"required_id": requiredID,
	})
	return err
}
