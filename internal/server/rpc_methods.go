package server

import (
	"context"
	"errors"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"

	"github.com/variantdl/variantdl/common"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

// Custom JSON-RPC error codes for delivery operations.
const (
	codeContentNotFound     = jrpc2.Code(-32001)
	codeNoCompatibleContent = jrpc2.Code(-32002)
	codeNoFallbackAvailable = jrpc2.Code(-32003)
	codeJobNotFound         = jrpc2.Code(-32004)
	codeInvalidParams       = jrpc2.Code(-32602)
)

// methods builds the JSON-RPC method map exposed on /rpc and on each
// websocket subscription connection.
func (s *Server) methods() handler.Map {
	return handler.Map{
		"content.resolve":        handler.New(s.contentResolve),
		"content.list":           handler.New(s.contentList),
		"content.add":            handler.New(s.contentAdd),
		"content.markConversion": handler.New(s.contentMarkConversion),
		"dependency.add":         handler.New(s.dependencyAdd),
		"download.request":       handler.New(s.downloadRequest),
		"download.status":        handler.New(s.downloadStatus),
		"download.cancel":        handler.New(s.downloadCancel),
		"history.list":           handler.New(s.historyList),
	}
}

func (s *Server) contentResolve(ctx context.Context, p *common.ResolveParams) (*common.ResolveResult, error) {
	res, err := s.svc.Resolve(ctx, p)
	return res, rpcError(err)
}

func (s *Server) contentList(ctx context.Context) (*common.ContentListResult, error) {
	res, err := s.svc.ListContents(ctx)
	return res, rpcError(err)
}

func (s *Server) contentAdd(ctx context.Context, v *variantlib.ContentVariant) (*common.EmptyResult, error) {
	if err := s.svc.AddVariant(ctx, v); err != nil {
		return nil, rpcError(err)
	}
	return &common.EmptyResult{}, nil
}

type markConversionParams struct {
	ContentID string                     `json:"content_id"`
	State     variantlib.ConversionState `json:"state"`
}

func (s *Server) contentMarkConversion(ctx context.Context, p *markConversionParams) (*common.EmptyResult, error) {
	if err := s.svc.MarkConversion(ctx, p.ContentID, p.State); err != nil {
		return nil, rpcError(err)
	}
	return &common.EmptyResult{}, nil
}

type dependencyParams struct {
	ContentID  string `json:"content_id"`
	RequiredID string `json:"required_id"`
}

func (s *Server) dependencyAdd(ctx context.Context, p *dependencyParams) (*common.EmptyResult, error) {
	if p.ContentID == "" || p.RequiredID == "" {
		return nil, &jrpc2.Error{Code: codeInvalidParams, Message: "content_id and required_id are required"}
	}
	if err := s.svc.AddDependency(ctx, p.ContentID, p.RequiredID); err != nil {
		return nil, rpcError(err)
	}
	return &common.EmptyResult{}, nil
}

func (s *Server) downloadRequest(ctx context.Context, p *common.DownloadParams) (*common.DownloadResult, error) {
	res, err := s.svc.RequestDownload(ctx, p)
	return res, rpcError(err)
}

func (s *Server) downloadStatus(_ context.Context, p *common.JobParams) (*common.JobStatusResult, error) {
	res, err := s.svc.JobStatus(p)
	return res, rpcError(err)
}

func (s *Server) downloadCancel(_ context.Context, p *common.JobParams) (*common.EmptyResult, error) {
	if err := s.svc.CancelJob(p); err != nil {
		return nil, rpcError(err)
	}
	return &common.EmptyResult{}, nil
}

func (s *Server) historyList(_ context.Context, p *common.HistoryParams) (*common.HistoryResult, error) {
	res, err := s.svc.History(p)
	return res, rpcError(err)
}

// rpcError translates domain errors into JSON-RPC errors with stable
// codes. Unknown errors pass through untouched.
func rpcError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, variantlib.ErrInvalidRequest):
		return &jrpc2.Error{Code: codeInvalidParams, Message: err.Error()}
	case errors.Is(err, variantlib.ErrContentNotFound):
		return &jrpc2.Error{Code: codeContentNotFound, Message: err.Error()}
	case errors.Is(err, variantlib.ErrNoCompatibleContent):
		return &jrpc2.Error{Code: codeNoCompatibleContent, Message: err.Error()}
	case errors.Is(err, variantlib.ErrNoFallbackAvailable):
		return &jrpc2.Error{Code: codeNoFallbackAvailable, Message: err.Error()}
	case errors.Is(err, variantlib.ErrJobNotFound):
		return &jrpc2.Error{Code: codeJobNotFound, Message: err.Error()}
	default:
		return err
	}
}
