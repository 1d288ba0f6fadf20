package app

import (
	"context"
	"encoding/json"
	"fmt"

	"olivetrace/app/dashboard"
	"olivetrace/pkg/httperror"

	"go.uber.org/zap"
)

// TraceReportKey is where the report of one item is stored.
func TraceReportKey(itemID uint64) string {
	return fmt.Sprintf("reports/items/%d.json", itemID)
}

type TraceReportRequest struct {
	ItemID uint64 `params:"itemId" validate:"required"`
}

type ExportTraceReportResponse struct {
	Key    string                 `json:"key"`
	Report *dashboard.TraceReport `json:"report"`
}

type ExportTraceReportHandler struct {
	loader DashboardLoader
	store  ReportStore
}

func NewExportTraceReportHandler(loader DashboardLoader, store ReportStore) *ExportTraceReportHandler {
	return &ExportTraceReportHandler{
		loader: loader,
		store:  store,
	}
}

func (h ExportTraceReportHandler) Handle(ctx context.Context, req *TraceReportRequest) (*ExportTraceReportResponse, error) {
	if err := validateRequest("trace_report.create", req); err != nil {
		return nil, err
	}

	report, err := h.loader.Trace(ctx, req.ItemID)
	if err != nil {
		return nil, toHTTPError("trace_report.create", err)
	}

	body, err := json.Marshal(report)
	if err != nil {
		return nil, httperror.InternalServerError("trace_report.create.encode_failed", "Failed to encode report", err)
	}

	key := TraceReportKey(req.ItemID)
	if err := h.store.Upload(key, body); err != nil {
		return nil, httperror.InternalServerError("trace_report.create.upload_failed", "Failed to store report", err)
	}

	zap.L().Info("Trace report exported",
		zap.Uint64("itemId", req.ItemID),
		zap.String("key", key),
		zap.Int("transfers", len(report.Transfers)),
	)

	return &ExportTraceReportResponse{
		Key:    key,
		Report: report,
	}, nil
}

type GetTraceReportHandler struct {
	store ReportStore
}

func NewGetTraceReportHandler(store ReportStore) *GetTraceReportHandler {
	return &GetTraceReportHandler{
		store: store,
	}
}

func (h GetTraceReportHandler) Handle(ctx context.Context, req *TraceReportRequest) (*json.RawMessage, error) {
	if err := validateRequest("trace_report.show", req); err != nil {
		return nil, err
	}

	body, err := h.store.Download(TraceReportKey(req.ItemID))
	if err != nil {
		return nil, httperror.InternalServerError("trace_report.show.download_failed", "Failed to read report", err)
	}
	if body == nil {
		return nil, httperror.NotFound("trace_report.show.not_found", "No report has been exported for this item", nil)
	}

	raw := json.RawMessage(body)
	return &raw, nil
}
