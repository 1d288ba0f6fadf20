package main

import (
	"encoding/json"

	"olivetrace/app"
	"olivetrace/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type routeHandlers struct {
	getDashboard      *app.GetDashboardHandler
	getTransfers      *app.GetTransfersHandler
	createItem        *app.CreateItemHandler
	processItem       *app.ProcessItemHandler
	exportTraceReport *app.ExportTraceReportHandler
	getTraceReport    *app.GetTraceReportHandler
	initiateTransfer  *app.InitiateTransferHandler
	acceptTransfer    *app.AcceptTransferHandler
	rejectTransfer    *app.RejectTransferHandler
	listParticipants  *app.ListParticipantsHandler
	getParticipant    *app.GetParticipantHandler
	upsertParticipant *app.UpsertParticipantHandler
}

func newRouteHandlers(repository app.Repository, writer app.LedgerWriter, loader app.DashboardLoader, sessions app.SessionTracker, reports app.ReportStore) routeHandlers {
	return routeHandlers{
		getDashboard:      app.NewGetDashboardHandler(repository, loader, sessions),
		getTransfers:      app.NewGetTransfersHandler(repository, loader),
		createItem:        app.NewCreateItemHandler(writer, loader),
		processItem:       app.NewProcessItemHandler(writer, loader),
		exportTraceReport: app.NewExportTraceReportHandler(loader, reports),
		getTraceReport:    app.NewGetTraceReportHandler(reports),
		initiateTransfer:  app.NewInitiateTransferHandler(writer, loader),
		acceptTransfer:    app.NewAcceptTransferHandler(writer, loader),
		rejectTransfer:    app.NewRejectTransferHandler(writer, loader),
		listParticipants:  app.NewListParticipantsHandler(repository),
		getParticipant:    app.NewGetParticipantHandler(repository),
		upsertParticipant: app.NewUpsertParticipantHandler(repository),
	}
}

func registerRoutes(server *fiber.App, h routeHandlers) {
	signed := middleware.NewParticipantMiddleware(true)

	routes := server.Group("/api/v1", middleware.NewParticipantMiddleware(false))

	routes.Get("/dashboards/:address", handle[app.GetDashboardRequest, app.GetDashboardResponse](h.getDashboard))
	routes.Get("/transfers/:address", handle[app.GetTransfersRequest, app.GetTransfersResponse](h.getTransfers))

	routes.Post("/items", signed, handle[app.CreateItemRequest, app.WriteResponse](h.createItem))
	routes.Post("/items/process", signed, handle[app.ProcessItemRequest, app.WriteResponse](h.processItem))
	routes.Post("/items/:itemId/report", handle[app.TraceReportRequest, app.ExportTraceReportResponse](h.exportTraceReport))
	routes.Get("/items/:itemId/report", handle[app.TraceReportRequest, json.RawMessage](h.getTraceReport))

	routes.Post("/transfers", signed, handle[app.InitiateTransferRequest, app.WriteResponse](h.initiateTransfer))
	routes.Post("/transfers/:transferId/accept", signed, handle[app.RespondTransferRequest, app.WriteResponse](h.acceptTransfer))
	routes.Post("/transfers/:transferId/reject", signed, handle[app.RespondTransferRequest, app.WriteResponse](h.rejectTransfer))

	routes.Get("/participants", handle[app.ListParticipantsRequest, app.ListParticipantsResponse](h.listParticipants))
	routes.Get("/participants/:address", handle[app.GetParticipantRequest, app.GetParticipantResponse](h.getParticipant))
	routes.Put("/participants/:address", signed, handle[app.UpsertParticipantRequest, app.UpsertParticipantResponse](h.upsertParticipant))
}
