package reports

import (
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/JaimeStill/agrogestion/pkg/handlers"
	"github.com/JaimeStill/agrogestion/pkg/openapi"
	"github.com/JaimeStill/agrogestion/pkg/pagination"
	"github.com/JaimeStill/agrogestion/pkg/routes"
)

// Handler provides the read-only REST surface for reports.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler over sys.
func NewHandler(sys System, logger *slog.Logger, pagination pagination.Config) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "reports"),
		pagination: pagination,
	}
}

// Routes returns the route group for report endpoints.
func (h *Handler) Routes() routes.Group {
	idParam := openapi.PathParam("id", "Report id")

	return routes.Group{
		Prefix: "/reports",
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "",
				Handler: h.List,
				OpenAPI: &openapi.Operation{
					Summary: "List reports",
					Tags:    []string{"Reports"},
					Parameters: []*openapi.Parameter{
						openapi.QueryParam("page", "integer", "Page number (1-indexed)", false),
						openapi.QueryParam("pageSize", "integer", "Results per page", false),
						openapi.QueryParam("search", "string", "Case-insensitive id filter", false),
						openapi.QueryParam("sort", "string", "Sort fields, - for descending", false),
					},
					Responses: map[int]*openapi.Response{
						200: openapi.JSONResponse("Page of report metadata", "ReportPage"),
					},
				},
			},
			{
				Method:  "GET",
				Pattern: "/{id}",
				Handler: h.Find,
				OpenAPI: &openapi.Operation{
					Summary:    "Get report metadata",
					Tags:       []string{"Reports"},
					Parameters: []*openapi.Parameter{idParam},
					Responses: map[int]*openapi.Response{
						200: openapi.JSONResponse("Report metadata", "ReportMetadata"),
						400: openapi.ResponseRef("BadRequest"),
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
			{
				Method:  "GET",
				Pattern: "/{id}/download",
				Handler: h.Download,
				OpenAPI: &openapi.Operation{
					Summary:    "Download report payload",
					Tags:       []string{"Reports"},
					Parameters: []*openapi.Parameter{idParam},
					Responses: map[int]*openapi.Response{
						200: {Description: "Report bytes"},
						400: openapi.ResponseRef("BadRequest"),
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
		},
	}
}

// Schemas returns the OpenAPI component schemas the report routes reference.
func Schemas() map[string]*openapi.Schema {
	return map[string]*openapi.Schema{
		"ReportMetadata": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                {Type: "string"},
				"size":              {Type: "integer"},
				"contentType":       {Type: "string"},
				"pageCount":         {Type: "integer", Description: "Absent for payloads pdfcpu cannot read"},
				"hasAuxiliaryImage": {Type: "boolean"},
				"createdAt":         {Type: "string", Format: "date-time"},
				"modifiedAt":        {Type: "string", Format: "date-time"},
				"storageKey":        {Type: "string"},
			},
		},
		"ReportPage": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"data":       {Type: "array", Items: openapi.SchemaRef("ReportMetadata")},
				"total":      {Type: "integer"},
				"page":       {Type: "integer"},
				"pageSize":   {Type: "integer"},
				"totalPages": {Type: "integer"},
			},
		},
	}
}

// List returns a page of report metadata.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)

	result, err := h.sys.List(r.Context(), page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns the metadata of one report.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	m, err := h.sys.Metadata(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, m)
}

// Download streams the report payload.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	d, err := h.sys.Download(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	w.Header().Set("Content-Type", d.Metadata.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(d.PDFBuffer)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": path.Base(d.Metadata.ID) + ".pdf",
	}))
	w.WriteHeader(http.StatusOK)
	w.Write(d.PDFBuffer)
}
