package api

import (
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/JaimeStill/agrogestion/pkg/handlers"
	"github.com/JaimeStill/agrogestion/pkg/openapi"
	"github.com/JaimeStill/agrogestion/pkg/routes"
	"github.com/JaimeStill/agrogestion/pkg/storage"
)

// storageHandler exposes read-only blob inspection for operators.
type storageHandler struct {
	store       storage.System
	logger      *slog.Logger
	maxListSize int32
}

func newStorageHandler(store storage.System, logger *slog.Logger, maxListSize int32) *storageHandler {
	return &storageHandler{
		store:       store,
		logger:      logger.With("handler", "storage"),
		maxListSize: maxListSize,
	}
}

func (h *storageHandler) routes() routes.Group {
	keyParam := openapi.PathParam("key", "Blob key, e.g. reports/doc-123/<revision>.pdf")

	return routes.Group{
		Prefix: "/storage",
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "",
				Handler: h.list,
				OpenAPI: &openapi.Operation{
					Summary: "List blobs",
					Tags:    []string{"Storage"},
					Parameters: []*openapi.Parameter{
						openapi.QueryParam("prefix", "string", "Key prefix", false),
						openapi.QueryParam("marker", "string", "Continuation marker from a previous page", false),
						openapi.QueryParam("max_results", "integer", "Page size", false),
					},
					Responses: map[int]*openapi.Response{
						200: {Description: "Blob listing"},
						400: openapi.ResponseRef("BadRequest"),
					},
				},
			},
			{
				Method:  "GET",
				Pattern: "/download/{key...}",
				Handler: h.download,
				OpenAPI: &openapi.Operation{
					Summary:    "Download a blob",
					Tags:       []string{"Storage"},
					Parameters: []*openapi.Parameter{keyParam},
					Responses: map[int]*openapi.Response{
						200: {Description: "Blob content"},
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
			{
				Method:  "GET",
				Pattern: "/{key...}",
				Handler: h.find,
				OpenAPI: &openapi.Operation{
					Summary:    "Blob properties",
					Tags:       []string{"Storage"},
					Parameters: []*openapi.Parameter{keyParam},
					Responses: map[int]*openapi.Response{
						200: {Description: "Blob properties and metadata"},
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
		},
	}
}

func (h *storageHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	maxResults, err := storage.ParseMaxResults(q.Get("max_results"), h.maxListSize)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.store.List(r.Context(), q.Get("prefix"), q.Get("marker"), maxResults)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *storageHandler) find(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.Find(r.Context(), r.PathValue("key"))
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, info)
}

func (h *storageHandler) download(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	blob, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer blob.Body.Close()

	w.Header().Set("Content-Type", blob.ContentType)
	if blob.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.ContentLength, 10))
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, blob.Body); err != nil {
		h.logger.Warn("blob stream interrupted", "key", key, "error", err)
	}
}
