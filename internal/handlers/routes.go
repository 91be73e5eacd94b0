package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// RegisterRoutes registers the link management API and the redirect route.
func RegisterRoutes(api huma.API, h *LinkHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/api/links",
		Summary:       "Create short URL",
		Description:   "Shortens a URL, optionally under a custom slug. Guest links expire after seven days.",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateLink)

	huma.Register(api, huma.Operation{
		OperationID: "update-link",
		Method:      http.MethodPatch,
		Path:        "/api/links/{code}",
		Summary:     "Update short URL",
		Description: "Updates the target URL, active flag, or expiry of an owned link. The code is immutable.",
		Tags:        []string{"Links"},
	}, h.UpdateLink)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-link",
		Method:        http.MethodDelete,
		Path:          "/api/links/{code}",
		Summary:       "Delete short URL",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteLink)

	huma.Register(api, huma.Operation{
		OperationID: "link-stats",
		Method:      http.MethodGet,
		Path:        "/api/links/{code}/stats",
		Summary:     "Link click statistics",
		Tags:        []string{"Links"},
	}, h.GetLinkStats)

	// The redirect is the hot path; keep it at the root.
	huma.Register(api, huma.Operation{
		OperationID: "redirect",
		Method:      http.MethodGet,
		Path:        "/{code}",
		Summary:     "Redirect to original URL",
		Tags:        []string{"Links"},
	}, h.Redirect)
}
