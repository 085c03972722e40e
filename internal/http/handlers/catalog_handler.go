// Catalog HTTP handlers.
//
//   - GET /services       (summaries, catalog order)
//   - GET /services/{id}  (full record with images and reviews)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/site-backend/internal/catalog"
	"github.com/tbourn/site-backend/internal/domain"
)

// ServiceListResponse wraps the catalog summaries.
type ServiceListResponse struct {
	Services []domain.ServiceSummary `json:"services"`
}

// ServiceDetailResponse wraps one full catalog entry.
type ServiceDetailResponse struct {
	Service domain.ServiceRecord `json:"service"`
}

// ListServices godoc
// @ID          listServices
// @Summary     List services
// @Description Returns every advertised service without images or reviews.
// @Tags        Services
// @Produce     json
// @Success     200  {object}  handlers.ServiceListResponse
// @Router      /services [get]
func (h *Handlers) ListServices(c *gin.Context) {
	ok(c, http.StatusOK, ServiceListResponse{Services: h.catalog.ListSummaries()})
}

// GetService godoc
// @ID          getService
// @Summary     Get a service
// @Description Returns the full record of one service, including images and reviews.
// @Tags        Services
// @Produce     json
//
// @Param       id  path  string  true  "Service ID"  example(elektrik-ariza)
//
// @Success     200  {object}  handlers.ServiceDetailResponse
// @Failure     404  {object}  handlers.ErrorResponse  "Service not found"
// @Router      /services/{id} [get]
func (h *Handlers) GetService(c *gin.Context) {
	rec, err := h.catalog.Get(c.Param("id"))
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "Service not found")
		return
	case err != nil:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
		return
	}
	ok(c, http.StatusOK, ServiceDetailResponse{Service: rec})
}
