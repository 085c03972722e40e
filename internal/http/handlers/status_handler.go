// Status-check HTTP handlers.
//
//   - POST /statuscheck  (record a connectivity ping)
//   - GET  /statuscheck  (list every recorded ping)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/site-backend/internal/services"
)

// StatusCheckCreateRequest is the JSON payload for recording a status check.
type StatusCheckCreateRequest struct {
	// ClientName identifies the caller. It must be present; any string,
	// including "", is stored verbatim.
	ClientName *string `json:"client_name" binding:"required" example:"web-frontend"`
}

// CreateStatusCheck godoc
// @ID          createStatusCheck
// @Summary     Record a status check
// @Description Stores a status check for client_name and returns the stored record.
// @Tags        StatusChecks
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.StatusCheckCreateRequest  true  "Status check payload"
//
// @Success     200  {object}  domain.StatusCheck
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /statuscheck [post]
func (h *Handlers) CreateStatusCheck(c *gin.Context) {
	var req StatusCheckCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindError(err))
		return
	}

	sc, err := h.statusSvc.Create(c.Request.Context(), *req.ClientName)
	if err != nil {
		storageFailure(c, err)
		return
	}
	ok(c, http.StatusOK, sc)
}

// ListStatusChecks godoc
// @ID          listStatusChecks
// @Summary     List status checks
// @Description Returns every stored status check, oldest first.
// @Tags        StatusChecks
// @Produce     json
// @Success     200  {array}   domain.StatusCheck
// @Failure     503  {object}  handlers.ErrorResponse  "Storage unavailable"
// @Router      /statuscheck [get]
func (h *Handlers) ListStatusChecks(c *gin.Context) {
	list, err := h.statusSvc.List(c.Request.Context())
	if err != nil {
		storageFailure(c, err)
		return
	}
	ok(c, http.StatusOK, list)
}

// storageFailure hides the driver error from the client but keeps it on the
// request for the access log.
func storageFailure(c *gin.Context, err error) {
	_ = c.Error(err)
	if errors.Is(err, services.ErrStorageUnavailable) {
		fail(c, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "storage unavailable")
		return
	}
	fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
}
