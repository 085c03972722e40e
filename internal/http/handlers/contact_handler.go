// Contact-form HTTP handler.
//
//   - POST /contact  (validate, answer, then notify the operator)
//
// The notification is registered as a post-response task: it starts only
// after the handler chain has finished, so mail latency never reaches the
// visitor and a mail failure is never reported back to them.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/site-backend/internal/domain"
	"github.com/tbourn/site-backend/internal/http/middleware"
	"github.com/tbourn/site-backend/internal/services"
)

// errNotificationFailed marks a failed delivery in the task metrics; the
// cause is already logged by the contact service.
var errNotificationFailed = errors.New("contact notification failed")

// ContactRequest is the JSON payload of the contact form.
type ContactRequest struct {
	Name    string `json:"name"    binding:"required"       example:"Ayşe Yılmaz"`
	Phone   string `json:"phone"   binding:"required"       example:"0555 123 45 67"`
	Email   string `json:"email"   binding:"required,email" example:"ayse@example.com"`
	Service string `json:"service" binding:"required"       example:"elektrik-ariza"`
	Message string `json:"message" binding:"required"       example:"Salondaki prizler çalışmıyor."`
}

// ContactResponse confirms that a submission was accepted.
type ContactResponse struct {
	Status  string `json:"status"  example:"success"`
	Message string `json:"message" example:"Mesajınız başarıyla alındı. En kısa sürede size dönüş yapacağız."`
}

// SubmitContact godoc
// @ID          submitContact
// @Summary     Submit the contact form
// @Description Validates the submission, answers immediately, and emails the operator after the response.
// @Description The confirmation text follows Accept-Language (Turkish by default, English supported).
// @Tags        Contact
// @Accept      json
// @Produce     json
//
// @Param       Accept-Language  header  string                   false  "Preferred response language"  example(tr)
// @Param       body             body    handlers.ContactRequest  true   "Contact form"
//
// @Success     200  {object}  handlers.ContactResponse
// @Header      200  {string}  Content-Language  "Language of the message"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     429  {object}  handlers.ErrorResponse  "Too many requests"
// @Failure     500  {object}  handlers.ErrorResponse  "Notification could not be scheduled"
// @Router      /contact [post]
func (h *Handlers) SubmitContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, bindError(err))
		return
	}

	sub, err := h.contactSvc.Prepare(domain.ContactSubmission{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Service: req.Service,
		Message: req.Message,
	})
	if err != nil {
		msg := "invalid contact submission"
		if errors.Is(err, services.ErrInvalidSubmission) {
			msg = err.Error()
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msg)
		return
	}

	svc := h.contactSvc
	err = middleware.AddTask(c, "contact_notification", func(ctx context.Context) error {
		if !svc.Notify(ctx, sub) {
			return errNotificationFailed
		}
		return nil
	})
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, ErrCodeInternal, localize(c, msgContactFailed))
		return
	}

	ok(c, http.StatusOK, ContactResponse{
		Status:  "success",
		Message: localize(c, msgContactReceived),
	})
}
