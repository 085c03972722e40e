package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/site-backend/internal/domain"
)

//
// Service contracts
//

// StatusService records and lists status checks.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type StatusService interface {
	// Create persists a status check for clientName and returns the stored row.
	Create(ctx context.Context, clientName string) (*domain.StatusCheck, error)
	// List returns every stored status check.
	List(ctx context.Context) ([]domain.StatusCheck, error)
}

// Catalog is the read-only set of advertised services.
type Catalog interface {
	ListSummaries() []domain.ServiceSummary
	Get(id string) (domain.ServiceRecord, error)
}

// ContactService validates contact submissions and notifies the operator.
type ContactService interface {
	// Prepare normalizes a submission and rejects blank or malformed fields.
	Prepare(sub domain.ContactSubmission) (domain.ContactSubmission, error)
	// Notify delivers the notification once and reports whether it succeeded.
	Notify(ctx context.Context, sub domain.ContactSubmission) bool
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for health, status checks, the service
// catalog, and the contact form.
type Handlers struct {
	statusSvc  StatusService
	catalog    Catalog
	contactSvc ContactService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(statusSvc StatusService, catalog Catalog, contactSvc ContactService) *Handlers {
	return &Handlers{statusSvc: statusSvc, catalog: catalog, contactSvc: contactSvc}
}

// Binding errors name the JSON field, not the Go one.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	}
}

// bindError turns a ShouldBindJSON error into a client-facing message.
func bindError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", fe.Field())
		case "email":
			return fmt.Sprintf("%s must be a valid email address", fe.Field())
		default:
			return fmt.Sprintf("%s is invalid", fe.Field())
		}
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("%s must be a %s", typeErr.Field, typeErr.Type)
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return "request body too large"
	}
	return "invalid JSON body"
}

// HealthResponse is returned by the liveness probe.
type HealthResponse struct {
	Status string `json:"status" example:"healthy"`
}

// Health godoc
// @ID          health
// @Summary     Liveness probe
// @Description Always succeeds while the process is serving requests.
// @Tags        Health
// @Produce     json
// @Success     200  {object}  handlers.HealthResponse
// @Router      /health [get]
func (h *Handlers) Health(c *gin.Context) {
	ok(c, http.StatusOK, HealthResponse{Status: "healthy"})
}
