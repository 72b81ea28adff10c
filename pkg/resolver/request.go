package resolver

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/unicode/norm"

	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

// Paging limits applied when a request omits or exceeds them.
const (
	DefaultPageSize = 50
	DefaultMaxPage  = 500
)

// Request is an inbound dashboard request.
type Request struct {
	Action   string `json:"action" validate:"required,max=64,printascii"`
	Search   string `json:"search,omitempty" validate:"max=200"`
	Page     int    `json:"page,omitempty" validate:"gte=0,lte=1000000"`
	PageSize int    `json:"page_size,omitempty" validate:"gte=0"`
}

var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	requestValidate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Limits bounds paging.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

func (l Limits) withDefaults() Limits {
	if l.DefaultPageSize <= 0 {
		l.DefaultPageSize = DefaultPageSize
	}
	if l.MaxPageSize <= 0 {
		l.MaxPageSize = DefaultMaxPage
	}
	if l.DefaultPageSize > l.MaxPageSize {
		l.DefaultPageSize = l.MaxPageSize
	}
	return l
}

// Normalize returns the canonical request: the action is lower-cased, the
// search text is NFKC-normalised and trimmed, and paging gets defaults.
// Invalid input is reported as *domain.ErrCallerInput.
func (r Request) Normalize(limits Limits) (Request, error) {
	limits = limits.withDefaults()

	out := Request{
		Action:   strings.ToLower(strings.TrimSpace(r.Action)),
		Search:   strings.TrimSpace(norm.NFKC.String(r.Search)),
		Page:     r.Page,
		PageSize: r.PageSize,
	}

	if err := requestValidate.Struct(out); err != nil {
		return Request{}, callerError(err)
	}

	if out.Page == 0 {
		out.Page = 1
	}
	if out.PageSize == 0 {
		out.PageSize = limits.DefaultPageSize
	}
	if out.PageSize > limits.MaxPageSize {
		out.PageSize = limits.MaxPageSize
	}
	return out, nil
}

// Filters returns the request filters.
func (r Request) Filters() domain.Filters {
	return domain.Filters{Search: r.Search, Page: r.Page, PageSize: r.PageSize}
}

func callerError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.NewErrCallerInput(fe.Field(), describe(fe))
	}
	return domain.NewErrCallerInput("", err.Error())
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "printascii":
		return "must be printable ASCII"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
