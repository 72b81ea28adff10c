package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kasuganosora/statsgate/pkg/export"
	"github.com/kasuganosora/statsgate/pkg/resolver"
	"github.com/kasuganosora/statsgate/pkg/resource/domain"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DashboardHandler serves GET|POST /api/v1/dashboard
type DashboardHandler struct {
	resolver resolver.Resolver
	logger   *zap.Logger
	now      func() time.Time
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(res resolver.Resolver, logger *zap.Logger) *DashboardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardHandler{resolver: res, logger: logger, now: time.Now}
}

// ServeHTTP resolves the request. A caller input error answers 400, every other outcome 200.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		req resolver.Request
		err error
	)
	switch r.Method {
	case http.MethodGet:
		req, err = ParseQuery(r.URL.Query())
	case http.MethodPost:
		req, err = decodeBody(r.Body)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error: "method not allowed",
			Code:  http.StatusMethodNotAllowed,
		})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, resolver.RejectedResponse(err, h.now()))
		return
	}

	env := h.resolver.Resolve(r.Context(), req)
	resp := env.Response()

	status := http.StatusOK
	if env.Visited(resolver.StateRejected) {
		status = http.StatusBadRequest
	}

	if status == http.StatusOK && strings.EqualFold(r.URL.Query().Get("format"), "xlsx") {
		w.Header().Set("Content-Type", contentTypeXLSX)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s-%s.xlsx"`, env.Action, env.RequestID))
		if err := export.Write(w, resp); err != nil {
			h.logger.Error("xlsx export failed", zap.String("request_id", env.RequestID), zap.Error(err))
		}
		return
	}

	writeJSON(w, status, resp)
}

// ParseQuery reads a dashboard request from URL query parameters.
func ParseQuery(q url.Values) (resolver.Request, error) {
	req := resolver.Request{
		Action: q.Get("action"),
		Search: q.Get("search"),
	}
	var err error
	if req.Page, err = intParam(q, "page"); err != nil {
		return resolver.Request{}, err
	}
	if req.PageSize, err = intParam(q, "page_size"); err != nil {
		return resolver.Request{}, err
	}
	return req, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewErrCallerInput(name, "must be an integer")
	}
	return n, nil
}

func decodeBody(body io.Reader) (resolver.Request, error) {
	var req resolver.Request
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		return resolver.Request{}, domain.NewErrCallerInput("", "invalid request body: "+err.Error())
	}
	return req, nil
}
