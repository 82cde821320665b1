// Package icress talks to the UiTM iCress class timetable portal and turns
// its responses into structured records. The portal has no API contract:
// two routes answer with rendered markup, one with JSON, and the markup is
// not well-formed, so extraction has to stay tolerant.
package icress

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/corpix/uarand"
	domerrors "github.com/uitmtimetable/icress-linebot-go/internal/errors"
	"github.com/uitmtimetable/icress-linebot-go/internal/logger"
)

// Portal routes. RouteCourseSearch and RouteTimetable answer with rendered
// markup; RouteSelect answers with JSON.
const (
	RouteSelect       = "cfc/select.cfc"
	RouteCourseSearch = "index_result.cfm"
	RouteTimetable    = "index_tt.cfm"
)

// Directory lookup methods for RouteSelect.
const (
	methodFindCampuses  = "find_cam_icress_student"
	methodFindFaculties = "find_fac_icress_student"
)

// markupRoutes answer with rendered HTML instead of JSON.
var markupRoutes = map[string]bool{
	RouteCourseSearch: true,
	RouteTimetable:    true,
}

// whitespaceRuns collapses newlines, tabs and repeated spaces. The raw markup
// is not well-formed and downstream extraction is whitespace-sensitive.
var whitespaceRuns = regexp.MustCompile(`[\r\n\t ]+`)

// Client issues requests to the iCress portal.
type Client struct {
	httpClient *http.Client
	baseURL    string
	refererURL string
	log        *logger.Logger
	recorder   RequestRecorder
}

// RequestRecorder receives one observation per portal request.
// Implemented by the metrics package; nil disables recording.
type RequestRecorder interface {
	RecordPortalRequest(route string, status string, duration time.Duration)
}

// NewClient creates a portal client. baseURL must end with a trailing slash.
// timeout bounds every request; transport failures and timeouts surface as
// errors.ErrConnectivity.
func NewClient(baseURL, refererURL string, timeout time.Duration, log *logger.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:    baseURL,
		refererURL: refererURL,
		log:        log.WithModule("icress"),
	}
}

// SetRecorder attaches a request recorder. Safe to leave unset.
func (c *Client) SetRecorder(r RequestRecorder) {
	c.recorder = r
}

// FetchCampuses retrieves the campus directory as raw JSON.
func (c *Client) FetchCampuses(ctx context.Context) (int, string, error) {
	return c.get(ctx, RouteSelect, url.Values{
		"method": {methodFindCampuses},
		"key":    {"All"},
		"page":   {"30"},
	}, nil)
}

// FetchFaculties retrieves the faculty directory as raw JSON.
// Faculties are campus-independent; only the Selangor campus uses them.
func (c *Client) FetchFaculties(ctx context.Context) (int, string, error) {
	return c.get(ctx, RouteSelect, url.Values{
		"method": {methodFindFaculties},
		"key":    {"All"},
		"page":   {"30"},
	}, nil)
}

// SearchCourses retrieves the course search result page for a campus (and
// optional faculty) as normalized markup. The portal rejects this route
// without the Referer header.
func (c *Client) SearchCourses(ctx context.Context, campusID, facultyID string) (int, string, error) {
	return c.post(ctx, RouteCourseSearch, url.Values{
		"search_campus":  {campusID},
		"search_faculty": {facultyID},
		"search_course":  {""},
	}, map[string]string{"Referer": c.refererURL})
}

// FetchTimetable retrieves the timetable page for a course as normalized
// markup. id1 and id2 come from the course's search result URL.
func (c *Client) FetchTimetable(ctx context.Context, id1, id2 string) (int, string, error) {
	return c.get(ctx, RouteTimetable, url.Values{
		"id1": {id1},
		"id2": {id2},
	}, nil)
}

func (c *Client) get(ctx context.Context, route string, params url.Values, headers map[string]string) (int, string, error) {
	return c.request(ctx, http.MethodGet, route, params, headers)
}

func (c *Client) post(ctx context.Context, route string, params url.Values, headers map[string]string) (int, string, error) {
	return c.request(ctx, http.MethodPost, route, params, headers)
}

// request performs one portal call. JSON routes return the body verbatim;
// markup routes return the body with whitespace runs collapsed to single
// spaces and the result trimmed.
func (c *Client) request(ctx context.Context, method, route string, params url.Values, headers map[string]string) (int, string, error) {
	requestURL := c.baseURL + route

	var req *http.Request
	var err error

	switch method {
	case http.MethodGet:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, requestURL+"?"+params.Encode(), nil)
	default:
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, requestURL, strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return 0, "", domerrors.NewPortalError(route, 0, err)
	}

	req.Header.Set("User-Agent", uarand.GetRandom())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.record(route, "connectivity_error", time.Since(start))
		c.log.WithError(err).
			WithField("method", method).
			WithField("url", requestURL).
			Warn("Portal request failed")
		return 0, "", domerrors.NewPortalError(route, 0, domerrors.ErrConnectivity)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.record(route, "connectivity_error", time.Since(start))
		return 0, "", domerrors.NewPortalError(route, resp.StatusCode, domerrors.ErrConnectivity)
	}

	body := string(raw)
	if markupRoutes[route] {
		body = strings.TrimSpace(whitespaceRuns.ReplaceAllString(body, " "))
	}

	c.record(route, statusLabel(resp.StatusCode), time.Since(start))
	c.log.WithFields(map[string]any{
		"method":  method,
		"url":     requestURL,
		"headers": headers,
		"params":  params.Encode(),
		"status":  resp.StatusCode,
		"body":    body,
	}).Debug("Portal request completed")

	return resp.StatusCode, body, nil
}

func (c *Client) record(route, status string, duration time.Duration) {
	if c.recorder != nil {
		c.recorder.RecordPortalRequest(route, status, duration)
	}
}

func statusLabel(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code == http.StatusNotFound:
		return "not_found"
	default:
		return "error"
	}
}
