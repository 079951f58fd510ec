package imagehandler

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/PrzemekMalak/serverless-image-handler/event"
)

// Server exposes a Handler over plain HTTP for local runs.
type Server struct {
	logger  *zap.SugaredLogger
	handler *Handler

	// ALB makes requests look like they arrived through a load balancer
	// instead of the API gateway.
	ALB bool
}

func NewServer(handler *Handler, logger *zap.SugaredLogger) *Server {
	return &Server{
		logger:  logger,
		handler: handler,
	}
}

// ServeHTTP handles incoming requests.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Respond to health checks
	if r.URL.Path == "/health-check" {
		fmt.Fprint(w, "OK")
		return
	}

	// Ignore certain urls without actually parsing them
	if r.URL.Path == "/favicon.ico" || r.URL.Path == "/apple-touch-icon.png" || r.URL.Path == "/apple-touch-icon-precomposed.png" {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Not found")
		return
	}

	WithLogging(http.HandlerFunc(s.serveImage), s.logger).ServeHTTP(w, r)
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request) {
	resp, err := s.handler.Handle(r.Context(), s.eventFromRequest(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := WriteResponse(w, resp); err != nil {
		s.logger.Warnw("Could not write response",
			"error", err.Error(),
		)
	}
}

func (s *Server) eventFromRequest(r *http.Request) event.Event {
	ev := event.Event{
		HTTPMethod:                      r.Method,
		Path:                            r.URL.Path,
		QueryStringParameters:           make(map[string]string),
		MultiValueQueryStringParameters: make(map[string][]string),
		Headers:                         make(map[string]string),
		RequestContext: event.RequestContext{
			RequestID: uuid.NewString(),
			Stage:     "local",
		},
	}
	for k, vs := range r.URL.Query() {
		ev.QueryStringParameters[k] = vs[len(vs)-1]
		ev.MultiValueQueryStringParameters[k] = vs
	}
	for k := range r.Header {
		ev.Headers[k] = r.Header.Get(k)
	}
	if s.ALB {
		ev.RequestContext.ELB = &events.ELBContext{TargetGroupArn: "local"}
	}
	return ev
}

// WriteResponse writes resp to w, decoding base64 bodies.
func WriteResponse(w http.ResponseWriter, resp *event.Response) error {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		var err error
		body, err = base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			http.Error(w, "undecodable response body", http.StatusInternalServerError)
			return fmt.Errorf("decoding response body: %w", err)
		}
	}

	w.WriteHeader(resp.StatusCode)
	_, err := w.Write(body)
	return err
}
