// Package event holds the request and response shapes exchanged with the
// Lambda runtime, whether the function sits behind API Gateway or an
// Application Load Balancer.
package event

import (
	"net/url"

	"github.com/aws/aws-lambda-go/events"
)

// Event is an inbound proxy event. API Gateway and ALB target group events
// share this shape; only the request context tells them apart.
type Event struct {
	HTTPMethod                      string              `json:"httpMethod"`
	Path                            string              `json:"path"`
	QueryStringParameters           map[string]string   `json:"queryStringParameters,omitempty"`
	MultiValueQueryStringParameters map[string][]string `json:"multiValueQueryStringParameters,omitempty"`
	Headers                         map[string]string   `json:"headers,omitempty"`
	RequestContext                  RequestContext      `json:"requestContext"`
}

// RequestContext carries ingress metadata. ELB is only set for events
// delivered by a load balancer.
type RequestContext struct {
	RequestID string             `json:"requestId,omitempty"`
	Stage     string             `json:"stage,omitempty"`
	ELB       *events.ELBContext `json:"elb,omitempty"`
}

// IsALB reports whether the event came through an Application Load Balancer.
func (e Event) IsALB() bool {
	return e.RequestContext.ELB != nil
}

// Query merges single and multi value query parameters. Multi value
// parameters win when a key is present in both.
func (e Event) Query() url.Values {
	values := make(url.Values, len(e.QueryStringParameters)+len(e.MultiValueQueryStringParameters))
	for k, v := range e.QueryStringParameters {
		values.Set(k, v)
	}
	for k, vs := range e.MultiValueQueryStringParameters {
		values[k] = append([]string(nil), vs...)
	}
	return values
}

// Response is returned to the runtime, which turns it into an HTTP response.
type Response struct {
	StatusCode      int               `json:"statusCode"`
	IsBase64Encoded bool              `json:"isBase64Encoded"`
	Headers         map[string]string `json:"headers"`
	Body            string            `json:"body"`
}
