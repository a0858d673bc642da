// Package network provides commands and events of the CDP Network domain.
package network

import (
	"context"
	"encoding/base64"

	"github.com/grantcarthew/cdpsession/internal/cdp"
)

// Command method names.
const (
	CommandEnable              = "Network.enable"
	CommandDisable             = "Network.disable"
	CommandGetResponseBody     = "Network.getResponseBody"
	CommandSetExtraHTTPHeaders = "Network.setExtraHTTPHeaders"
)

// Event types.
const (
	EventRequestWillBeSent cdp.EventType = "Network.requestWillBeSent"
	EventResponseReceived  cdp.EventType = "Network.responseReceived"
	EventLoadingFinished   cdp.EventType = "Network.loadingFinished"
	EventLoadingFailed     cdp.EventType = "Network.loadingFailed"
	EventDataReceived      cdp.EventType = "Network.dataReceived"
)

// RequestID is a unique request identifier.
type RequestID string

// Headers are request or response headers.
type Headers map[string]any

// Request holds HTTP request data.
type Request struct {
	URL      string  `json:"url"`
	Method   string  `json:"method"`
	Headers  Headers `json:"headers"`
	PostData string  `json:"postData,omitempty"`
}

// Response holds HTTP response data.
type Response struct {
	URL        string  `json:"url"`
	Status     int     `json:"status"`
	StatusText string  `json:"statusText"`
	Headers    Headers `json:"headers"`
	MimeType   string  `json:"mimeType"`
	RemoteIP   string  `json:"remoteIPAddress,omitempty"`
}

// RequestWillBeSent is sent when a page is about to send an HTTP request.
type RequestWillBeSent struct {
	RequestID   RequestID `json:"requestId"`
	LoaderID    string    `json:"loaderId"`
	DocumentURL string    `json:"documentURL"`
	Request     Request   `json:"request"`
	Timestamp   float64   `json:"timestamp"`
	Type        string    `json:"type,omitempty"`
}

// ResponseReceived is sent when an HTTP response is available.
type ResponseReceived struct {
	RequestID RequestID `json:"requestId"`
	LoaderID  string    `json:"loaderId"`
	Timestamp float64   `json:"timestamp"`
	Type      string    `json:"type"`
	Response  Response  `json:"response"`
}

// LoadingFinished is sent when an HTTP request has finished loading.
type LoadingFinished struct {
	RequestID         RequestID `json:"requestId"`
	Timestamp         float64   `json:"timestamp"`
	EncodedDataLength float64   `json:"encodedDataLength"`
}

// LoadingFailed is sent when an HTTP request has failed to load.
type LoadingFailed struct {
	RequestID RequestID `json:"requestId"`
	Timestamp float64   `json:"timestamp"`
	Type      string    `json:"type"`
	ErrorText string    `json:"errorText"`
	Canceled  bool      `json:"canceled,omitempty"`
}

// DataReceived is sent when a data chunk was received over the network.
type DataReceived struct {
	RequestID         RequestID `json:"requestId"`
	Timestamp         float64   `json:"timestamp"`
	DataLength        int       `json:"dataLength"`
	EncodedDataLength int       `json:"encodedDataLength"`
}

// Events returns the descriptors of every Network event.
func Events() []cdp.EventDescriptor {
	return []cdp.EventDescriptor{
		cdp.Describe[RequestWillBeSent](EventRequestWillBeSent),
		cdp.Describe[ResponseReceived](EventResponseReceived),
		cdp.Describe[LoadingFinished](EventLoadingFinished),
		cdp.Describe[LoadingFailed](EventLoadingFailed),
		cdp.Describe[DataReceived](EventDataReceived),
	}
}

// GetResponseBodyResult is the result of Network.getResponseBody.
type GetResponseBodyResult struct {
	Body          string `json:"body"`
	Base64Encoded bool   `json:"base64Encoded"`
}

// Bytes returns the body, decoding it when the browser sent it as base64.
func (r GetResponseBodyResult) Bytes() ([]byte, error) {
	if r.Base64Encoded {
		return base64.StdEncoding.DecodeString(r.Body)
	}
	return []byte(r.Body), nil
}

// Enable enables network tracking.
func Enable() cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandEnable)
}

// Disable disables network tracking.
func Disable() cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandDisable)
}

// GetResponseBody returns the body of the response to the given request.
func GetResponseBody(requestID RequestID) cdp.Command[GetResponseBodyResult] {
	return cdp.NewCommand[GetResponseBodyResult](CommandGetResponseBody).With("requestId", requestID)
}

// SetExtraHTTPHeaders sends extra headers with every request.
func SetExtraHTTPHeaders(headers Headers) cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandSetExtraHTTPHeaders).With("headers", headers)
}

// Domain is a borrowed handle for issuing Network commands on a session.
type Domain struct {
	s         *cdp.Session
	sessionID string
}

// Use returns the Network handle for s.
func Use(s *cdp.Session) Domain {
	return Domain{s: s}
}

// In targets a flat-mode child session.
func (d Domain) In(sessionID string) Domain {
	d.sessionID = sessionID
	return d
}

// Enable enables network tracking.
func (d Domain) Enable(ctx context.Context) error {
	_, err := cdp.Send(ctx, d.s, Enable().InSession(d.sessionID))
	return err
}

// Disable disables network tracking.
func (d Domain) Disable(ctx context.Context) error {
	_, err := cdp.Send(ctx, d.s, Disable().InSession(d.sessionID))
	return err
}

// GetResponseBody returns the body of a finished response.
func (d Domain) GetResponseBody(ctx context.Context, requestID RequestID) (GetResponseBodyResult, error) {
	return cdp.Send(ctx, d.s, GetResponseBody(requestID).InSession(d.sessionID))
}

// SetExtraHTTPHeaders sends headers with every subsequent request.
func (d Domain) SetExtraHTTPHeaders(ctx context.Context, headers Headers) error {
	_, err := cdp.Send(ctx, d.s, SetExtraHTTPHeaders(headers).InSession(d.sessionID))
	return err
}
