// Package page provides commands and events of the CDP Page domain.
package page

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/grantcarthew/cdpsession/internal/cdp"
)

// Command method names.
const (
	CommandEnable            = "Page.enable"
	CommandDisable           = "Page.disable"
	CommandNavigate          = "Page.navigate"
	CommandReload            = "Page.reload"
	CommandCaptureScreenshot = "Page.captureScreenshot"
	CommandPrintToPDF        = "Page.printToPDF"
	CommandGetFrameTree      = "Page.getFrameTree"
)

// Event types.
const (
	EventDomContentEventFired    cdp.EventType = "Page.domContentEventFired"
	EventLoadEventFired          cdp.EventType = "Page.loadEventFired"
	EventFrameNavigated          cdp.EventType = "Page.frameNavigated"
	EventFrameStartedLoading     cdp.EventType = "Page.frameStartedLoading"
	EventFrameStoppedLoading     cdp.EventType = "Page.frameStoppedLoading"
	EventJavascriptDialogOpening cdp.EventType = "Page.javascriptDialogOpening"
	EventLifecycleEvent          cdp.EventType = "Page.lifecycleEvent"
)

// FrameID is a unique frame identifier.
type FrameID string

// Frame describes a frame in the page.
type Frame struct {
	ID             FrameID `json:"id"`
	ParentID       FrameID `json:"parentId,omitempty"`
	LoaderID       string  `json:"loaderId"`
	Name           string  `json:"name,omitempty"`
	URL            string  `json:"url"`
	SecurityOrigin string  `json:"securityOrigin,omitempty"`
	MimeType       string  `json:"mimeType,omitempty"`
}

// FrameTree is a frame and its children.
type FrameTree struct {
	Frame       Frame       `json:"frame"`
	ChildFrames []FrameTree `json:"childFrames,omitempty"`
}

// DomContentEventFired is sent when the DOMContentLoaded event fires.
type DomContentEventFired struct {
	Timestamp float64 `json:"timestamp"`
}

// LoadEventFired is sent when the load event fires.
type LoadEventFired struct {
	Timestamp float64 `json:"timestamp"`
}

// FrameNavigated is sent once a frame navigation has committed.
type FrameNavigated struct {
	Frame Frame  `json:"frame"`
	Type  string `json:"type,omitempty"`
}

// FrameStartedLoading is sent when a frame starts loading.
type FrameStartedLoading struct {
	FrameID FrameID `json:"frameId"`
}

// FrameStoppedLoading is sent when a frame stops loading.
type FrameStoppedLoading struct {
	FrameID FrameID `json:"frameId"`
}

// JavascriptDialogOpening is sent when a JavaScript dialog is about to open.
type JavascriptDialogOpening struct {
	URL               string `json:"url"`
	Message           string `json:"message"`
	Type              string `json:"type"`
	HasBrowserHandler bool   `json:"hasBrowserHandler"`
	DefaultPrompt     string `json:"defaultPrompt,omitempty"`
}

// EventLifecycleEvent reports lifecycle milestones for a frame.
type LifecycleEvent struct {
	FrameID   FrameID `json:"frameId"`
	LoaderID  string  `json:"loaderId"`
	Name      string  `json:"name"`
	Timestamp float64 `json:"timestamp"`
}

// Events returns the descriptors of every Page event.
func Events() []cdp.EventDescriptor {
	return []cdp.EventDescriptor{
		cdp.Describe[DomContentEventFired](EventDomContentEventFired),
		cdp.Describe[LoadEventFired](EventLoadEventFired),
		cdp.Describe[FrameNavigated](EventFrameNavigated),
		cdp.Describe[FrameStartedLoading](EventFrameStartedLoading),
		cdp.Describe[FrameStoppedLoading](EventFrameStoppedLoading),
		cdp.Describe[JavascriptDialogOpening](EventJavascriptDialogOpening),
		cdp.Describe[LifecycleEvent](EventLifecycleEvent),
	}
}

// NavigateResult is the result of Page.navigate.
type NavigateResult struct {
	FrameID   FrameID `json:"frameId"`
	LoaderID  string  `json:"loaderId,omitempty"`
	ErrorText string  `json:"errorText,omitempty"`
}

// PrintToPDFResult is the result of Page.printToPDF.
type PrintToPDFResult struct {
	Data   string `json:"data"`
	Stream string `json:"stream,omitempty"`
}

// Enable enables page domain notifications.
func Enable() cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandEnable)
}

// Disable disables page domain notifications.
func Disable() cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandDisable)
}

// NavigateParams are the parameters of Page.navigate. Nil fields are omitted.
type NavigateParams struct {
	URL            string
	Referrer       *string
	TransitionType *string
	FrameID        *FrameID
}

// Command builds the Page.navigate command.
func (p NavigateParams) Command() cdp.Command[NavigateResult] {
	return cdp.NewCommand[NavigateResult](CommandNavigate).
		With("url", p.URL).
		With("referrer", p.Referrer).
		With("transitionType", p.TransitionType).
		With("frameId", p.FrameID)
}

// Navigate navigates the page to url.
func Navigate(url string) cdp.Command[NavigateResult] {
	return NavigateParams{URL: url}.Command()
}

// Reload reloads the page, optionally bypassing the cache.
func Reload(ignoreCache *bool) cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandReload).With("ignoreCache", ignoreCache)
}

// CaptureScreenshot captures the viewport. Format is "png", "jpeg" or "webp";
// quality applies to jpeg and webp only. The result is base64 image data.
func CaptureScreenshot(format string, quality *int) cdp.Command[string] {
	return cdp.NewCommand[string](CommandCaptureScreenshot).
		With("format", format).
		With("quality", quality)
}

// PrintToPDF prints the page as PDF with default options.
func PrintToPDF() cdp.Command[PrintToPDFResult] {
	return cdp.NewCommand[PrintToPDFResult](CommandPrintToPDF)
}

// GetFrameTree returns the frame tree of the page.
func GetFrameTree() cdp.Command[FrameTree] {
	return cdp.NewCommand[FrameTree](CommandGetFrameTree)
}

// Domain is a borrowed handle for issuing Page commands on a session.
type Domain struct {
	s         *cdp.Session
	sessionID string
}

// Use returns the Page handle for s.
func Use(s *cdp.Session) Domain {
	return Domain{s: s}
}

// In targets a flat-mode child session.
func (d Domain) In(sessionID string) Domain {
	d.sessionID = sessionID
	return d
}

// Enable enables page domain notifications.
func (d Domain) Enable(ctx context.Context) error {
	_, err := cdp.Send(ctx, d.s, Enable().InSession(d.sessionID))
	return err
}

// Navigate navigates to url. A navigation the browser rejects is returned as
// an error carrying the browser's error text.
func (d Domain) Navigate(ctx context.Context, url string) (NavigateResult, error) {
	res, err := cdp.Send(ctx, d.s, Navigate(url).InSession(d.sessionID))
	if err != nil {
		return res, err
	}
	if res.ErrorText != "" {
		return res, fmt.Errorf("navigate %s: %s", url, res.ErrorText)
	}
	return res, nil
}

// Reload reloads the page.
func (d Domain) Reload(ctx context.Context, ignoreCache bool) error {
	_, err := cdp.Send(ctx, d.s, Reload(&ignoreCache).InSession(d.sessionID))
	return err
}

// CaptureScreenshot captures the viewport and returns decoded image bytes.
func (d Domain) CaptureScreenshot(ctx context.Context, format string) ([]byte, error) {
	data, err := cdp.Send(ctx, d.s, CaptureScreenshot(format, nil).InSession(d.sessionID))
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(data)
}

// PrintToPDF prints the page and returns decoded PDF bytes.
func (d Domain) PrintToPDF(ctx context.Context) ([]byte, error) {
	res, err := cdp.Send(ctx, d.s, PrintToPDF().InSession(d.sessionID))
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(res.Data)
}
