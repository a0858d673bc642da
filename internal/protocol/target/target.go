// Package target provides commands and events of the CDP Target domain.
package target

import (
	"context"

	"github.com/grantcarthew/cdpsession/internal/cdp"
)

// Command method names.
const (
	CommandGetTargets         = "Target.getTargets"
	CommandCreateTarget       = "Target.createTarget"
	CommandCloseTarget        = "Target.closeTarget"
	CommandAttachToTarget     = "Target.attachToTarget"
	CommandDetachFromTarget   = "Target.detachFromTarget"
	CommandSetDiscoverTargets = "Target.setDiscoverTargets"
)

// Event types.
const (
	EventTargetCreated      cdp.EventType = "Target.targetCreated"
	EventTargetDestroyed    cdp.EventType = "Target.targetDestroyed"
	EventTargetInfoChanged  cdp.EventType = "Target.targetInfoChanged"
	EventAttachedToTarget   cdp.EventType = "Target.attachedToTarget"
	EventDetachedFromTarget cdp.EventType = "Target.detachedFromTarget"
)

// ID is a target identifier.
type ID string

// SessionID identifies a flat-mode session attached to a target.
type SessionID string

// Info describes a target.
type Info struct {
	TargetID ID     `json:"targetId"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Attached bool   `json:"attached"`
	OpenerID ID     `json:"openerId,omitempty"`
}

// TargetCreated is sent when a possible inspection target is created.
type TargetCreated struct {
	TargetInfo Info `json:"targetInfo"`
}

// TargetDestroyed is sent when a target is destroyed.
type TargetDestroyed struct {
	TargetID ID `json:"targetId"`
}

// TargetInfoChanged is sent when a target's info changed.
type TargetInfoChanged struct {
	TargetInfo Info `json:"targetInfo"`
}

// AttachedToTarget is sent when a session is attached to a target.
type AttachedToTarget struct {
	SessionID          SessionID `json:"sessionId"`
	TargetInfo         Info      `json:"targetInfo"`
	WaitingForDebugger bool      `json:"waitingForDebugger"`
}

// DetachedFromTarget is sent when a session is detached from a target.
type DetachedFromTarget struct {
	SessionID SessionID `json:"sessionId"`
	TargetID  ID        `json:"targetId,omitempty"`
}

// Events returns the descriptors of every Target event.
func Events() []cdp.EventDescriptor {
	return []cdp.EventDescriptor{
		cdp.Describe[TargetCreated](EventTargetCreated),
		cdp.Describe[TargetDestroyed](EventTargetDestroyed),
		cdp.Describe[TargetInfoChanged](EventTargetInfoChanged),
		cdp.Describe[AttachedToTarget](EventAttachedToTarget),
		cdp.Describe[DetachedFromTarget](EventDetachedFromTarget),
	}
}

// GetTargets lists available targets.
func GetTargets() cdp.Command[[]Info] {
	return cdp.NewCommand[[]Info](CommandGetTargets)
}

// CreateTarget opens a new page at url.
func CreateTarget(url string) cdp.Command[ID] {
	return cdp.NewCommand[ID](CommandCreateTarget).With("url", url)
}

// CloseTarget closes a target.
func CloseTarget(id ID) cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandCloseTarget).With("targetId", id)
}

// AttachToTarget attaches to a target. With flatten the returned session id
// is used on this same connection.
func AttachToTarget(id ID, flatten bool) cdp.Command[SessionID] {
	return cdp.NewCommand[SessionID](CommandAttachToTarget).
		With("targetId", id).
		With("flatten", flatten)
}

// DetachFromTarget detaches a flat-mode session.
func DetachFromTarget(sessionID SessionID) cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandDetachFromTarget).With("sessionId", sessionID)
}

// SetDiscoverTargets toggles targetCreated/Destroyed/InfoChanged events.
func SetDiscoverTargets(discover bool) cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandSetDiscoverTargets).With("discover", discover)
}

// Domain is a borrowed handle for issuing Target commands on a session.
type Domain struct {
	s *cdp.Session
}

// Use returns the Target handle for s.
func Use(s *cdp.Session) Domain {
	return Domain{s: s}
}

// GetTargets lists available targets.
func (d Domain) GetTargets(ctx context.Context) ([]Info, error) {
	return cdp.Send(ctx, d.s, GetTargets())
}

// Attach attaches to a target in flat mode and returns the child session id.
func (d Domain) Attach(ctx context.Context, id ID) (SessionID, error) {
	return cdp.Send(ctx, d.s, AttachToTarget(id, true))
}

// SetDiscoverTargets toggles target discovery events.
func (d Domain) SetDiscoverTargets(ctx context.Context, discover bool) error {
	_, err := cdp.Send(ctx, d.s, SetDiscoverTargets(discover))
	return err
}
