// Package runtime provides commands and events of the CDP Runtime domain.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/grantcarthew/cdpsession/internal/cdp"
)

// Command method names.
const (
	CommandEnable         = "Runtime.enable"
	CommandDisable        = "Runtime.disable"
	CommandEvaluate       = "Runtime.evaluate"
	CommandCallFunctionOn = "Runtime.callFunctionOn"
	CommandReleaseObject  = "Runtime.releaseObject"
)

// Event types.
const (
	EventConsoleAPICalled         cdp.EventType = "Runtime.consoleAPICalled"
	EventExceptionThrown          cdp.EventType = "Runtime.exceptionThrown"
	EventExceptionRevoked         cdp.EventType = "Runtime.exceptionRevoked"
	EventExecutionContextCreated  cdp.EventType = "Runtime.executionContextCreated"
	EventExecutionContextsCleared cdp.EventType = "Runtime.executionContextsCleared"
)

// RemoteObjectID identifies a remote object.
type RemoteObjectID string

// ExecutionContextID identifies an execution context.
type ExecutionContextID int

// RemoteObject is a mirror object referencing an original JavaScript object.
type RemoteObject struct {
	Type                string          `json:"type"`
	Subtype             string          `json:"subtype,omitempty"`
	ClassName           string          `json:"className,omitempty"`
	Value               json.RawMessage `json:"value,omitempty"`
	UnserializableValue string          `json:"unserializableValue,omitempty"`
	Description         string          `json:"description,omitempty"`
	ObjectID            RemoteObjectID  `json:"objectId,omitempty"`
}

// CallArgument is an argument to Runtime.callFunctionOn. Exactly one of the
// fields should be set; unset fields are omitted.
type CallArgument struct {
	Value               any            `json:"value,omitempty"`
	UnserializableValue string         `json:"unserializableValue,omitempty"`
	ObjectID            RemoteObjectID `json:"objectId,omitempty"`
}

// ExceptionDetails describes an exception or compile error.
type ExceptionDetails struct {
	ExceptionID        int                `json:"exceptionId"`
	Text               string             `json:"text"`
	LineNumber         int                `json:"lineNumber"`
	ColumnNumber       int                `json:"columnNumber"`
	URL                string             `json:"url,omitempty"`
	Exception          *RemoteObject      `json:"exception,omitempty"`
	ExecutionContextID ExecutionContextID `json:"executionContextId,omitempty"`
}

// Error implements the error interface.
func (e *ExceptionDetails) Error() string {
	if e.Exception != nil && e.Exception.Description != "" {
		return e.Exception.Description
	}
	return fmt.Sprintf("%s (line %d, column %d)", e.Text, e.LineNumber, e.ColumnNumber)
}

// ExecutionContextDescription describes an execution context.
type ExecutionContextDescription struct {
	ID       ExecutionContextID `json:"id"`
	Origin   string             `json:"origin"`
	Name     string             `json:"name"`
	UniqueID string             `json:"uniqueId,omitempty"`
}

// ConsoleAPICalled is sent when a console API is called.
type ConsoleAPICalled struct {
	Type               string             `json:"type"`
	Args               []RemoteObject     `json:"args"`
	ExecutionContextID ExecutionContextID `json:"executionContextId"`
	Timestamp          float64            `json:"timestamp"`
	Context            string             `json:"context,omitempty"`
}

// ExceptionThrown is sent when an exception was thrown and unhandled.
type ExceptionThrown struct {
	Timestamp        float64          `json:"timestamp"`
	ExceptionDetails ExceptionDetails `json:"exceptionDetails"`
}

// ExceptionRevoked is sent when an unhandled exception was revoked.
type ExceptionRevoked struct {
	Reason      string `json:"reason"`
	ExceptionID int    `json:"exceptionId"`
}

// ExecutionContextCreated is sent when a new execution context is created.
type ExecutionContextCreated struct {
	Context ExecutionContextDescription `json:"context"`
}

// ExecutionContextsCleared is sent when all execution contexts were cleared.
type ExecutionContextsCleared struct{}

// Events returns the descriptors of every Runtime event.
func Events() []cdp.EventDescriptor {
	return []cdp.EventDescriptor{
		cdp.Describe[ConsoleAPICalled](EventConsoleAPICalled),
		cdp.Describe[ExceptionThrown](EventExceptionThrown),
		cdp.Describe[ExceptionRevoked](EventExceptionRevoked),
		cdp.Describe[ExecutionContextCreated](EventExecutionContextCreated),
		cdp.Describe[ExecutionContextsCleared](EventExecutionContextsCleared),
	}
}

// EvaluateResult is the result of Runtime.evaluate and Runtime.callFunctionOn.
type EvaluateResult struct {
	Result           RemoteObject      `json:"result"`
	ExceptionDetails *ExceptionDetails `json:"exceptionDetails,omitempty"`
}

// Enable enables reporting of execution contexts and console events.
func Enable() cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandEnable)
}

// Disable disables reporting of execution contexts.
func Disable() cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandDisable)
}

// EvaluateParams are the parameters of Runtime.evaluate. Nil fields are omitted.
type EvaluateParams struct {
	Expression            string
	ObjectGroup           *string
	IncludeCommandLineAPI *bool
	Silent                *bool
	ContextID             *ExecutionContextID
	ReturnByValue         *bool
	AwaitPromise          *bool
	UserGesture           *bool
}

// Command builds the Runtime.evaluate command.
func (p EvaluateParams) Command() cdp.Command[EvaluateResult] {
	return cdp.NewCommand[EvaluateResult](CommandEvaluate).
		With("expression", p.Expression).
		With("objectGroup", p.ObjectGroup).
		With("includeCommandLineAPI", p.IncludeCommandLineAPI).
		With("silent", p.Silent).
		With("contextId", p.ContextID).
		With("returnByValue", p.ReturnByValue).
		With("awaitPromise", p.AwaitPromise).
		With("userGesture", p.UserGesture)
}

// Evaluate evaluates expression in the global object.
func Evaluate(expression string) cdp.Command[EvaluateResult] {
	return EvaluateParams{Expression: expression}.Command()
}

// CallFunctionOn calls a function declaration with the given object as this.
func CallFunctionOn(functionDeclaration string, objectID RemoteObjectID, args []CallArgument, returnByValue bool) cdp.Command[EvaluateResult] {
	return cdp.NewCommand[EvaluateResult](CommandCallFunctionOn).
		With("functionDeclaration", functionDeclaration).
		With("objectId", objectID).
		With("arguments", args).
		With("returnByValue", returnByValue)
}

// ReleaseObject releases a remote object.
func ReleaseObject(objectID RemoteObjectID) cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandReleaseObject).With("objectId", objectID)
}

// Domain is a borrowed handle for issuing Runtime commands on a session.
type Domain struct {
	s         *cdp.Session
	sessionID string
}

// Use returns the Runtime handle for s.
func Use(s *cdp.Session) Domain {
	return Domain{s: s}
}

// In targets a flat-mode child session.
func (d Domain) In(sessionID string) Domain {
	d.sessionID = sessionID
	return d
}

// Enable enables runtime notifications.
func (d Domain) Enable(ctx context.Context) error {
	_, err := cdp.Send(ctx, d.s, Enable().InSession(d.sessionID))
	return err
}

// Evaluate evaluates expression, awaiting promises and returning by value.
// A thrown exception is returned as *ExceptionDetails.
func (d Domain) Evaluate(ctx context.Context, expression string) (RemoteObject, error) {
	yes := true
	cmd := EvaluateParams{
		Expression:    expression,
		ReturnByValue: &yes,
		AwaitPromise:  &yes,
	}.Command().InSession(d.sessionID)

	res, err := cdp.Send(ctx, d.s, cmd)
	if err != nil {
		return RemoteObject{}, err
	}
	if res.ExceptionDetails != nil {
		return res.Result, res.ExceptionDetails
	}
	return res.Result, nil
}
