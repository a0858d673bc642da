// Package dom provides commands and events of the CDP DOM domain.
package dom

import (
	"context"

	"github.com/grantcarthew/cdpsession/internal/cdp"
	"github.com/grantcarthew/cdpsession/internal/protocol/runtime"
)

// Command method names.
const (
	CommandEnable           = "DOM.enable"
	CommandGetDocument      = "DOM.getDocument"
	CommandQuerySelector    = "DOM.querySelector"
	CommandQuerySelectorAll = "DOM.querySelectorAll"
	CommandGetBoxModel      = "DOM.getBoxModel"
	CommandResolveNode      = "DOM.resolveNode"
)

// Event types.
const (
	EventDocumentUpdated   cdp.EventType = "DOM.documentUpdated"
	EventChildNodeRemoved  cdp.EventType = "DOM.childNodeRemoved"
	EventAttributeModified cdp.EventType = "DOM.attributeModified"
)

// NodeID is a unique DOM node identifier.
type NodeID int

// Node is a DOM node mirror.
type Node struct {
	NodeID         NodeID   `json:"nodeId"`
	ParentID       NodeID   `json:"parentId,omitempty"`
	BackendNodeID  int      `json:"backendNodeId"`
	NodeType       int      `json:"nodeType"`
	NodeName       string   `json:"nodeName"`
	LocalName      string   `json:"localName"`
	NodeValue      string   `json:"nodeValue"`
	ChildNodeCount int      `json:"childNodeCount,omitempty"`
	Children       []Node   `json:"children,omitempty"`
	Attributes     []string `json:"attributes,omitempty"`
	DocumentURL    string   `json:"documentURL,omitempty"`
	FrameID        string   `json:"frameId,omitempty"`
}

// Quad is four x/y points, clockwise.
type Quad []float64

// BoxModel describes the box of a node.
type BoxModel struct {
	Content Quad `json:"content"`
	Padding Quad `json:"padding"`
	Border  Quad `json:"border"`
	Margin  Quad `json:"margin"`
	Width   int  `json:"width"`
	Height  int  `json:"height"`
}

// DocumentUpdated is sent when the document has been totally updated.
type DocumentUpdated struct{}

// ChildNodeRemoved is sent when a child node was removed.
type ChildNodeRemoved struct {
	ParentNodeID NodeID `json:"parentNodeId"`
	NodeID       NodeID `json:"nodeId"`
}

// AttributeModified is sent when an element attribute was modified.
type AttributeModified struct {
	NodeID NodeID `json:"nodeId"`
	Name   string `json:"name"`
	Value  string `json:"value"`
}

// Events returns the descriptors of every DOM event.
func Events() []cdp.EventDescriptor {
	return []cdp.EventDescriptor{
		cdp.Describe[DocumentUpdated](EventDocumentUpdated),
		cdp.Describe[ChildNodeRemoved](EventChildNodeRemoved),
		cdp.Describe[AttributeModified](EventAttributeModified),
	}
}

// Enable enables DOM notifications.
func Enable() cdp.Command[cdp.Empty] {
	return cdp.NewCommand[cdp.Empty](CommandEnable)
}

// GetDocument returns the root node. Nil depth and pierce use browser defaults.
func GetDocument(depth *int, pierce *bool) cdp.Command[Node] {
	return cdp.NewCommand[Node](CommandGetDocument).
		With("depth", depth).
		With("pierce", pierce)
}

// QuerySelector returns the first node under nodeID matching selector, or 0.
func QuerySelector(nodeID NodeID, selector string) cdp.Command[NodeID] {
	return cdp.NewCommand[NodeID](CommandQuerySelector).
		With("nodeId", nodeID).
		With("selector", selector)
}

// QuerySelectorAll returns every node under nodeID matching selector.
func QuerySelectorAll(nodeID NodeID, selector string) cdp.Command[[]NodeID] {
	return cdp.NewCommand[[]NodeID](CommandQuerySelectorAll).
		With("nodeId", nodeID).
		With("selector", selector)
}

// GetBoxModel returns the box model of a node.
func GetBoxModel(nodeID NodeID) cdp.Command[BoxModel] {
	return cdp.NewCommand[BoxModel](CommandGetBoxModel).With("nodeId", nodeID)
}

// ResolveNode returns a JavaScript object wrapper for a node.
func ResolveNode(nodeID NodeID) cdp.Command[runtime.RemoteObject] {
	return cdp.NewCommand[runtime.RemoteObject](CommandResolveNode).With("nodeId", nodeID)
}

// Center returns the midpoint of a four-point quad.
func (q Quad) Center() (x, y float64, ok bool) {
	if len(q) != 8 {
		return 0, 0, false
	}
	return (q[0] + q[2] + q[4] + q[6]) / 4, (q[1] + q[3] + q[5] + q[7]) / 4, true
}

// Domain is a borrowed handle for issuing DOM commands on a session.
type Domain struct {
	s         *cdp.Session
	sessionID string
}

// Use returns the DOM handle for s.
func Use(s *cdp.Session) Domain {
	return Domain{s: s}
}

// In targets a flat-mode child session.
func (d Domain) In(sessionID string) Domain {
	d.sessionID = sessionID
	return d
}

// GetDocument returns the root document node.
func (d Domain) GetDocument(ctx context.Context) (Node, error) {
	return cdp.Send(ctx, d.s, GetDocument(nil, nil).InSession(d.sessionID))
}

// QuerySelectorAll returns the ids of all nodes in the document matching selector.
func (d Domain) QuerySelectorAll(ctx context.Context, selector string) ([]NodeID, error) {
	depth := 1
	root, err := cdp.Send(ctx, d.s, GetDocument(&depth, nil).InSession(d.sessionID))
	if err != nil {
		return nil, err
	}
	return cdp.Send(ctx, d.s, QuerySelectorAll(root.NodeID, selector).InSession(d.sessionID))
}

// QuerySelector returns the first node in the document matching selector,
// or 0 when nothing matches.
func (d Domain) QuerySelector(ctx context.Context, selector string) (NodeID, error) {
	depth := 1
	root, err := cdp.Send(ctx, d.s, GetDocument(&depth, nil).InSession(d.sessionID))
	if err != nil {
		return 0, err
	}
	return cdp.Send(ctx, d.s, QuerySelector(root.NodeID, selector).InSession(d.sessionID))
}

// BoxModel returns the box model of nodeID.
func (d Domain) BoxModel(ctx context.Context, nodeID NodeID) (BoxModel, error) {
	return cdp.Send(ctx, d.s, GetBoxModel(nodeID).InSession(d.sessionID))
}

// ResolveNode returns the remote object for nodeID.
func (d Domain) ResolveNode(ctx context.Context, nodeID NodeID) (runtime.RemoteObject, error) {
	return cdp.Send(ctx, d.s, ResolveNode(nodeID).InSession(d.sessionID))
}
