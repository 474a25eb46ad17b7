package node

import (
	"context"
	"fmt"
	"log/slog"

	"robotmesh"
	"robotmesh/internal/buildinfo"
	"robotmesh/node/acquisition"
	"robotmesh/node/mesh"
)

// Node is a mesh participant: a controller plus the loop that drives it.
type Node struct {
	ctrl *mesh.Controller
	loop *acquisition.Loop

	// started is closed once the radio is up and the loop is running.
	started chan struct{}
}

// New wraps ctrl. The node takes ownership of the controller; nothing else
// may call its radio-touching methods.
func New(ctrl *mesh.Controller, opts ...acquisition.Option) *Node {
	return &Node{
		ctrl:    ctrl,
		loop:    acquisition.New(ctrl, opts...),
		started: make(chan struct{}),
	}
}

// Run starts the radio, then cycles until ctx is cancelled or the controller
// fails. A start failure is returned as is; the node does not retry.
func (n *Node) Run(ctx context.Context) error {
	if err := n.ctrl.Start(ctx); err != nil {
		return fmt.Errorf("start mesh radio: %w", err)
	}
	close(n.started)
	slog.Info("Mesh node running.", "version", buildinfo.Version)

	err := n.loop.Run(ctx)
	n.shutdown(context.WithoutCancel(ctx))
	return err
}

func (n *Node) shutdown(ctx context.Context) {
	if err := n.ctrl.Disconnect(ctx); err != nil {
		slog.Error("mesh shutdown", "err", err)
	}
}

// Started returns a channel that is closed when the radio is up.
func (n *Node) Started() <-chan struct{} {
	return n.started
}

// Failed reports whether the controller has hit a terminal failure.
func (n *Node) Failed() bool {
	return n.ctrl.State() == mesh.StateFailed
}

// Status returns the controller's diagnostic snapshot.
func (n *Node) Status() robotmesh.Status {
	return n.ctrl.Status()
}
