// Package command defines the messages carried on the Backbone's and
// Backend Dispatcher's bounded command queues (spec.md §4.F, §4.G). It
// exists as its own package so that pkg/backbone/record can address the
// Backbone without importing it, avoiding the import cycle a Record
// talking directly to its owning Backbone would otherwise create.
package command

import "github.com/yeet-yoink/yeet-yoink/pkg/backbone/digest"

// Command is the sum type accepted by the Backbone's inbound channel.
type Command interface {
	isBackboneCommand()
}

// RemoveWriter removes a Record from the registry. Idempotent: removing
// an id that is already gone is a no-op.
type RemoveWriter struct {
	ID string
}

func (RemoveWriter) isBackboneCommand() {}

// ReadyForDistribution notifies the Backbone that a file finished
// uploading; the Backbone forwards it to the Dispatcher unchanged.
type ReadyForDistribution struct {
	ID      string
	Summary digest.Summary
}

func (ReadyForDistribution) isBackboneCommand() {}

// ReceiveFile asks the Dispatcher to fetch id from a remote backend.
// Per spec.md §9(a) this is stubbed: the request is forwarded but no
// reply path is awaited by the current contract.
type ReceiveFile struct {
	ID string
}

func (ReceiveFile) isBackboneCommand() {}

// DispatchCommand is the sum type accepted by the Backend Dispatcher's
// inbound channel.
type DispatchCommand interface {
	isDispatchCommand()
}

// DistributeFile asks the Dispatcher to fan a completed upload out to
// every enabled backend.
type DistributeFile struct {
	ID      string
	Summary digest.Summary
}

func (DistributeFile) isDispatchCommand() {}

// FetchFile asks the Dispatcher to satisfy a lookup miss from a remote
// backend. See ReceiveFile: reply delivery is not yet wired.
type FetchFile struct {
	ID string
}

func (FetchFile) isDispatchCommand() {}
