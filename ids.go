package vfs

import "github.com/google/uuid"

// An ObserverHandle identifies a registered Observer so that it can be disposed later. Reused small integers
// for handles race under concurrent AddListener/RemoveListener from multiple goroutines once handles are
// recycled. A uuid is comparable, copyable and never reused, so a stale handle from a disposed observer can
// never alias a live one.
type ObserverHandle uuid.UUID

// NewObserverHandle allocates a fresh, globally unique handle.
func NewObserverHandle() ObserverHandle {
	return ObserverHandle(uuid.New())
}

func (h ObserverHandle) String() string {
	return uuid.UUID(h).String()
}

// A SessionID identifies an OperationSession for logging and metrics correlation.
type SessionID uuid.UUID

// NewSessionID allocates a fresh session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

// An OperationID identifies a single Operation within a session.
type OperationID uuid.UUID

// NewOperationID allocates a fresh operation identifier.
func NewOperationID() OperationID {
	return OperationID(uuid.New())
}

func (id OperationID) String() string {
	return uuid.UUID(id).String()
}

// A MountID identifies one (filesystem, option) assignment within the mount tree, used to target Unmount and to
// correlate synthesized Create/Delete events back to the assignment that produced them.
type MountID uuid.UUID

// NewMountID allocates a fresh mount assignment identifier.
func NewMountID() MountID {
	return MountID(uuid.New())
}

func (id MountID) String() string {
	return uuid.UUID(id).String()
}
