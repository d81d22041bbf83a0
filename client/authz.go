package client

import "context"

// PrivilegeObject names the catalog entities one access-control decision is
// about. Only resolved fields are set.
type PrivilegeObject struct {
	Database  *Database
	Table     *Table
	Partition *Partition
}

// PrivilegeDeriver maps resolved catalog entities to access-control
// decisions. The client never invokes it; construction only guarantees one
// exists whenever the configuration names an authorization manager, so
// planners downstream can rely on its presence. Implementations must treat
// the entities as read-only.
type PrivilegeDeriver interface {
	Derive(ctx context.Context, obj PrivilegeObject) error
}
