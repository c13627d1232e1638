package supervisor

import (
	"fmt"
	"os/user"
	"strconv"
	"syscall"
)

// Credentials holds a resolved uid/gid pair for running a child process under
// an identity other than the supervisor's own.
type Credentials struct {
	UID uint32
	GID uint32
}

// ResolveCredentials resolves a username or numeric uid to a Credentials
// using the user's primary group. Returns nil, nil if userName is empty.
func ResolveCredentials(userName string) (*Credentials, error) {
	if userName == "" {
		return nil, nil
	}

	u, err := lookupUser(userName)
	if err != nil {
		return nil, fmt.Errorf("resolve user %q: %w", userName, err)
	}

	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse gid %q: %w", u.Gid, err)
	}

	return &Credentials{UID: uint32(uid), GID: uint32(gid)}, nil
}

func lookupUser(nameOrID string) (*user.User, error) {
	if _, err := strconv.ParseUint(nameOrID, 10, 32); err == nil {
		return user.LookupId(nameOrID)
	}
	return user.Lookup(nameOrID)
}

// ApplySysProcAttr attaches the resolved credentials to attr so the child is
// started under them. A nil receiver is a no-op, so callers can always call
// this unconditionally.
func (c *Credentials) ApplySysProcAttr(attr *syscall.SysProcAttr) {
	if c == nil {
		return
	}
	attr.Credential = &syscall.Credential{Uid: c.UID, Gid: c.GID}
}
