package model

import (
	"fmt"
	"strings"
)

// PermissionLevel is a capability tier. Levels are totally ordered.
type PermissionLevel int

const (
	// PermissionReadOnly can only read balances and history.
	PermissionReadOnly PermissionLevel = iota
	// PermissionBasic can transfer small amounts of SOL.
	PermissionBasic
	// PermissionAdvanced can perform token operations.
	PermissionAdvanced
	// PermissionFull can interact with any protocol.
	PermissionFull
	// PermissionAdministrator can change wallet configuration and use a
	// custom fee payer.
	PermissionAdministrator
)

var permissionNames = [...]string{"ReadOnly", "Basic", "Advanced", "Full", "Administrator"}

// CanPerform reports whether p covers an action requiring required.
func (p PermissionLevel) CanPerform(required PermissionLevel) bool {
	return p >= required
}

func (p PermissionLevel) String() string {
	if p < PermissionReadOnly || p > PermissionAdministrator {
		return fmt.Sprintf("PermissionLevel(%d)", int(p))
	}
	return permissionNames[p]
}

// ParsePermissionLevel accepts the level name in any case.
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	s = strings.TrimSpace(s)
	for i, name := range permissionNames {
		if strings.EqualFold(name, s) {
			return PermissionLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown permission level %q", s)
}

func (p PermissionLevel) MarshalText() ([]byte, error) {
	if p < PermissionReadOnly || p > PermissionAdministrator {
		return nil, fmt.Errorf("invalid permission level %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *PermissionLevel) UnmarshalText(text []byte) error {
	level, err := ParsePermissionLevel(string(text))
	if err != nil {
		return err
	}
	*p = level
	return nil
}
