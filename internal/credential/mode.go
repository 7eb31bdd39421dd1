package credential

import (
	"errors"
	"strings"
)

// Mode selects which writes a reconciliation may perform and whether it is a
// login attempt. Create/update bits and login bits combine freely, except that
// the two login bits are mutually exclusive.
type Mode uint8

const (
	ModeCreateOnly Mode = 1 << iota
	ModeUpdateOnly
	ModeWithCheckLogin
	ModeWithActualLogin

	ModeCreateOrUpdate = ModeCreateOnly | ModeUpdateOnly

	writeMask = ModeCreateOrUpdate
	loginMask = ModeWithCheckLogin | ModeWithActualLogin
)

var (
	ErrInvalidMode = errors.New("invalid credential mode")
)

func (m Mode) CanCreate() bool { return m&ModeCreateOnly != 0 }
func (m Mode) CanUpdate() bool { return m&ModeUpdateOnly != 0 }
func (m Mode) IsLogin() bool   { return m&loginMask != 0 }

// WriteBits returns m without its login bits.
func (m Mode) WriteBits() Mode { return m & writeMask }

// LoginBits returns m without its create/update bits.
func (m Mode) LoginBits() Mode { return m & loginMask }

func (m Mode) Validate() error {
	if m&^(writeMask|loginMask) != 0 {
		return ErrInvalidMode
	}
	if m&writeMask == 0 {
		return errors.Join(ErrInvalidMode, errors.New("create or update bit required"))
	}
	if m&loginMask == loginMask {
		return errors.Join(ErrInvalidMode, errors.New("check and actual login are mutually exclusive"))
	}
	return nil
}

func (m Mode) String() string {
	if m == 0 {
		return "none"
	}
	parts := make([]string, 0, 3)
	switch m & writeMask {
	case ModeCreateOrUpdate:
		parts = append(parts, "create_or_update")
	case ModeCreateOnly:
		parts = append(parts, "create_only")
	case ModeUpdateOnly:
		parts = append(parts, "update_only")
	}
	if m&ModeWithCheckLogin != 0 {
		parts = append(parts, "check_login")
	}
	if m&ModeWithActualLogin != 0 {
		parts = append(parts, "actual_login")
	}
	return strings.Join(parts, "|")
}

// ParseWriteMode maps the textual names used by the HTTP and CLI surfaces.
func ParseWriteMode(v string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "create_or_update":
		return ModeCreateOrUpdate, nil
	case "create_only":
		return ModeCreateOnly, nil
	case "update_only":
		return ModeUpdateOnly, nil
	default:
		return 0, ErrInvalidMode
	}
}

func loginMode(actualLogin bool) Mode {
	if actualLogin {
		return ModeWithActualLogin
	}
	return ModeWithCheckLogin
}
