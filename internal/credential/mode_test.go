package credential

import (
	"errors"
	"testing"
)

func TestModeValidate(t *testing.T) {
	valid := []Mode{
		ModeCreateOnly,
		ModeUpdateOnly,
		ModeCreateOrUpdate,
		ModeCreateOnly | ModeWithCheckLogin,
		ModeCreateOrUpdate | ModeWithActualLogin,
		ModeUpdateOnly | ModeWithCheckLogin,
	}
	for _, m := range valid {
		if err := m.Validate(); err != nil {
			t.Fatalf("expected %s to be valid, got %v", m, err)
		}
	}

	invalid := []Mode{
		0,
		ModeWithCheckLogin,
		ModeWithActualLogin,
		ModeCreateOrUpdate | ModeWithCheckLogin | ModeWithActualLogin,
		Mode(0x80) | ModeCreateOnly,
	}
	for _, m := range invalid {
		if err := m.Validate(); !errors.Is(err, ErrInvalidMode) {
			t.Fatalf("expected ErrInvalidMode for %08b, got %v", uint8(m), err)
		}
	}
}

func TestModeBits(t *testing.T) {
	m := ModeCreateOrUpdate | ModeWithActualLogin
	if !m.CanCreate() || !m.CanUpdate() || !m.IsLogin() {
		t.Fatalf("unexpected bit checks for %s", m)
	}
	if m.WriteBits() != ModeCreateOrUpdate {
		t.Fatalf("unexpected write bits %s", m.WriteBits())
	}
	if m.LoginBits() != ModeWithActualLogin {
		t.Fatalf("unexpected login bits %s", m.LoginBits())
	}
	demoted := m &^ ModeUpdateOnly
	if demoted.CanUpdate() || !demoted.CanCreate() {
		t.Fatalf("expected create-only after demotion, got %s", demoted)
	}
}

func TestModeString(t *testing.T) {
	cases := map[Mode]string{
		0:                                        "none",
		ModeCreateOnly:                           "create_only",
		ModeUpdateOnly | ModeWithCheckLogin:      "update_only|check_login",
		ModeCreateOrUpdate | ModeWithActualLogin: "create_or_update|actual_login",
	}
	for m, want := range cases {
		if got := m.String(); got != want {
			t.Fatalf("expected %q, got %q", want, got)
		}
	}
}

func TestParseWriteMode(t *testing.T) {
	cases := map[string]Mode{
		"":                 ModeCreateOrUpdate,
		"create_or_update": ModeCreateOrUpdate,
		" Create_Only ":    ModeCreateOnly,
		"update_only":      ModeUpdateOnly,
	}
	for in, want := range cases {
		got, err := ParseWriteMode(in)
		if err != nil || got != want {
			t.Fatalf("parse %q: got %s err=%v", in, got, err)
		}
	}
	if _, err := ParseWriteMode("upsert"); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}
