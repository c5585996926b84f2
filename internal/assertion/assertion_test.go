package assertion

import (
	"encoding/json"
	"testing"
)

func TestGet(t *testing.T) {
	a := Assertion{
		"email": {"a@x.com", "alias@x.com"},
		"empty": {},
	}
	if got := a.Get("email"); got != "a@x.com" {
		t.Errorf("Get(email) = %q, want a@x.com", got)
	}
	if got := a.Get("empty"); got != "" {
		t.Errorf("Get(empty) = %q, want empty string", got)
	}
	if got := a.Get("absent"); got != "" {
		t.Errorf("Get(absent) = %q, want empty string", got)
	}
}

func TestHas_DistinguishesAbsentFromEmpty(t *testing.T) {
	a := Assertion{
		"present": {""},
		"novals":  {},
	}
	if !a.Has("present") {
		t.Error("Has(present) = false, want true")
	}
	if !a.Has("novals") {
		t.Error("Has(novals) = false, want true")
	}
	if a.Has("absent") {
		t.Error("Has(absent) = true, want false")
	}
}

func TestUnmarshalJSON_StringAndListForms(t *testing.T) {
	var a Assertion
	payload := `{"username": "alice", "email": ["a@x.com", "alias@x.com"], "groups": []}`
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := a.Get("username"); got != "alice" {
		t.Errorf("username = %q, want alice", got)
	}
	if vals := a.Values("email"); len(vals) != 2 || vals[0] != "a@x.com" {
		t.Errorf("email values = %v", vals)
	}
	if !a.Has("groups") || a.Get("groups") != "" {
		t.Errorf("groups should be present with no values; Has=%v Get=%q", a.Has("groups"), a.Get("groups"))
	}
}

func TestUnmarshalJSON_RejectsNonStringValues(t *testing.T) {
	var a Assertion
	if err := json.Unmarshal([]byte(`{"count": 3}`), &a); err == nil {
		t.Fatal("expected error for numeric attribute value")
	}
	if err := json.Unmarshal([]byte(`{"mixed": ["ok", 1]}`), &a); err == nil {
		t.Fatal("expected error for mixed-type attribute list")
	}
}
