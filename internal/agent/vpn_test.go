package agent

import (
	"errors"
	"testing"

	"connman-agent/internal/payload"
)

func vpnRequest(extra map[string]any) map[string]any {
	raw := map[string]any{
		"Username": map[string]any{"Type": "string", "Requirement": "mandatory"},
		"Password": map[string]any{"Type": "password", "Requirement": "mandatory"},
	}
	for k, v := range extra {
		raw[k] = v
	}
	return raw
}

func control(value string) map[string]any {
	return map[string]any{"Type": "boolean", "Requirement": "control", "Value": value}
}

func TestVPNRequestInput_ControlFieldsSurfaced(t *testing.T) {
	p := &fakePrompter{reply: Reply{"Username": "u", "Password": "p"}}
	v := NewVPNAgent(p, nil, nil)

	reply, err := v.RequestInput("/net/connman/vpn/connection/office", vpnRequest(map[string]any{
		KeyAllowStoreCredentials: control("true"),
		"OpenConnect.Cookie":     map[string]any{"Requirement": "optional"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply["Username"] != "u" {
		t.Errorf("Username = %v, want u", reply["Username"])
	}

	shown := p.shown[0]
	if shown[KeyAllowStoreCredentials] != "true" {
		t.Errorf("control field not surfaced: %v", shown)
	}
	if _, ok := shown["OpenConnect.Cookie"]; ok {
		t.Errorf("optional field surfaced: %v", shown)
	}
	if p.reqs[0][KeyAllowStoreCredentials] != payload.Control {
		t.Errorf("requirement of %s = %v, want control", KeyAllowStoreCredentials, p.reqs[0][KeyAllowStoreCredentials])
	}
	if p.roles[0] != RoleVPN {
		t.Errorf("role = %v, want VPN_Agent", p.roles[0])
	}
}

func TestVPNSessionFlags_ParsedCaseInsensitively(t *testing.T) {
	v := NewVPNAgent(&fakePrompter{}, nil, nil)

	_, err := v.RequestInput("/vpn", vpnRequest(map[string]any{
		KeyAllowStoreCredentials:    control("TRUE"),
		KeyAllowRetrieveCredentials: control("True"),
		KeyKeepCredentials:          control("false"),
		KeyAuthFailure:              map[string]any{"Requirement": "informational", "Value": "bad password"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := SessionFlags{
		AllowStoreCredentials:    true,
		AllowRetrieveCredentials: true,
		KeepCredentials:          false,
		AuthFailure:              "bad password",
	}
	if got := v.Session(); got != want {
		t.Errorf("session = %+v, want %+v", got, want)
	}
}

func TestVPNSessionFlags_AbsentKeepsPrevious(t *testing.T) {
	v := NewVPNAgent(&fakePrompter{}, nil, nil)

	v.RequestInput("/vpn", vpnRequest(map[string]any{
		KeyAllowStoreCredentials: control("true"),
		KeyKeepCredentials:       control("true"),
	}))
	v.RequestInput("/vpn", vpnRequest(map[string]any{
		KeyKeepCredentials: control("false"),
	}))

	got := v.Session()
	if !got.AllowStoreCredentials {
		t.Error("AllowStoreCredentials reset although absent from second request")
	}
	if got.KeepCredentials {
		t.Error("KeepCredentials should be overwritten to false")
	}
}

func TestVPNSessionFlags_OptionalIgnored(t *testing.T) {
	v := NewVPNAgent(&fakePrompter{}, nil, nil)

	v.RequestInput("/vpn", vpnRequest(map[string]any{
		KeyAllowStoreCredentials: map[string]any{"Requirement": "optional", "Value": "true"},
	}))
	if v.Session().AllowStoreCredentials {
		t.Error("filtered-out field must not set session flags")
	}
}

func TestVPNRequestInput_MalformedKeepsSession(t *testing.T) {
	v := NewVPNAgent(&fakePrompter{}, nil, nil)
	v.RequestInput("/vpn", vpnRequest(map[string]any{KeyAllowStoreCredentials: control("true")}))

	_, err := v.RequestInput("/vpn", vpnRequest(map[string]any{
		KeyAllowStoreCredentials: control("false"),
		"Broken":                 []string{"x"},
	}))
	if !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("err = %v, want ErrMalformedPayload", err)
	}
	if !v.Session().AllowStoreCredentials {
		t.Error("session changed by a malformed request")
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"true", true},
		{"TRUE", true},
		{"tRuE", true},
		{"1", true},
		{"false", false},
		{"FALSE", false},
		{"", false},
		{"yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseFlag(tt.in); got != tt.want {
				t.Errorf("parseFlag(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
