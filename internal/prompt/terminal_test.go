package prompt

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"connman-agent/internal/agent"
	"connman-agent/internal/payload"
)

func newTestTerminal(input string) (*Terminal, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return NewTerminal(strings.NewReader(input), out, nil), out
}

func TestRequestInput_AsksForEmptyFields(t *testing.T) {
	term, out := newTestTerminal("alice\nhunter2\n")

	reply, ok := term.RequestInput(agent.RoleAgent,
		payload.Fields{"Name": "cafe", "Identity": "", "Passphrase": ""},
		payload.Requirements{"Name": payload.Informational, "Identity": payload.Mandatory, "Passphrase": payload.Mandatory},
	)
	if !ok {
		t.Fatal("expected reply, got cancel")
	}
	if reply["Identity"] != "alice" || reply["Passphrase"] != "hunter2" {
		t.Errorf("reply = %v", reply)
	}
	if _, ok := reply["Name"]; ok {
		t.Error("informational field should not be echoed back")
	}
	if !strings.Contains(out.String(), "Name: cafe") {
		t.Errorf("informational value not shown:\n%s", out.String())
	}
}

func TestRequestInput_PrefilledMandatoryReturned(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantUser string
	}{
		{"keep default", "secret\n\n", "alice"},
		{"override default", "secret\nbob\n", "bob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			term, out := newTestTerminal(tt.input)

			reply, ok := term.RequestInput(agent.RoleVPN,
				payload.Fields{"Username": "alice", "Password": ""},
				payload.Requirements{"Username": payload.Mandatory, "Password": payload.Mandatory},
			)
			if !ok {
				t.Fatal("expected reply, got cancel")
			}
			if reply["Username"] != tt.wantUser {
				t.Errorf("Username = %v, want %s", reply["Username"], tt.wantUser)
			}
			if reply["Password"] != "secret" {
				t.Errorf("Password = %v, want secret", reply["Password"])
			}
			if !strings.Contains(out.String(), "Username [alice]: ") {
				t.Errorf("default not offered:\n%s", out.String())
			}
		})
	}
}

func TestRequestInput_PrefilledSecretHidden(t *testing.T) {
	term, out := newTestTerminal("\n")

	reply, ok := term.RequestInput(agent.RoleVPN,
		payload.Fields{"Password": "hunter2"},
		payload.Requirements{"Password": payload.Mandatory},
	)
	if !ok {
		t.Fatal("expected reply, got cancel")
	}
	if reply["Password"] != "hunter2" {
		t.Errorf("Password = %v, want the prefilled value", reply["Password"])
	}
	if strings.Contains(out.String(), "hunter2") {
		t.Errorf("secret value printed:\n%s", out.String())
	}
}

func TestRequestInput_ControlFieldsReturned(t *testing.T) {
	term, _ := newTestTerminal("\n")

	reply, ok := term.RequestInput(agent.RoleVPN,
		payload.Fields{"SaveCredentials": "true", "Host": "vpn.example"},
		payload.Requirements{"SaveCredentials": payload.Control, "Host": payload.Informational},
	)
	if !ok {
		t.Fatal("expected reply, got cancel")
	}
	if reply["SaveCredentials"] != "true" {
		t.Errorf("SaveCredentials = %v, want true", reply["SaveCredentials"])
	}
	if _, ok := reply["Host"]; ok {
		t.Errorf("informational Host returned: %v", reply)
	}
}

func TestRequestInput_BlankAnswersOmitted(t *testing.T) {
	term, _ := newTestTerminal("\nsecret")

	reply, ok := term.RequestInput(agent.RoleVPN,
		payload.Fields{"Password": "", "Username": ""},
		payload.Requirements{"Password": payload.Mandatory, "Username": payload.Mandatory},
	)
	if !ok {
		t.Fatal("expected reply, got cancel")
	}
	if len(reply) != 1 || reply["Username"] != "secret" {
		t.Errorf("reply = %v, want only Username", reply)
	}
}

func TestRequestInput_EOFCancels(t *testing.T) {
	term, _ := newTestTerminal("only-one\n")

	_, ok := term.RequestInput(agent.RoleAgent,
		payload.Fields{"Identity": "", "Passphrase": ""},
		payload.Requirements{"Identity": payload.Mandatory, "Passphrase": payload.Mandatory},
	)
	if ok {
		t.Error("end of input should cancel the request")
	}
}

func TestRequestBrowser(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"y\n", true},
		{"n\n", false},
		{"No\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			term, out := newTestTerminal(tt.input)
			if got := term.RequestBrowser("http://portal.example"); got != tt.want {
				t.Errorf("RequestBrowser with %q = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "http://portal.example") {
				t.Errorf("url not shown:\n%s", out.String())
			}
		})
	}
}

func TestReportError(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"\n", false},
		{"n\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			term, out := newTestTerminal(tt.input)
			if got := term.ReportError("invalid-key"); got != tt.want {
				t.Errorf("ReportError with %q = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "invalid-key") {
				t.Errorf("error not shown:\n%s", out.String())
			}
		})
	}
}

func TestInfo(t *testing.T) {
	term, out := newTestTerminal("")
	term.Info("The agent request failed before a reply was returned.")
	if !strings.Contains(out.String(), "failed before a reply") {
		t.Errorf("info not shown:\n%s", out.String())
	}
}

func TestInfo_DoesNotWaitForPendingDialog(t *testing.T) {
	term, out := newTestTerminal("")

	term.mu.Lock()
	defer term.mu.Unlock()

	done := make(chan struct{})
	go func() {
		term.Info("canceled")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Info blocked while a dialog held the terminal")
	}
	if !strings.Contains(out.String(), "canceled") {
		t.Errorf("info not shown:\n%s", out.String())
	}
}

func TestRequestInput_VPNAgentPrefilledUsername(t *testing.T) {
	term, _ := newTestTerminal("secret\n\n")
	v := agent.NewVPNAgent(term, nil, nil)

	reply, err := v.RequestInput("/net/connman/vpn/connection/office", map[string]any{
		"Username": map[string]any{"Type": "string", "Requirement": "mandatory", "Value": "alice"},
		"Password": map[string]any{"Type": "password", "Requirement": "mandatory"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply["Username"] != "alice" || reply["Password"] != "secret" {
		t.Errorf("reply = %v, want Username alice and Password secret", reply)
	}
}
