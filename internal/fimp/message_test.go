package fimp

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestNewGetReport(t *testing.T) {
	msg := NewGetReport("chargepoint", "cmd.max_current.get_report")

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(raw)

	for _, want := range []string{
		`"type":"cmd.max_current.get_report"`,
		`"serv":"chargepoint"`,
		`"val_t":"null"`,
		`"val":null`,
		`"src":"homeassistant"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("payload %s missing %s", s, want)
		}
	}
	if strings.Contains(s, "resp_to") {
		t.Errorf("payload %s should omit empty resp_to", s)
	}
	if msg.MessageType() != "cmd.max_current.get_report" {
		t.Errorf("MessageType() = %q", msg.MessageType())
	}
}

func TestNewCommand_UniqueUIDs(t *testing.T) {
	a := NewCommand("out_bin_switch", "cmd.binary.set", ValueBool, true)
	b := NewCommand("out_bin_switch", "cmd.binary.set", ValueBool, true)

	if a.UID == "" || a.UID == b.UID {
		t.Errorf("uids %q and %q must be non-empty and distinct", a.UID, b.UID)
	}
	if a.Value != true {
		t.Errorf("Value = %v, want true", a.Value)
	}
}

func TestTopics(t *testing.T) {
	addr := "/rt:dev/rn:zw/ad:1/sv:door_lock/ad:5_0"

	if got := EventTopic(addr); got != "pt:j1/mt:evt"+addr {
		t.Errorf("EventTopic() = %q", got)
	}
	if got := CommandTopic(addr); got != "pt:j1/mt:cmd"+addr {
		t.Errorf("CommandTopic() = %q", got)
	}
	if got := VinculumCommandTopic(); got != "pt:j1/mt:cmd/rt:app/rn:vinculum/ad:1" {
		t.Errorf("VinculumCommandTopic() = %q", got)
	}
	if got := VinculumEventTopic(); got != "pt:j1/mt:evt/rt:app/rn:vinculum/ad:1" {
		t.Errorf("VinculumEventTopic() = %q", got)
	}
}
