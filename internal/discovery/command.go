package discovery

import (
	"encoding/json"
	"fmt"

	"github.com/nerrad567/fimp2ha/internal/fimp"
)

// staticCommand renders a fixed FIMP command for payload_on, payload_lock
// and similar config keys. It carries no uid since Home Assistant sends
// the same bytes every time.
func staticCommand(service, msgType, valueType string, value any) string {
	raw, err := json.Marshal(fimp.Message{
		Type:      msgType,
		Service:   service,
		ValueType: valueType,
		Value:     value,
		Props:     map[string]any{},
		Tags:      []string{},
		Source:    fimp.Source,
	})
	if err != nil {
		// Values are literals built in this package.
		panic(fmt.Sprintf("encoding static command %s: %v", msgType, err))
	}
	return string(raw)
}

// commandTemplate renders a FIMP command whose val is the Jinja
// expression valueExpr, for *_command_template keys.
func commandTemplate(service, msgType, valueType, valueExpr string) string {
	return fmt.Sprintf(
		`{"type":%q,"serv":%q,"val_t":%q,"val":%s,"props":{},"tags":[],"src":%q}`,
		msgType, service, valueType, valueExpr, fimp.Source)
}
