package homeassistant

import "fmt"

// ReportTemplate renders expr for messages of type evtType and keeps the
// previous state for anything else published on the same topic.
func ReportTemplate(evtType, expr string) string {
	return fmt.Sprintf(
		"{%% if value_json.type == '%s' %%}{{ %s }}{%% else %%}{{ this.state }}{%% endif %%}",
		evtType, expr)
}

// ConditionalReportTemplate is ReportTemplate with an extra condition.
func ConditionalReportTemplate(evtType, cond, expr string) string {
	return fmt.Sprintf(
		"{%% if value_json.type == '%s' and %s %%}{{ %s }}{%% else %%}{{ this.state }}{%% endif %%}",
		evtType, cond, expr)
}

// OnOffTemplate maps a boolean report value to ON/OFF.
func OnOffTemplate(evtType string) string {
	return ReportTemplate(evtType, "'ON' if value_json.val else 'OFF'")
}
