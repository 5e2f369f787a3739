package fimp

import "github.com/nerrad567/fimp2ha/internal/infrastructure/mqtt"

// Hub application names and the response address the bridge listens on.
const (
	AppVinculum     = "vinculum"
	ResponseAddress = "flow1"
)

// EventTopic returns the event topic for a service address.
func EventTopic(addr string) string {
	return mqtt.Topics{}.FIMPEvent(addr)
}

// CommandTopic returns the command topic for a service address.
func CommandTopic(addr string) string {
	return mqtt.Topics{}.FIMPCommand(addr)
}

// VinculumCommandTopic is where catalog, mode and shortcut requests go.
func VinculumCommandTopic() string {
	return mqtt.Topics{}.FIMPApplicationCommand(AppVinculum)
}

// VinculumEventTopic carries vinculum notifications (mode changes).
func VinculumEventTopic() string {
	return mqtt.Topics{}.FIMPApplicationEvent(AppVinculum)
}

// ResponseTopic is the resp_to topic set on the bridge's requests.
func ResponseTopic() string {
	return mqtt.Topics{}.FIMPResponse(Source, ResponseAddress)
}
