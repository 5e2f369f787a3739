// Package logging sets up the bridge's log/slog output from the logging
// section of config.yaml:
//
//	logging:
//	  level: "info"    # debug | info | warn | error
//	  format: "json"   # json | text
//	  output: "stdout" # stdout | stderr
//
// Every entry carries service=fimp2ha and the build version. Components
// derive a child logger with With("component", name) and pass it on as
// their optional Logger dependency.
//
// Broker passwords and InfluxDB tokens must never be logged.
package logging
