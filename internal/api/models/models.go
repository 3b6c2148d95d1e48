// Package models holds the request and response shapes of the HTTP API.
package models

import "github.com/smazurov/coolledctl/internal/events"

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" enum:"ok,degraded" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
	Serial  string `json:"serial,omitempty" example:"open" doc:"Serial channel state"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/arm64" doc:"OS and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Panel models
type PanelData struct {
	Toggles     []events.Toggle `json:"toggles" doc:"Toggle states in panel order"`
	Bits        string          `json:"bits" example:"1" doc:"Toggle states as a binary string"`
	Command     string          `json:"command" example:"CSN" doc:"Command the current state maps to"`
	LastCommand string          `json:"last_command,omitempty" example:"CSF" doc:"Most recently dispatched command"`
}

type PanelResponse struct {
	Body PanelData
}

type ToggleRequest struct {
	Name string `path:"name" example:"LED ON" doc:"Toggle label"`
	Wait bool   `query:"wait" doc:"Wait for the serial write to finish"`
	Body struct {
		Checked bool `json:"checked" example:"true" doc:"Desired toggle state"`
	}
}

type FlipRequest struct {
	Name string `path:"name" example:"LED ON" doc:"Toggle label"`
	Wait bool   `query:"wait" doc:"Wait for the serial write to finish"`
}

type ApplyRequest struct {
	Wait bool `query:"wait" doc:"Wait for the serial write to finish"`
}

// OutcomeData is the result of a waited-for command write.
type OutcomeData struct {
	Status  string              `json:"status" example:"ok" enum:"ok,error" doc:"Write status"`
	Result  any                 `json:"result,omitempty" doc:"Write result"`
	Failure *events.TaskFailure `json:"failure,omitempty" doc:"Failure details"`
}

type DispatchData struct {
	TaskID  uint64       `json:"task_id" example:"7" doc:"Task carrying the serial write"`
	Command string       `json:"command" example:"CSN" doc:"Command dispatched"`
	Panel   PanelData    `json:"panel" doc:"Panel state after the change"`
	Outcome *OutcomeData `json:"outcome,omitempty" doc:"Write outcome, present when waited for"`
}

type DispatchResponse struct {
	Status int
	Body   DispatchData
}

// Serial models
type SerialStats struct {
	CommandsSent  map[string]uint64 `json:"commands_sent" doc:"Successful writes per command"`
	WriteFailures uint64            `json:"write_failures" example:"0" doc:"Failed writes"`
	TaskFailures  uint64            `json:"task_failures" example:"0" doc:"Background tasks that failed"`
	QueueDepth    int               `json:"queue_depth" example:"0" doc:"Tasks waiting for a worker"`
}

type SerialData struct {
	Port        string      `json:"port" example:"/dev/ttyUSB0" doc:"Serial port"`
	BaudRate    int         `json:"baud_rate" example:"9600" doc:"Baud rate"`
	DataBits    int         `json:"data_bits" example:"8" doc:"Data bits"`
	Parity      string      `json:"parity" example:"N" doc:"Parity"`
	StopBits    float64     `json:"stop_bits" example:"1" doc:"Stop bits"`
	ReadTimeout string      `json:"read_timeout" example:"0s" doc:"Read timeout"`
	Settings    string      `json:"settings" example:"/dev/ttyUSB0 9600 8N1" doc:"Compact settings string"`
	State       string      `json:"state" example:"open" enum:"new,open,closed,error" doc:"Channel state"`
	Open        bool        `json:"open" example:"true" doc:"Whether the port is open"`
	Stats       SerialStats `json:"stats" doc:"Write counters"`
}

type SerialResponse struct {
	Body SerialData
}

type PortsData struct {
	Ports []string `json:"ports" example:"[\"/dev/ttyUSB0\"]" doc:"Serial ports present on the host"`
	Count int      `json:"count" example:"1" doc:"Number of ports"`
}

type PortsResponse struct {
	Body PortsData
}
