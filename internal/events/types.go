package events

// Event type constants for kelindar/event.
const (
	TypeTask uint32 = iota + 1
	TypePanelStateChanged
	TypeSerialStateChanged
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// TaskFailure mirrors task.Failure for transport.
type TaskFailure struct {
	Kind    string `json:"kind" example:"*fs.PathError" doc:"Error kind"`
	Message string `json:"message" example:"write /dev/ttyUSB0: input/output error" doc:"Error message"`
	Trace   string `json:"trace" doc:"Formatted trace"`
}

// TaskEvent carries one signal of a background task. All signals of a
// task share one event type so subscribers see them in emission order.
type TaskEvent struct {
	TaskID    uint64       `json:"task_id" example:"7" doc:"Task identifier"`
	Name      string       `json:"name" example:"write-command" doc:"Task label"`
	Signal    string       `json:"signal" example:"result" enum:"progress,result,error,finished" doc:"Signal kind"`
	Value     any          `json:"value,omitempty" doc:"Result or progress value"`
	Failure   *TaskFailure `json:"failure,omitempty" doc:"Failure details for error signals"`
	Timestamp string       `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for TaskEvent.
func (e TaskEvent) Type() uint32 { return TypeTask }

// Toggle is the state of one named toggle.
type Toggle struct {
	Name    string `json:"name" example:"LED ON" doc:"Toggle label"`
	Checked bool   `json:"checked" example:"true" doc:"Whether the toggle is on"`
}

// PanelStateChangedEvent is published every time the panel dispatches a command.
type PanelStateChangedEvent struct {
	Toggles   []Toggle `json:"toggles" doc:"Toggle states in panel order"`
	Bits      string   `json:"bits" example:"1" doc:"Toggle states as a binary string"`
	Command   string   `json:"command" example:"CSN" doc:"Command sent, without line delimiter"`
	TaskID    uint64   `json:"task_id" example:"7" doc:"Task carrying the serial write"`
	Timestamp string   `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PanelStateChangedEvent.
func (e PanelStateChangedEvent) Type() uint32 { return TypePanelStateChanged }

// SerialStateChangedEvent reports serial channel lifecycle transitions.
type SerialStateChangedEvent struct {
	Port      string `json:"port" example:"/dev/ttyUSB0" doc:"Serial port"`
	State     string `json:"state" example:"open" enum:"new,open,closed,error" doc:"Channel state"`
	Error     string `json:"error,omitempty" doc:"Error that caused the transition"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SerialStateChangedEvent.
func (e SerialStateChangedEvent) Type() uint32 { return TypeSerialStateChanged }

// LogEntryEvent represents a log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"panel" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
