package server

// Message types sent to WebSocket clients.
const (
	TypeSnapshot = "snapshot"
	TypeCue      = "cue"
)

// Message is one WebSocket frame.
type Message struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq,omitempty"`
	Payload any    `json:"payload"`
}

// errorBody is the JSON body of every failed request.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// createRequest is the body of POST /api/timers.
type createRequest struct {
	StudentName     string   `json:"studentName"`
	ExamName        string   `json:"examName"`
	DurationMinutes *float64 `json:"durationMinutes"`
}
