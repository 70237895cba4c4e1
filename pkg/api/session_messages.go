package api

import (
	"encoding/json"
	"fmt"

	"github.com/dd0wney/cluso-graphview/pkg/validation"
)

// Inbound message types
const (
	msgPointerMove  = "pointer_move"
	msgPointerDown  = "pointer_down"
	msgPointerUp    = "pointer_up"
	msgPointerLeave = "pointer_leave"
	msgWheel        = "wheel"
	msgZoomIn       = "zoom_in"
	msgZoomOut      = "zoom_out"
	msgPan          = "pan"
	msgReset        = "reset"
	msgSearch       = "search"
	msgFilter       = "filter"
	msgLabels       = "labels"
	msgSelect       = "select"
	msgNavigate     = "navigate"
	msgClear        = "clear"
	msgStart        = "start"
	msgPause        = "pause"
	msgResume       = "resume"
	msgToggle       = "toggle"
	msgResize       = "resize"
	msgNeighbors    = "neighbors"
	msgStats        = "stats"
)

// Outbound message types. View notifications go out under their topic
// name: selection, model and scheduler.
const (
	msgHello = "hello"
	msgFrame = "frame"
	msgError = "error"
)

// inMessage is one client command. Coordinates are in frame pixels.
type inMessage struct {
	Type   string  `json:"type" validate:"required,oneof=pointer_move pointer_down pointer_up pointer_leave wheel zoom_in zoom_out pan reset search filter labels select navigate clear start pause resume toggle resize neighbors stats"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DX     float64 `json:"dx"`
	DY     float64 `json:"dy"`
	DeltaY float64 `json:"deltaY"`
	Text   string  `json:"text" validate:"max=256"`
	Kind   string  `json:"kind" validate:"max=128"`
	Show   *bool   `json:"show,omitempty"`
	ID     string  `json:"id" validate:"max=128"`
	Width  int     `json:"width" validate:"omitempty,min=1,max=8192"`
	Height int     `json:"height" validate:"omitempty,min=1,max=8192"`
}

func decodeMessage(data []byte) (inMessage, error) {
	var msg inMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, fmt.Errorf("malformed message: %w", err)
	}
	if err := validation.ValidateStruct(msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// outMessage is the envelope of everything a session sends
type outMessage struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Data any    `json:"data,omitempty"`
}

type helloData struct {
	Session  string `json:"session"`
	Version  string `json:"version"`
	State    string `json:"state"`
	Interval string `json:"frameInterval"`
}

type frameData struct {
	Frame uint64 `json:"frame"`
	SVG   string `json:"svg"`
}

type errorData struct {
	Request string `json:"request,omitempty"`
	Message string `json:"message"`
}
