package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// EventType is the required discriminant of every WebSocket frame.
type EventType string

const (
	EventAdd    EventType = "add"
	EventUpdate EventType = "update"
	EventAll    EventType = "all"
	EventRemove EventType = "remove"
)

var (
	ErrUnknownEvent    = errors.New("unknown event type")
	ErrServerOnlyEvent = errors.New("event type is only sent by the server")
)

// Event is the closed set of frames exchanged with a room.
// Implementations: AddEvent, UpdateEvent, AllEvent, RemoveEvent.
type Event interface {
	Type() EventType
}

// AddEvent creates a message.
type AddEvent struct {
	Message ChatMessage
}

// UpdateEvent replaces the message with the same id, or inserts it.
type UpdateEvent struct {
	Message ChatMessage
}

// AllEvent carries the full room state to a newly joined participant.
type AllEvent struct {
	Messages []ChatMessage
}

// RemoveEvent tells participants that messages expired.
type RemoveEvent struct {
	IDs []string
}

func (AddEvent) Type() EventType    { return EventAdd }
func (UpdateEvent) Type() EventType { return EventUpdate }
func (AllEvent) Type() EventType    { return EventAll }
func (RemoveEvent) Type() EventType { return EventRemove }

type messageFrame struct {
	Type EventType `json:"type"`
	ChatMessage
}

type allFrame struct {
	Type     EventType     `json:"type"`
	Messages []ChatMessage `json:"messages"`
}

type removeFrame struct {
	Type EventType `json:"type"`
	IDs  []string  `json:"ids"`
}

// EncodeEvent renders an event as a JSON text frame.
func EncodeEvent(e Event) ([]byte, error) {
	switch ev := e.(type) {
	case AddEvent:
		return json.Marshal(messageFrame{Type: EventAdd, ChatMessage: ev.Message})
	case UpdateEvent:
		return json.Marshal(messageFrame{Type: EventUpdate, ChatMessage: ev.Message})
	case AllEvent:
		msgs := ev.Messages
		if msgs == nil {
			msgs = []ChatMessage{}
		}
		return json.Marshal(allFrame{Type: EventAll, Messages: msgs})
	case RemoveEvent:
		ids := ev.IDs
		if ids == nil {
			ids = []string{}
		}
		return json.Marshal(removeFrame{Type: EventRemove, IDs: ids})
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, e)
	}
}

// DecodeEvent parses any frame, validating add and update payloads.
func DecodeEvent(data []byte) (Event, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch head.Type {
	case EventAdd, EventUpdate:
		var msg ChatMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", head.Type, err)
		}
		if err := msg.Validate(); err != nil {
			return nil, fmt.Errorf("decode %s event: %w", head.Type, err)
		}
		if head.Type == EventAdd {
			return AddEvent{Message: msg}, nil
		}
		return UpdateEvent{Message: msg}, nil
	case EventAll:
		var f allFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode all event: %w", err)
		}
		return AllEvent{Messages: f.Messages}, nil
	case EventRemove:
		var f removeFrame
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode remove event: %w", err)
		}
		return RemoveEvent{IDs: f.IDs}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrUnknownEvent)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, head.Type)
	}
}

// DecodeClientEvent accepts only the frames a participant may send.
func DecodeClientEvent(data []byte) (Event, error) {
	ev, err := DecodeEvent(data)
	if err != nil {
		return nil, err
	}
	switch ev.(type) {
	case AddEvent, UpdateEvent:
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrServerOnlyEvent, ev.Type())
	}
}

// MessageOf returns the message carried by an add or update event.
func MessageOf(e Event) (ChatMessage, bool) {
	switch ev := e.(type) {
	case AddEvent:
		return ev.Message, true
	case UpdateEvent:
		return ev.Message, true
	}
	return ChatMessage{}, false
}
