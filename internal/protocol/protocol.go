// Package protocol defines the JSON frames exchanged with chat clients.
//
// Inbound frames are decoded into one of a closed set of message kinds
// (Join, Chat, Joke, Members, Priv). Outbound payloads are plain structs with
// constructors that pin their "type" field.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unrecognized message type")
)

const (
	TypeJoin    = "join"
	TypeChat    = "chat"
	TypeJoke    = "joke"
	TypeMembers = "members"
	TypePriv    = "priv"
	TypeNote    = "note"
	TypeError   = "error"
)

// Inbound is implemented only by the message kinds in this package.
type Inbound interface {
	inbound()
}

type Join struct{ Name string }

type Chat struct{ Text string }

type Joke struct{}

type Members struct{}

type Priv struct {
	Text string
	User string
}

func (Join) inbound()    {}
func (Chat) inbound()    {}
func (Joke) inbound()    {}
func (Members) inbound() {}
func (Priv) inbound()    {}

type envelope struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
	Text string `json:"text,omitempty"`
	User string `json:"user,omitempty"`
}

// Decode parses one inbound frame.
func Decode(data []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch env.Type {
	case TypeJoin:
		return Join{Name: env.Name}, nil
	case TypeChat:
		return Chat{Text: env.Text}, nil
	case TypeJoke:
		return Joke{}, nil
	case TypeMembers:
		return Members{}, nil
	case TypePriv:
		return Priv{Text: env.Text, User: env.User}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// Kind returns the wire tag of msg.
func Kind(msg Inbound) string {
	switch msg.(type) {
	case Join:
		return TypeJoin
	case Chat:
		return TypeChat
	case Joke:
		return TypeJoke
	case Members:
		return TypeMembers
	case Priv:
		return TypePriv
	default:
		return "unknown"
	}
}

type Note struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewNote(text string) Note { return Note{Type: TypeNote, Text: text} }

type ChatMessage struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewChat(name, text string) ChatMessage {
	return ChatMessage{Name: name, Type: TypeChat, Text: text}
}

type JokeMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewJoke(text string) JokeMessage { return JokeMessage{Type: TypeJoke, Text: text} }

type MembersMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewMembers(names []string) MembersMessage {
	return MembersMessage{Type: TypeMembers, Text: MembersText(names)}
}

type PrivMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

const (
	Me           = "me"
	UserNotFound = "User not found"
)

// NewPrivEcho is the copy the sender sees.
func NewPrivEcho(text, to string) PrivMessage {
	return PrivMessage{Type: TypePriv, Text: text, From: Me, To: to}
}

// NewPrivDelivery is the copy the target sees.
func NewPrivDelivery(text, from string) PrivMessage {
	return PrivMessage{Type: TypePriv, Text: text, From: from, To: Me}
}

func NewPrivNotFound() PrivMessage {
	return PrivMessage{Type: TypePriv, Text: UserNotFound}
}

type ErrorMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func NewError(text string) ErrorMessage { return ErrorMessage{Type: TypeError, Text: text} }

func Encode(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	return b, nil
}

// MembersText renders "In room: a, b". An empty room renders "In room".
func MembersText(names []string) string {
	if len(names) == 0 {
		return "In room"
	}
	return "In room: " + strings.Join(names, ", ")
}

func JoinedText(name, room string) string {
	return fmt.Sprintf("%s joined \"%s\".", name, room)
}

func LeftText(name, room string) string {
	return fmt.Sprintf("%s left %s.", name, room)
}
