package wire

import "errors"

var ErrUnknownEvent = errors.New("unknown event")

// Client-to-server event names.
const (
	ActionRegister        = "register-user"
	ActionGoFree          = "go-free"
	ActionGoBusy          = "go-busy"
	ActionSendChatRequest = "send-chat-request"
	ActionAcceptChat      = "accept-chat"
	ActionRejectChat      = "reject-chat"
	ActionTyping          = "typing"
	ActionStopTyping      = "stop-typing"
	ActionSendMessage     = "send-private-message"
	ActionEditMessage     = "edit-message"
	ActionDeleteMessage   = "delete-message"
	ActionEndChat         = "end-chat"
	ActionSendReaction    = "send-reaction"
	ActionGameToggle      = "game-toggle"
	ActionGameSelect      = "game-select"
	ActionDrawStart       = "draw-start"
	ActionDrawMove        = "draw-move"
	ActionDrawClear       = "draw-clear"
	ActionDrawToggle      = "draw-toggle"
)

// MessageType discriminates text and image (snapshot) messages.
type MessageType string

const (
	TextMessage  MessageType = "text"
	ImageMessage MessageType = "image"
)

type Register struct {
	SessionID string `json:"sessionId"`
}

func (Register) Action() string { return ActionRegister }

type GoFree struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Gender string `json:"gender,omitempty"`
}

func (GoFree) Action() string { return ActionGoFree }

type GoBusy struct {
	ID string `json:"id"`
}

func (GoBusy) Action() string { return ActionGoBusy }

type SendChatRequest struct {
	SenderID     string `json:"senderId"`
	SenderName   string `json:"senderName"`
	ReceiverID   string `json:"receiverId"`
	ReceiverName string `json:"receiverName"`
	SenderVibe   string `json:"senderVibe"`
}

func (SendChatRequest) Action() string { return ActionSendChatRequest }

type AcceptChat struct {
	SenderID     string `json:"senderId"`
	SenderName   string `json:"senderName"`
	ReceiverID   string `json:"receiverId"`
	ReceiverName string `json:"receiverName"`
}

func (AcceptChat) Action() string { return ActionAcceptChat }

type RejectChat struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

func (RejectChat) Action() string { return ActionRejectChat }

type Typing struct {
	RoomID     string `json:"roomId"`
	SenderName string `json:"senderName"`
}

func (Typing) Action() string { return ActionTyping }

type StopTyping struct {
	RoomID string `json:"roomId"`
}

func (StopTyping) Action() string { return ActionStopTyping }

type SendMessage struct {
	RoomID     string      `json:"roomId"`
	Message    string      `json:"message"`
	SenderName string      `json:"senderName"`
	Type       MessageType `json:"type"`
	ClientID   string      `json:"clientId"`
}

func (SendMessage) Action() string { return ActionSendMessage }

type EditMessage struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	NewText   string `json:"newText"`
}

func (EditMessage) Action() string { return ActionEditMessage }

type DeleteMessage struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

func (DeleteMessage) Action() string { return ActionDeleteMessage }

type EndChat struct {
	RoomID     string `json:"roomId"`
	SenderName string `json:"senderName"`
}

func (EndChat) Action() string { return ActionEndChat }

type SendReaction struct {
	RoomID   string `json:"roomId"`
	TargetID string `json:"targetId"`
	Emoji    string `json:"emoji"`
}

func (SendReaction) Action() string { return ActionSendReaction }

type GameToggle struct {
	RoomID string `json:"roomId"`
	Open   bool   `json:"open"`
}

func (GameToggle) Action() string { return ActionGameToggle }

type GameSelect struct {
	RoomID string `json:"roomId"`
	Emoji  string `json:"emoji"`
}

func (GameSelect) Action() string { return ActionGameSelect }

type DrawStart struct {
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
}

func (DrawStart) Action() string { return ActionDrawStart }

type DrawMove struct {
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (DrawMove) Action() string { return ActionDrawMove }

type DrawClear struct {
	RoomID string `json:"roomId"`
}

func (DrawClear) Action() string { return ActionDrawClear }

type DrawToggle struct {
	RoomID string `json:"roomId"`
	Open   bool   `json:"open"`
}

func (DrawToggle) Action() string { return ActionDrawToggle }

var actionRegistry = map[string]func() Action{
	ActionRegister:        func() Action { return &Register{} },
	ActionGoFree:          func() Action { return &GoFree{} },
	ActionGoBusy:          func() Action { return &GoBusy{} },
	ActionSendChatRequest: func() Action { return &SendChatRequest{} },
	ActionAcceptChat:      func() Action { return &AcceptChat{} },
	ActionRejectChat:      func() Action { return &RejectChat{} },
	ActionTyping:          func() Action { return &Typing{} },
	ActionStopTyping:      func() Action { return &StopTyping{} },
	ActionSendMessage:     func() Action { return &SendMessage{} },
	ActionEditMessage:     func() Action { return &EditMessage{} },
	ActionDeleteMessage:   func() Action { return &DeleteMessage{} },
	ActionEndChat:         func() Action { return &EndChat{} },
	ActionSendReaction:    func() Action { return &SendReaction{} },
	ActionGameToggle:      func() Action { return &GameToggle{} },
	ActionGameSelect:      func() Action { return &GameSelect{} },
	ActionDrawStart:       func() Action { return &DrawStart{} },
	ActionDrawMove:        func() Action { return &DrawMove{} },
	ActionDrawClear:       func() Action { return &DrawClear{} },
	ActionDrawToggle:      func() Action { return &DrawToggle{} },
}
