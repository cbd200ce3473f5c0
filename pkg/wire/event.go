package wire

// Server-to-client event names. Room establishment deliberately uses two
// channels: the original requester hears chat-started, the acceptor hears
// chat-init-receiver, both carrying the same room shape.
const (
	EventUsersUpdate         = "users-update"
	EventReceiveChatRequest  = "receive-chat-request"
	EventRequestExpired      = "request-expired"
	EventRequestIgnored      = "request-ignored"
	EventRequestFailed       = "request-failed"
	EventLimitReached        = "limit-reached"
	EventRequestRejected     = "request-rejected"
	EventRequestSentSuccess  = "request-sent-success"
	EventChatStarted         = "chat-started"
	EventChatInitReceiver    = "chat-init-receiver"
	EventPartnerTyping       = "partner-typing"
	EventPartnerStopTyping   = "partner-stop-typing"
	EventNewMessage          = "new-message"
	EventMessageUpdated      = "message-updated"
	EventMessageDeleted      = "message-deleted"
	EventPartnerLeft         = "partner-left"
	EventNewReaction         = "new-reaction"
	EventGameToggled         = "game-toggled"
	EventGameState           = "game-state"
	EventGamePartnerSelected = "game-partner-selected"
	EventGameResult          = "game-result"
	EventDrawStarted         = "draw-started"
	EventDrawMoved           = "draw-moved"
	EventDrawCleared         = "draw-cleared"
	EventDrawToggled         = "draw-toggled"
	EventUsageUpdate         = "usage-update"
	EventAdminWarning        = "admin-warning"
	EventAdminSuspension     = "admin-suspension"
)

// PresenceRecord is one roster entry. The roster is replaced wholesale on
// every users-update.
type PresenceRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Gender    string `json:"gender,omitempty"`
	IsPremium bool   `json:"isPremium,omitempty"`
}

type UsersUpdate struct {
	Users []PresenceRecord `json:"users"`
}

func (UsersUpdate) Event() string { return EventUsersUpdate }

type ReceiveChatRequest struct {
	SenderID     string `json:"senderId"`
	SenderName   string `json:"senderName"`
	ReceiverID   string `json:"receiverId"`
	ReceiverName string `json:"receiverName"`
	SenderVibe   string `json:"senderVibe"`
	IsPriority   bool   `json:"isPriority,omitempty"`
}

func (ReceiveChatRequest) Event() string { return EventReceiveChatRequest }

type RequestExpired struct{}

func (RequestExpired) Event() string { return EventRequestExpired }

type RequestIgnored struct {
	Message string `json:"message"`
}

func (RequestIgnored) Event() string { return EventRequestIgnored }

type RequestFailed struct {
	Message      string `json:"message"`
	LimitReached bool   `json:"limitReached,omitempty"`
}

func (RequestFailed) Event() string { return EventRequestFailed }

type LimitReached struct {
	Message string `json:"message"`
}

func (LimitReached) Event() string { return EventLimitReached }

type RequestRejected struct {
	Message string `json:"message"`
}

func (RequestRejected) Event() string { return EventRequestRejected }

type RequestSentSuccess struct{}

func (RequestSentSuccess) Event() string { return EventRequestSentSuccess }

// RoomData is the converged room shape delivered on both establishment
// channels.
type RoomData struct {
	RoomID      string `json:"roomId"`
	PartnerName string `json:"partnerName"`
}

type ChatStarted struct {
	RoomData
}

func (ChatStarted) Event() string { return EventChatStarted }

type ChatInitReceiver struct {
	RoomData
}

func (ChatInitReceiver) Event() string { return EventChatInitReceiver }

type PartnerTyping struct {
	RoomID     string `json:"roomId"`
	SenderName string `json:"senderName"`
}

func (PartnerTyping) Event() string { return EventPartnerTyping }

type PartnerStopTyping struct {
	RoomID string `json:"roomId"`
}

func (PartnerStopTyping) Event() string { return EventPartnerStopTyping }

type NewMessage struct {
	ID        string      `json:"id"`
	ClientID  string      `json:"clientId,omitempty"`
	RoomID    string      `json:"roomId"`
	Sender    string      `json:"sender"`
	Text      string      `json:"text"`
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

func (NewMessage) Event() string { return EventNewMessage }

type MessageUpdated struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	NewText   string `json:"newText"`
}

func (MessageUpdated) Event() string { return EventMessageUpdated }

type MessageDeleted struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

func (MessageDeleted) Event() string { return EventMessageDeleted }

type PartnerLeft struct {
	RoomID     string `json:"roomId"`
	SenderName string `json:"senderName"`
}

func (PartnerLeft) Event() string { return EventPartnerLeft }

type NewReaction struct {
	RoomID   string `json:"roomId"`
	TargetID string `json:"targetId"`
	Emoji    string `json:"emoji"`
	Sender   string `json:"sender"`
}

func (NewReaction) Event() string { return EventNewReaction }

type GameToggled struct {
	RoomID string `json:"roomId"`
	IsOpen bool   `json:"isOpen"`
}

func (GameToggled) Event() string { return EventGameToggled }

// GameState announces a round. TurnID is wholly server-assigned; clients
// never infer the alternation rule.
type GameState struct {
	RoomID string `json:"roomId"`
	Round  int    `json:"round"`
	TurnID string `json:"turnId"`
}

func (GameState) Event() string { return EventGameState }

type GamePartnerSelected struct {
	RoomID string `json:"roomId"`
}

func (GamePartnerSelected) Event() string { return EventGamePartnerSelected }

type GameResult struct {
	RoomID     string            `json:"roomId"`
	Selections map[string]string `json:"selections"`
	IsMatch    bool              `json:"isMatch"`
}

func (GameResult) Event() string { return EventGameResult }

type DrawStarted struct {
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Color  string  `json:"color"`
}

func (DrawStarted) Event() string { return EventDrawStarted }

type DrawMoved struct {
	RoomID string  `json:"roomId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

func (DrawMoved) Event() string { return EventDrawMoved }

type DrawCleared struct {
	RoomID string `json:"roomId"`
}

func (DrawCleared) Event() string { return EventDrawCleared }

type DrawToggled struct {
	RoomID string `json:"roomId"`
	IsOpen bool   `json:"isOpen"`
}

func (DrawToggled) Event() string { return EventDrawToggled }

// GlobalConfig carries the remotely pushed feature flags and caps.
type GlobalConfig struct {
	EliteEnabled bool `json:"eliteEnabled"`
	PingLimit    int  `json:"pingLimit"`
	ToggleLimit  int  `json:"toggleLimit"`
}

// UsageUpdate pushes the authoritative quota numbers. The client only
// displays these; it never counts on its own.
type UsageUpdate struct {
	RequestsToday int          `json:"requestsToday"`
	GoFreeToday   int          `json:"goFreeToday"`
	IsPremium     bool         `json:"isPremium"`
	GlobalConfig  GlobalConfig `json:"globalConfig"`
}

func (UsageUpdate) Event() string { return EventUsageUpdate }

type AdminWarning struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

func (AdminWarning) Event() string { return EventAdminWarning }

type AdminSuspension struct {
	Email                     string `json:"email"`
	IsSuspended               bool   `json:"isSuspended"`
	NeedsUnsuspendAcknowledge bool   `json:"needsUnsuspendAcknowledge,omitempty"`
}

func (AdminSuspension) Event() string { return EventAdminSuspension }

var eventRegistry = map[string]func() Event{
	EventUsersUpdate:         func() Event { return &UsersUpdate{} },
	EventReceiveChatRequest:  func() Event { return &ReceiveChatRequest{} },
	EventRequestExpired:      func() Event { return &RequestExpired{} },
	EventRequestIgnored:      func() Event { return &RequestIgnored{} },
	EventRequestFailed:       func() Event { return &RequestFailed{} },
	EventLimitReached:        func() Event { return &LimitReached{} },
	EventRequestRejected:     func() Event { return &RequestRejected{} },
	EventRequestSentSuccess:  func() Event { return &RequestSentSuccess{} },
	EventChatStarted:         func() Event { return &ChatStarted{} },
	EventChatInitReceiver:    func() Event { return &ChatInitReceiver{} },
	EventPartnerTyping:       func() Event { return &PartnerTyping{} },
	EventPartnerStopTyping:   func() Event { return &PartnerStopTyping{} },
	EventNewMessage:          func() Event { return &NewMessage{} },
	EventMessageUpdated:      func() Event { return &MessageUpdated{} },
	EventMessageDeleted:      func() Event { return &MessageDeleted{} },
	EventPartnerLeft:         func() Event { return &PartnerLeft{} },
	EventNewReaction:         func() Event { return &NewReaction{} },
	EventGameToggled:         func() Event { return &GameToggled{} },
	EventGameState:           func() Event { return &GameState{} },
	EventGamePartnerSelected: func() Event { return &GamePartnerSelected{} },
	EventGameResult:          func() Event { return &GameResult{} },
	EventDrawStarted:         func() Event { return &DrawStarted{} },
	EventDrawMoved:           func() Event { return &DrawMoved{} },
	EventDrawCleared:         func() Event { return &DrawCleared{} },
	EventDrawToggled:         func() Event { return &DrawToggled{} },
	EventUsageUpdate:         func() Event { return &UsageUpdate{} },
	EventAdminWarning:        func() Event { return &AdminWarning{} },
	EventAdminSuspension:     func() Event { return &AdminSuspension{} },
}
