package transport

// Incoming is one update from the chat transport: a command or free text, a
// voice note, or a button callback. Exactly one of Text, Voice or Callback
// is meaningful.
type Incoming struct {
	UserID   int64
	Text     string
	Voice    []byte
	Callback string
	// CallbackID acknowledges the button press back to the transport.
	CallbackID string
}

// Button is one inline keyboard button.
type Button struct {
	Label string
	// Data is the callback payload, routed as category:action[:param].
	Data string
}

// Keyboard is rows of inline buttons attached to an outgoing message.
type Keyboard struct {
	Rows [][]Button
}

// ApprovalKeyboard is the standard approve/reject card.
func ApprovalKeyboard() *Keyboard {
	return &Keyboard{Rows: [][]Button{{
		{Label: "✅ Approve", Data: "action:approve"},
		{Label: "❌ Reject", Data: "action:reject"},
	}}}
}

// ConfirmKeyboard asks the user to confirm a destructive action.
func ConfirmKeyboard(action string) *Keyboard {
	return &Keyboard{Rows: [][]Button{{
		{Label: "Yes", Data: "confirm:" + action},
		{Label: "No", Data: "cancel:" + action},
	}}}
}

// MessageRef identifies a sent message so it can be edited in place.
type MessageRef struct {
	ChatID    int64
	MessageID int64
}

// Messenger is the minimal surface the app layer needs from any chat
// transport.
type Messenger interface {
	Send(userID int64, text string, kb *Keyboard) (MessageRef, error)
	Edit(ref MessageRef, text string) error
	AnswerCallback(callbackID, text string) error
}
