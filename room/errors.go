package room

import "errors"

// Kind classifies a failed room action.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthorization
	KindNotFound
	KindConflict
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	}
	return "internal"
}

// Error is a failure reported to the offending connection only. Message is
// sent to the client as is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf returns the kind of a room error, KindInternal for anything else.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage is the text a client may see for err.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "Internal server error."
}

var (
	ErrNotHost             = newError(KindAuthorization, "Only room host is allowed to do that.")
	ErrNotMember           = newError(KindAuthorization, "You are not in this room.")
	ErrWrongPassword       = newError(KindConflict, "Wrong password.")
	ErrRoomNotFound        = newError(KindNotFound, "Cannot find the room.")
	ErrPlayerNotFound      = newError(KindNotFound, "Cannot find the player.")
	ErrKickTarget          = newError(KindNotFound, "Cannot find the player to kick.")
	ErrHostTarget          = newError(KindNotFound, "Cannot find the player to transfer the host to.")
	ErrKickSelf            = newError(KindInvalid, "You cannot kick yourself.")
	ErrRoomFull            = newError(KindConflict, "The room is full.")
	ErrHostNotConnected    = newError(KindConflict, "The room host has not connected yet.")
	ErrMatchInProgress     = newError(KindConflict, "Cannot change the beatmap while somebody is playing.")
	ErrJoinDuringMatch     = newError(KindConflict, "Cannot join while a match is in progress.")
	ErrNoBeatmap           = newError(KindConflict, "No beatmap is selected.")
	ErrNotIdle             = newError(KindConflict, "The room is not ready to start a match.")
	ErrNoMatch             = newError(KindConflict, "No match going on in the room.")
	ErrNotTeamMode         = newError(KindConflict, "Cannot change team in a head-to-head room.")
	ErrDuplicateSubmission = newError(KindConflict, "Score already submitted.")
	ErrChatRateLimited     = newError(KindConflict, "You are sending messages too fast.")
	ErrInvalidPayload      = newError(KindInvalid, "Invalid payload.")
	ErrUnknownMessage      = newError(KindInvalid, "Unknown message.")
	ErrInvalidName         = newError(KindInvalid, "Room name must be between 1 and 64 characters.")
	ErrInvalidMaxPlayers   = newError(KindInvalid, "Invalid maximum player count.")
	ErrInvalidSpeed        = newError(KindInvalid, "Speed multiplier must be positive.")
	ErrInvalidTeamMode     = newError(KindInvalid, "Invalid team mode.")
	ErrInvalidWinCondition = newError(KindInvalid, "Invalid win condition.")
	ErrInvalidTeam         = newError(KindInvalid, "Invalid team.")
	ErrInvalidStatus       = newError(KindInvalid, "Invalid player status.")
	ErrInvalidBeatmap      = newError(KindInvalid, "Invalid beatmap.")
	ErrInvalidScore        = newError(KindInvalid, "Invalid score.")
	ErrInvalidChat         = newError(KindInvalid, "Chat messages must be between 1 and 500 characters.")
)
