package errcode

import (
	"errors"
	"fmt"
)

type Code int

const (
	Empty Code = iota
	ConnectionClosed
	GameStateTimeout
	RoomClosed
	RoomFull
	WrongPassword
	BannedBefore
	IncompatibleVersion
	FailedHost
	Unknown
	Cancelled
	FailedPeer
	KickedNow
	Failed
	MasterConnectionError
	StadiumParseError
	StadiumParseSyntaxError
	StadiumParseUnknownError
	ObjectCastError
	TeamColorsReadError
	UTF8CharacterDecodeError
	ReadTooMuchError
	ReadWrongStringLengthError
	EncodeUTF8CharNegativeError
	EncodeUTF8CharTooLargeError
	CalculateLengthOfUTF8CharNegativeError
	CalculateLengthOfUTF8CharTooLargeError
	BufferResizeParameterTooSmallError
	BadColorError
	BadTeamError
	StadiumLimitsExceededError
	MissingActionConfigError
	UnregisteredActionError
	MissingImplementationError
	AnnouncementActionMessageTooLongError
	ChatActionMessageTooLongError
	KickBanReasonTooLongError
	ChangeTeamColorsInvalidTeamIdError
	MissingRecaptchaCallbackError
	ReplayFileVersionMismatchError
	ReplayFileReadError
	JoinRoomNullIdAuthError
	PlayerNameTooLongError
	PlayerCountryTooLongError
	PlayerAvatarTooLongError
	PlayerJoinBlockedByMPDError
	PlayerJoinBlockedByORError
	PluginNotFoundError
	PluginNameChangeNotAllowedError
	LibraryNotFoundError
	LibraryNameChangeNotAllowedError
	AuthFromKeyInvalidIdFormatError
	LanguageAlreadyExistsError
	CurrentLanguageRemovalError
	LanguageDoesNotExistError
	BadActorError

	codeCount
)

var codeNames = [codeCount]string{
	"Empty",
	"ConnectionClosed",
	"GameStateTimeout",
	"RoomClosed",
	"RoomFull",
	"WrongPassword",
	"BannedBefore",
	"IncompatibleVersion",
	"FailedHost",
	"Unknown",
	"Cancelled",
	"FailedPeer",
	"KickedNow",
	"Failed",
	"MasterConnectionError",
	"StadiumParseError",
	"StadiumParseSyntaxError",
	"StadiumParseUnknownError",
	"ObjectCastError",
	"TeamColorsReadError",
	"UTF8CharacterDecodeError",
	"ReadTooMuchError",
	"ReadWrongStringLengthError",
	"EncodeUTF8CharNegativeError",
	"EncodeUTF8CharTooLargeError",
	"CalculateLengthOfUTF8CharNegativeError",
	"CalculateLengthOfUTF8CharTooLargeError",
	"BufferResizeParameterTooSmallError",
	"BadColorError",
	"BadTeamError",
	"StadiumLimitsExceededError",
	"MissingActionConfigError",
	"UnregisteredActionError",
	"MissingImplementationError",
	"AnnouncementActionMessageTooLongError",
	"ChatActionMessageTooLongError",
	"KickBanReasonTooLongError",
	"ChangeTeamColorsInvalidTeamIdError",
	"MissingRecaptchaCallbackError",
	"ReplayFileVersionMismatchError",
	"ReplayFileReadError",
	"JoinRoomNullIdAuthError",
	"PlayerNameTooLongError",
	"PlayerCountryTooLongError",
	"PlayerAvatarTooLongError",
	"PlayerJoinBlockedByMPDError",
	"PlayerJoinBlockedByORError",
	"PluginNotFoundError",
	"PluginNameChangeNotAllowedError",
	"LibraryNotFoundError",
	"LibraryNameChangeNotAllowedError",
	"AuthFromKeyInvalidIdFormatError",
	"LanguageAlreadyExistsError",
	"CurrentLanguageRemovalError",
	"LanguageDoesNotExistError",
	"BadActorError",
}

func (c Code) String() string {
	if c < 0 || c >= codeCount {
		return fmt.Sprintf("Code(%d)", int(c))
	}
	return codeNames[c]
}

func (c Code) Valid() bool {
	return c >= 0 && c < codeCount
}

// Kind groups codes by how the room reacts to them.
type Kind int

const (
	KindOther Kind = iota
	KindLifecycle
	KindCodec
	KindValidation
	KindConfiguration
)

func (c Code) Kind() Kind {
	switch c {
	case ConnectionClosed, GameStateTimeout, RoomClosed, RoomFull, WrongPassword, BannedBefore,
		IncompatibleVersion, FailedHost, Cancelled, FailedPeer, KickedNow, MasterConnectionError:
		return KindLifecycle
	case UTF8CharacterDecodeError, ReadTooMuchError, ReadWrongStringLengthError,
		EncodeUTF8CharNegativeError, EncodeUTF8CharTooLargeError,
		CalculateLengthOfUTF8CharNegativeError, CalculateLengthOfUTF8CharTooLargeError,
		BufferResizeParameterTooSmallError, ReplayFileVersionMismatchError, ReplayFileReadError:
		return KindCodec
	case ObjectCastError, TeamColorsReadError, BadColorError, BadTeamError, StadiumLimitsExceededError,
		AnnouncementActionMessageTooLongError, ChatActionMessageTooLongError, KickBanReasonTooLongError,
		ChangeTeamColorsInvalidTeamIdError, PlayerNameTooLongError, PlayerCountryTooLongError,
		PlayerAvatarTooLongError, StadiumParseError, StadiumParseSyntaxError, StadiumParseUnknownError:
		return KindValidation
	case MissingActionConfigError, UnregisteredActionError, MissingImplementationError,
		PluginNotFoundError, PluginNameChangeNotAllowedError, LibraryNotFoundError,
		LibraryNameChangeNotAllowedError:
		return KindConfiguration
	}
	return KindOther
}

// Error is a coded failure. Params hold the values a message needs, in the
// order the message expects them.
type Error struct {
	Code   Code
	Params []any
}

func New(code Code, params ...any) *Error {
	return &Error{Code: code, Params: params}
}

func (e *Error) Error() string {
	return english.Format(e)
}

func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Code == e.Code && len(other.Params) == 0
	}
	return false
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Of returns the code of err, or Unknown when err is not coded.
func Of(err error) Code {
	if err == nil {
		return Empty
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Unknown
}
