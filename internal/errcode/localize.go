package errcode

import (
	"errors"
	"fmt"
	"sort"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Languages holds the message tables a Localizer can be built from. It is
// plain data owned by whoever configures the room; nothing in this package
// keeps a current language.
type Languages struct {
	texts map[language.Tag]map[Code]string
}

func NewLanguages() *Languages {
	return &Languages{
		texts: map[language.Tag]map[Code]string{
			language.English: cloneTexts(englishTexts),
			language.Turkish: cloneTexts(turkishTexts),
		},
	}
}

func (l *Languages) Add(tag language.Tag, texts map[Code]string) error {
	if _, exists := l.texts[tag]; exists {
		return New(LanguageAlreadyExistsError, tag.String())
	}
	l.texts[tag] = cloneTexts(texts)
	return nil
}

// Remove drops a language. The language current is using cannot be removed.
func (l *Languages) Remove(tag language.Tag, current *Localizer) error {
	if _, exists := l.texts[tag]; !exists {
		return New(LanguageDoesNotExistError, tag.String())
	}
	if current != nil && current.tag == tag {
		return New(CurrentLanguageRemovalError)
	}
	delete(l.texts, tag)
	return nil
}

func (l *Languages) Tags() []language.Tag {
	tags := make([]language.Tag, 0, len(l.texts))
	for tag := range l.texts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
	return tags
}

func (l *Languages) Localizer(tag language.Tag) (*Localizer, error) {
	if _, exists := l.texts[tag]; !exists {
		return nil, New(LanguageDoesNotExistError, tag.String())
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for t, texts := range l.texts {
		for code, text := range texts {
			if err := b.SetString(t, messageKey(code), text); err != nil {
				return nil, fmt.Errorf("failed to register %s message for %s: %w", code, t, err)
			}
		}
	}
	if err := b.SetString(language.English, kickedKey, englishKicked); err != nil {
		return nil, fmt.Errorf("failed to register kick message: %w", err)
	}
	if _, ok := l.texts[language.Turkish]; ok {
		if err := b.SetString(language.Turkish, kickedKey, turkishKicked); err != nil {
			return nil, fmt.Errorf("failed to register kick message: %w", err)
		}
	}

	return &Localizer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(b)),
	}, nil
}

// Localizer formats coded errors in one language.
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

func (l *Localizer) Tag() language.Tag {
	return l.tag
}

func (l *Localizer) Format(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	key, args := messageArgs(e)
	return l.printer.Sprintf(key, args...)
}

const kickedKey = "KickedNow.ban"

func messageKey(code Code) string {
	return code.String()
}

// messageArgs turns optional parameters into the fixed argument list the
// catalog strings expect.
func messageArgs(e *Error) (string, []any) {
	param := func(i int) any {
		if i < len(e.Params) && e.Params[i] != nil {
			return e.Params[i]
		}
		return ""
	}

	switch e.Code {
	case ConnectionClosed:
		reason := fmt.Sprint(param(0))
		if reason != "" {
			reason = " (" + reason + ")"
		}
		return messageKey(e.Code), []any{reason}
	case KickedNow:
		reason := fmt.Sprint(param(0))
		if reason != "" {
			reason = " (" + reason + ")"
		}
		by := fmt.Sprint(param(2))
		key := messageKey(e.Code)
		if ban, _ := param(1).(bool); ban {
			key = kickedKey
		}
		return key, []any{by, reason}
	}

	arity := arities[e.Code]
	args := make([]any, arity)
	for i := range args {
		args[i] = param(i)
	}
	return messageKey(e.Code), args
}

var arities = map[Code]int{
	StadiumParseError:                      2,
	StadiumParseSyntaxError:                1,
	ObjectCastError:                        2,
	UTF8CharacterDecodeError:               2,
	ReadWrongStringLengthError:             1,
	EncodeUTF8CharNegativeError:            1,
	EncodeUTF8CharTooLargeError:            1,
	CalculateLengthOfUTF8CharNegativeError: 1,
	CalculateLengthOfUTF8CharTooLargeError: 1,
	PlayerJoinBlockedByMPDError:            3,
	PlayerJoinBlockedByORError:             1,
	PluginNotFoundError:                    1,
	LibraryNotFoundError:                   1,
	LanguageAlreadyExistsError:             1,
	LanguageDoesNotExistError:              1,
	ReplayFileVersionMismatchError:         2,
}

func cloneTexts(src map[Code]string) map[Code]string {
	out := make(map[Code]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

var english = mustEnglish()

func mustEnglish() *Localizer {
	l := &Languages{texts: map[language.Tag]map[Code]string{language.English: englishTexts}}
	loc, err := l.Localizer(language.English)
	if err != nil {
		panic(err)
	}
	return loc
}
