package estatement

import (
	"errors"
	"strings"
)

// Sentinel errors returned by the library.
var (
	// ErrWaitTimeout is returned by [WaitFor] when the condition does not
	// hold before the timeout elapses.
	ErrWaitTimeout = errors.New("estatement: timed out waiting for condition")

	// ErrLogoutLinkNotFound is returned when the logout link is absent.
	ErrLogoutLinkNotFound = errors.New("estatement: could not find logout link")

	// ErrNoConverter is returned when no text converter can be resolved.
	ErrNoConverter = errors.New("estatement: no text converter available")
)

// Kind tags a failure with its category.
type Kind string

// Failure kinds. An untagged failure has the empty Kind.
const (
	KindConfigurationInvalid Kind = "ConfigurationInvalid"
	KindNavigationTimeout    Kind = "NavigationTimeout"
	KindElementNotFound      Kind = "ElementNotFound"
	KindDialogInterrupt      Kind = "DialogInterrupt"
	KindDownloadTimeout      Kind = "DownloadTimeout"
	KindFilesystem           Kind = "Filesystem"
)

// Error is a tagged failure recorded by the session pipeline.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first [*Error] in err's chain, or the empty
// Kind if there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// FormatFailure renders err as the single line shown to the operator:
// "Error (Kind): message" for tagged failures and "Error: message" otherwise.
// Multi-line messages are flattened, each line trimmed and joined by a space.
func FormatFailure(err error) string {
	if err == nil {
		return ""
	}
	prefix := "Error:"
	if k := KindOf(err); k != "" {
		prefix = "Error (" + string(k) + "):"
	}
	lines := strings.Split(err.Error(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return prefix + " " + strings.Join(lines, " ")
}

func configError(msg string) error {
	return &Error{Kind: KindConfigurationInvalid, Message: "estatement: " + msg}
}
