package estatement

// EventKind identifies a progress event.
type EventKind int

const (
	// EventDownloading is sent before a statement download is triggered.
	EventDownloading EventKind = iota
	// EventDownloaded is sent once the statement is in the target directory.
	EventDownloaded
	// EventConverting is sent before text conversion starts.
	EventConverting
	// EventConverted is sent when the text file has been written.
	EventConverted
	// EventWarning reports a problem that does not stop the run.
	EventWarning
)

// Event is an operator-facing progress notification.
type Event struct {
	Kind    EventKind
	Period  Period
	Path    string
	Message string
}
