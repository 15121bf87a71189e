// Package attachment holds the domain vocabulary shared by every layer of the
// attachment service: scan statuses, default field names and the error
// taxonomy.
package attachment

import "fmt"

// Status is the malware scan status of a stored attachment.
type Status string

const (
	StatusUnscanned Status = "Unscanned"
	StatusScanning  Status = "Scanning"
	StatusClean     Status = "Clean"
	StatusInfected  Status = "Infected"
	StatusNoScanner Status = "NoScanner"
)

// Default element names of an attachment entity.
const (
	FieldContent    = "content"
	FieldDocumentID = "documentId"
	FieldContentID  = "contentId"
	FieldFileName   = "fileName"
	FieldMimeType   = "mimeType"
	FieldStatus     = "status"
	FieldSize       = "size"
)

// Known reports whether s is one of the defined statuses.
func (s Status) Known() bool {
	switch s {
	case StatusUnscanned, StatusScanning, StatusClean, StatusInfected, StatusNoScanner:
		return true
	}
	return false
}

func (s Status) String() string { return string(s) }

// ParseStatus converts a record value into a Status. Nil and empty values map
// to Unscanned; unrecognized strings are preserved so the gate can reject them.
func ParseStatus(v any) Status {
	switch s := v.(type) {
	case nil:
		return StatusUnscanned
	case Status:
		if s == "" {
			return StatusUnscanned
		}
		return s
	case string:
		if s == "" {
			return StatusUnscanned
		}
		return Status(s)
	case fmt.Stringer:
		return Status(s.String())
	default:
		return Status(fmt.Sprint(v))
	}
}

// transitions lists the statuses reachable from each state.
var transitions = map[Status][]Status{
	StatusUnscanned: {StatusScanning, StatusClean, StatusInfected, StatusNoScanner},
	StatusScanning:  {StatusClean, StatusInfected},
	StatusClean:     {StatusScanning},
	StatusNoScanner: {StatusScanning},
}

// CanTransition reports whether a scan status may move from one state to another.
// Infected is terminal.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
