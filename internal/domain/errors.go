package domain

import "errors"

// Domain errors.
var (
	// ErrInvalidCredential is returned when the platform rejects a credential
	// that was read successfully. Distinguish it from I/O failures (wrapped
	// os errors): an I/O failure is a configuration problem, a rejected
	// credential needs a fresh login.
	ErrInvalidCredential = errors.New("credential rejected by platform")

	// ErrQRNotScanned is returned while a QR challenge has not been scanned
	// and confirmed yet.
	ErrQRNotScanned = errors.New("qr code not scanned")

	// ErrQRExpired is returned when a QR challenge has expired.
	ErrQRExpired = errors.New("qr code expired")

	// ErrInvalidSMSCode is returned when the SMS verification code is wrong.
	ErrInvalidSMSCode = errors.New("invalid sms code")

	// ErrEmptyFile is returned when a zero-byte video file is supplied.
	// Detected before any network call.
	ErrEmptyFile = errors.New("empty video file")

	// ErrNoVideos is returned when a publish record carries no video parts.
	ErrNoVideos = errors.New("no videos to submit")

	// ErrLocalCover is returned when a publish record still references a
	// local cover path at submission time.
	ErrLocalCover = errors.New("cover not resolved to a remote url")

	// ErrMissingField is returned when a success response lacks a field the
	// contract requires (e.g. the bvid of a published record).
	ErrMissingField = errors.New("response missing expected field")

	// ErrNoFreeSpace is returned when the download target disk is full.
	ErrNoFreeSpace = errors.New("insufficient disk space")
)

// OpError wraps an error with the operation step and subject that failed.
type OpError struct {
	Op      string // step, e.g. "open credential file", "upload chunk"
	Subject string // path, bvid or endpoint involved
	Err     error
}

func (e *OpError) Error() string {
	if e.Subject != "" {
		return e.Op + " " + e.Subject + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Wrap builds an OpError preserving the cause for errors.Is/As.
func Wrap(op, subject string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Subject: subject, Err: err}
}
