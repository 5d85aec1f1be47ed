package core

// error_messages.go maps technical errors to user-facing messages with a
// support code.
//
// # Error Codes Reference
//
// Authentication (AUTH001-AUTH099)
//
//	AUTH001 - Not signed in or session expired
//	          Action: Sign in and try again
//	AUTH002 - Login key not recognised
//
// Datasets (DS001-DS099)
//
//	DS001 - Dataset not found, or owned by someone else
//	        Action: Refresh your upload history
//	DS002 - Partial upload: dataset saved without its equipment rows
//	        Action: Delete the incomplete dataset and upload the file again
//
// Database (DB001-DB099)
//
//	DB003 - Foreign key violation ("foreign key constraint", "violates foreign key")
//	DB004 - Connection refused
//	DB005 - Connection reset
//	DB006 - Timeout
//	DB007 - Deadlock
//	DB008 - Other record store failure
//
// Validation (VAL001-VAL099)
//
//	VAL004 - Required column (name or type) missing from the header
//	VAL007 - Every data row was empty or malformed
//
// Files (FILE001-FILE099)
//
//	FILE001 - File exceeds the upload size limit
//	FILE004 - No file in the request
//	FILE005 - File has no header plus data row
//	FILE006 - File does not have a .csv extension
//
// Uploads (UPL001-UPL099)
//
//	UPL002 - All upload slots are busy
//	UPL004 - Request cancelled
//	UPL005 - Request timed out
//
// Rate limiting
//
//	RATE001 - Too many requests
//
// Fallback
//
//	ERR000 - Anything else. Check the logs for the technical error.
//
// Sentinel and typed errors are matched first with errors.Is / errors.As.
// The pattern table is a case-insensitive strings.Contains fallback for
// errors that only carry text, such as driver errors. First match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/equipview/internal/auth"
	"github.com/JonMunkholm/equipview/internal/ingest"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgUnauthorized = UserMessage{
		Message: "You are not signed in or your session has expired",
		Action:  "Sign in and try again",
		Code:    "AUTH001",
	}
	msgInvalidKey = UserMessage{
		Message: "The API key was not recognised",
		Action:  "Check the key and sign in again",
		Code:    "AUTH002",
	}
	msgDatasetNotFound = UserMessage{
		Message: "Dataset not found",
		Action:  "Refresh your upload history",
		Code:    "DS001",
	}
	msgPartialUpload = UserMessage{
		Message: "The dataset was saved but its equipment rows were not",
		Action:  "Delete the incomplete dataset and upload the file again",
		Code:    "DS002",
	}
	msgStoreFailure = UserMessage{
		Message: "Could not read or write your data",
		Action:  "Please try again in a few moments",
		Code:    "DB008",
	}
	msgMissingColumn = UserMessage{
		Message: "Required column is missing from CSV",
		Action:  "Include a name (or equipment) column and a type column in the header",
		Code:    "VAL004",
	}
	msgNoValidRecords = UserMessage{
		Message: "No valid equipment rows were found",
		Action:  "Check that data rows have as many fields as the header",
		Code:    "VAL007",
	}
	msgFileTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row and data rows",
		Code:    "FILE005",
	}
	msgNotCSV = UserMessage{
		Message: "Only CSV files are accepted",
		Action:  "Save the spreadsheet as .csv and upload it again",
		Code:    "FILE006",
	}
	msgTooManyUploads = UserMessage{
		Message: "System is busy processing other uploads",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}
	msgCanceled = UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}
	msgDeadline = UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}
)

// ErrNoFile is returned when an upload request carries no file.
var ErrNoFile = errors.New("no file provided")

// sentinelMessages is checked with errors.Is, in order.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrUnauthorized, msgUnauthorized},
	{auth.ErrSessionNotFound, msgUnauthorized},
	{auth.ErrSessionExpired, msgUnauthorized},
	{auth.ErrInvalidAPIKey, msgInvalidKey},
	{ErrDatasetNotFound, msgDatasetNotFound},
	{ingest.ErrMissingColumn, msgMissingColumn},
	{ingest.ErrNoValidRecords, msgNoValidRecords},
	{ingest.ErrEmptyFile, msgEmptyFile},
	{ErrFileTooLarge, msgFileTooLarge},
	{ErrNoFile, msgNoFile},
	{ErrNotCSV, msgNotCSV},
	{ErrTooManyUploads, msgTooManyUploads},
	{context.Canceled, msgCanceled},
	{context.DeadlineExceeded, msgDeadline},
	{ErrRateLimited, msgRateLimited},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error text (case-insensitive) to user messages.
// More specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced dataset does not exist",
			Action:  "Refresh your upload history",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced dataset does not exist",
			Action:  "Refresh your upload history",
			Code:    "DB003",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Please try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},
	{pattern: "missing required column", msg: msgMissingColumn},
	{pattern: "file too large", msg: msgFileTooLarge},
	{pattern: "request body too large", msg: msgFileTooLarge},
	{pattern: "no file provided", msg: msgNoFile},
	{pattern: "empty file", msg: msgEmptyFile},
	{pattern: "too many uploads", msg: msgTooManyUploads},
	{pattern: "rate limit", msg: msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
//
// Example:
//
//	msg := MapError(&ingest.MissingColumnError{Field: ingest.FieldType})
//	// msg.Code == "VAL004"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var ue *UserError
	if errors.As(err, &ue) {
		return ue.User
	}

	var pe *PersistError
	if errors.As(err, &pe) && pe.Orphaned() {
		return msgPartialUpload
	}

	for _, s := range sentinelMessages {
		if errors.Is(err, s.err) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	var se *StoreError
	if errors.As(err, &se) || pe != nil {
		return msgStoreFailure
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with the message shown for it.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
