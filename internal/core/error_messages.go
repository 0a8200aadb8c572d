package core

// error_messages.go maps technical errors to messages an author can act on.
//
// # Error Codes Reference
//
// Authors quote the code when asking for help; support finds the technical
// error in the logs.
//
// # Map Errors
//
//	MAP001 - No map selected, or the map type is not available
//	         Action: Choose one of the listed map types
//	MAP002 - The map type does not exist
//	         Action: Choose one of the listed map types
//	MAP003 - The map type has no example dataset
//	MAP404 - Map not found
//	         Action: Check the link or create the map again
//
// # Config Errors
//
//	CFG001 - The map settings could not be read
//	         Action: Re-open the map settings and save them again
//
// # Dataset Errors
//
//	DATA001 - A row has fewer columns than the key or value column
//	          Action: Check the column numbers and the delimiter
//	DATA002 - The delimiter is not a single character
//	          Action: Use one character, or \t for tab
//	DATA003 - The dataset is too large
//	          Action: Split the data or remove unused rows
//	DATA004 - The dataset text could not be read
//	          Action: Check for unbalanced quotes
//
// # Legend Errors
//
//	RNG001 - A legend range is not a number
//	         Action: Use the form 100,100-200,200
//
// # Import Errors
//
//	IMP001 - The file is not a readable Excel workbook
//	IMP002 - The requested sheet does not exist
//	IMP003 - Too many imports are running
//
// # Infrastructure Errors
//
//	DB001 - Database unavailable
//	DB002 - Database timeout
//	RATE001 - Too many requests
//	ERR000 - Anything else; check the logs

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/mapfield/internal/importer"
	"github.com/JonMunkholm/mapfield/internal/maptype"
)

// UserMessage is a user-friendly error with a suggested action.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// sentinelMessages is checked first, in order, with errors.Is.
var sentinelMessages = []struct {
	err error
	msg UserMessage
}{
	{ErrMissingMapType, UserMessage{
		Message: "No map selected, or the map type is not available",
		Action:  "Choose one of the listed map types",
		Code:    "MAP001",
	}},
	{maptype.ErrUnknownMapType, UserMessage{
		Message: "The map type does not exist",
		Action:  "Choose one of the listed map types",
		Code:    "MAP002",
	}},
	{maptype.ErrNoExampleDataset, UserMessage{
		Message: "This map type has no example dataset",
		Code:    "MAP003",
	}},
	{ErrMapNotFound, UserMessage{
		Message: "Map not found",
		Action:  "Check the link or create the map again",
		Code:    "MAP404",
	}},
	{ErrInvalidConfig, UserMessage{
		Message: "The map settings could not be read",
		Action:  "Re-open the map settings and save them again",
		Code:    "CFG001",
	}},
	{ErrColumnOutOfRange, UserMessage{
		Message: "A row has fewer columns than the key or value column",
		Action:  "Check the column numbers and the delimiter",
		Code:    "DATA001",
	}},
	{ErrInvalidDelimiter, UserMessage{
		Message: "The delimiter is not a single character",
		Action:  `Use one character, or \t for tab`,
		Code:    "DATA002",
	}},
	{ErrDatasetTooLarge, UserMessage{
		Message: "The dataset is too large",
		Action:  "Split the data or remove unused rows",
		Code:    "DATA003",
	}},
	{importer.ErrTooManyRows, UserMessage{
		Message: "The dataset is too large",
		Action:  "Split the data or remove unused rows",
		Code:    "DATA003",
	}},
	{ErrMalformedDataset, UserMessage{
		Message: "The dataset text could not be read",
		Action:  "Check for unbalanced quotes",
		Code:    "DATA004",
	}},
	{ErrMalformedRange, UserMessage{
		Message: "A legend range is not a number",
		Action:  "Use the form 100,100-200,200",
		Code:    "RNG001",
	}},
	{importer.ErrInvalidWorkbook, UserMessage{
		Message: "The file is not a readable Excel workbook",
		Action:  "Save the file as .xlsx and try again",
		Code:    "IMP001",
	}},
	{importer.ErrSheetNotFound, UserMessage{
		Message: "The requested sheet does not exist",
		Action:  "Check the sheet name, or leave it empty for the first sheet",
		Code:    "IMP002",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "Too many imports are running",
		Action:  "Please wait a moment and try again",
		Code:    "IMP003",
	}},
}

// errorPatterns matches driver and transport errors by substring.
var errorPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"connection refused", UserMessage{
		Message: "Database unavailable",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	}},
	{"connection reset", UserMessage{
		Message: "Database unavailable",
		Action:  "Please try again",
		Code:    "DB001",
	}},
	{"timeout", UserMessage{
		Message: "The operation timed out",
		Action:  "Please try again later",
		Code:    "DB002",
	}},
	{"context deadline exceeded", UserMessage{
		Message: "The operation timed out",
		Action:  "Please try again later",
		Code:    "DB002",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Known sentinels win over substring patterns; anything else is ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError formats err as "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to something more specific than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user message.
type UserError struct {
	Technical error       // Logged
	User      UserMessage // Shown
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
