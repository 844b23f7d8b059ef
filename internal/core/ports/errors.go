package ports

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates the upstream had nothing for the request.
var ErrNotFound = errors.New("not found")

// ErrAnalysisFailed is the generic analysis failure.
var ErrAnalysisFailed = errors.New("analysis failed")

// AnalysisError carries the upstream's reason for rejecting an upload.
type AnalysisError struct {
	StatusCode int
	Message    string
}

func (e *AnalysisError) Error() string {
	if e.Message == "" {
		return ErrAnalysisFailed.Error()
	}
	return e.Message
}

func (e *AnalysisError) Is(target error) bool {
	return target == ErrAnalysisFailed
}

// ErrNoConfidentMatch indicates search results did not meet the confidence threshold.
var ErrNoConfidentMatch = errors.New("no confident match")

// NoConfidentMatchError provides context for a failed track match.
type NoConfidentMatchError struct {
	Query string
}

func (e NoConfidentMatchError) Error() string {
	if e.Query == "" {
		return ErrNoConfidentMatch.Error()
	}
	return fmt.Sprintf("no confident match found for %q", e.Query)
}

func (e NoConfidentMatchError) Is(target error) bool {
	return target == ErrNoConfidentMatch
}
