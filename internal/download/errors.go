package download

import "errors"

// Sentinel errors for download flows. Use errors.Is() to match them.
var (
	// ErrInvalidInput means the trimmed model id or display name was empty. Nothing was sent.
	ErrInvalidInput = errors.New("download: model id and display name are required")

	// ErrAlreadyActive means a flow for the same model is still running.
	ErrAlreadyActive = errors.New("download: already in progress for this model")

	// ErrPollBudget means the status never became terminal within Policy.MaxPolls polls.
	ErrPollBudget = errors.New("download: timed out waiting for download status")

	// ErrServerReported wraps a status: "error" reported by the server.
	ErrServerReported = errors.New("download: server reported an error")
)
