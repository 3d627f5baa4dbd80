// ABOUTME: Error taxonomy for the agent service client
// ABOUTME: TransportError, RemoteError, and ProtocolError with best-effort detail extraction

package foundry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TransportError wraps a connection-level failure (dial, TLS, timeout)
// talking to the agent service. The remote was never heard from.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport failure: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a non-success HTTP status from the agent service, with
// structured code/message detail when the body carried an error object.
type RemoteError struct {
	Op      string
	Status  int
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Code != "" || e.Message != "" {
		return fmt.Sprintf("%s: remote status %d: %s: %s", e.Op, e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: remote status %d", e.Op, e.Status)
}

// ProtocolError means the remote answered with a success status but the body
// lacked a field the contract promises (e.g. a run identifier).
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: protocol error: %s", e.Op, e.Detail)
}

// errorBody is the optional error envelope on non-success responses.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// remoteError classifies a non-success response. The structured error object
// is preferred; otherwise the raw body becomes the message.
func remoteError(op string, status int, body []byte) *RemoteError {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && (eb.Error.Code != "" || eb.Error.Message != "") {
		return &RemoteError{Op: op, Status: status, Code: eb.Error.Code, Message: eb.Error.Message}
	}
	return &RemoteError{Op: op, Status: status, Message: strings.TrimSpace(string(body))}
}
