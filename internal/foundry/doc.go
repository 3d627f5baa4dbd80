// Package foundry is the client for the remote managed agent service.
//
// # Overview
//
// The service exposes a threads/messages/runs REST contract:
//
//	POST {endpoint}/threads?api-version=v1                     -> {id}
//	POST {endpoint}/threads/{id}/messages?api-version=v1       -> 200/201
//	POST {endpoint}/threads/{id}/runs?api-version=v1           -> {id}
//	GET  {endpoint}/threads/{id}/runs/{runID}?api-version=v1   -> {status, last_error?}
//	GET  {endpoint}/threads/{id}/messages?api-version=v1       -> {data: [...]}
//
// The Client wraps two operations: CreateThread, and Exchange - the full
// post-message / start-run / poll / fetch-reply sequence.
//
// # The Exchange Sequence
//
// Exchange is synchronous and blocks its caller for the full duration:
//
//  1. Post the user text as a message. Non-2xx aborts.
//  2. Start a run. Non-2xx aborts; a success body without a run id is a
//     ProtocolError.
//  3. Poll the run status once per second, up to 45 attempts. "completed"
//     proceeds; "failed", "cancelled", "expired" abort with a RemoteError
//     carrying the run's last_error detail when present. Budget exhaustion
//     returns SoftTimeoutReply - deliberately not an error.
//  4. Fetch the message listing, scan newest-first by created_at, and return
//     the first non-empty text value from an assistant message. Content
//     blocks may be shaped {text:{value}} or flat {value}. No text found
//     returns MissingTextReply, still a success.
//
// # Errors
//
//   - *TransportError: connection-level failure, the remote never answered
//   - *RemoteError: non-success status, with {error:{code,message}} detail
//     extracted from the body when present
//   - *ProtocolError: success status but a promised field was missing
//
// Nothing is retried internally except the fixed run-status poll loop.
package foundry
