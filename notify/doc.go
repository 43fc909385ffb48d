// Package notify is the one-way outbound port for account emails.
//
// # Components
//
//   - [Sink] delivers a [Message]. Delivery, templating and retries are the
//     sink's own business.
//   - [Dispatcher] is a buffered async relay in front of a Sink so the auth flows
//     never wait on mail delivery.
//   - [LogSink], [JSONWriterSink], [ChannelSink] and [NoOpSink] cover logging,
//     local outboxes and tests.
//
// # What this package must NOT do
//
//   - Decide which messages to send; the Engine does that.
//   - Import trackauth or any sibling package.
package notify
