// Package bench runs unattended benchmark conversations through a session.
//
// A Harness holds the session in Generating for the whole run and drives the
// engine directly, one question at a time. Each answered question yields a
// QuestionRecord with its wall time and the token counts parsed from the
// engine's runtime stats text. Conversations are persisted together as one
// pretty-printed JSON array once the run ends, after which an external
// controller is notified and Done is closed. The hosting process decides
// when to exit.
package bench
