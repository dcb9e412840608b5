// Package logs reads the signdata log file for the `signdata logs` command.
//
// Last returns the final lines with bounded memory, Since reads what was
// appended after an offset, and Follow polls for new lines until its context
// ends. A file that shrank (rotated or truncated) is read again from the
// start.
package logs
