// Package logging provides opt-in file-based logging with rotation for roux.
// When the --debug flag is set, comprehensive logs are written to ~/.roux/logs/
// for debugging and troubleshooting.
//
// By default (without --debug), logging is minimal and goes to stderr only,
// preserving the "It Just Works" philosophy. `roux serve` is the exception:
// it always logs to the file under ~/.roux/logs/ and never to stderr (see
// SetupMCPMode).
package logging
