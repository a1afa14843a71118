// Package processor contains the command logic behind the transproxy CLI.
// It connects the placeholder codec, skip-word masking, the translation
// client, the background segment translator and the SQLite cache, and
// prints results for the user.
package processor
