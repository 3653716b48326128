// Package file implements a listing source that reads a local file.
//
// It serves offline fixtures and mirrored dumps of the listings document.
// Watch reports changes to the file so a long-running process can refresh
// its cache whenever the dump is replaced.
package file
