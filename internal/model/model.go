// Package model contains the documents persisted in the object store and the
// listing entries returned to clients. No business logic here.
package model

// UntitledNote is the title of a note with no usable content.
const UntitledNote = "Untitled note"
