package model

import "time"

// ListedObject is a file entry produced by a listing.
// Path is only set by flat listings: it is the directory portion of Key below the
// global prefix, so clients can group a flat view by origin folder.
type ListedObject struct {
	Key          string     `json:"key"`
	Name         string     `json:"name"`
	Size         int64      `json:"size"`
	LastModified *time.Time `json:"lastModified"`
	Path         *string    `json:"path,omitempty"`
}

// FolderNode is a common prefix one level below the listed prefix.
type FolderNode struct {
	Name   string `json:"name"`
	Prefix string `json:"prefix"`
}
