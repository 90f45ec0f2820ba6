package main

import "errors"

var (
	// errPath: the project root is missing or not a directory. Fatal at startup.
	errPath = errors.New("invalid project path")

	// errListing: a directory could not be enumerated
	errListing = errors.New("cannot list directory")

	// errRead: a Markdown file could not be opened or is not text
	errRead = errors.New("cannot read file")

	// errConversion: the Markdown converter rejected the input
	errConversion = errors.New("cannot convert markdown")

	errUnknownNode  = errors.New("unknown node")
	errNotDirectory = errors.New("node is not a directory")
)
