package main

// Test markdown content constants
// These eliminate magic values scattered throughout test files

const (
	// Basic markdown
	testMarkdownTitle  = "# Title"
	testMarkdownHeader = "# Hello World\n\nThis is a **test**."

	// Syntax that only dialect extensions would turn into markup
	testMarkdownTable         = "| A | B |\n|---|---|\n| 1 | 2 |"
	testMarkdownStrikethrough = "~~deleted~~"

	// Raw HTML and relative assets
	testMarkdownRawHTML = "<div class=\"note\">raw</div>"
	testMarkdownImage   = "![diagram](img/diagram.png)"

	testMarkdownNotes = "# Notes\n\n- one\n- two"

	// Not UTF-8
	testInvalidUTF8 = "\xff\xfe\xfd"

	// Security test paths
	testPathTraversal = "../secret.txt"
)
