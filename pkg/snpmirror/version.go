// Package snpmirror carries module-level metadata.
package snpmirror

// Version is the snpmirror release version.
const Version = "0.1.0"
