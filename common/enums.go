// Package common keeps enums shared between configuration and processing
// packages.
package common

// Order in which expanded sources are placed on the sheet.
// ENUM(none, natural, lexical)
type SortMode int
