// Package ui prints command output for the imgaudit CLI. Colors are
// enabled only when stdout is a terminal.
package ui
