// Package kosync is the reading-side provider client for KOReader-style
// position sync servers.
package kosync
