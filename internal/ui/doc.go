// Package ui implements the MusicBlah operator dashboard using bubbletea's Elm architecture.
//
// The dashboard has two views:
//  1. [FriendsView] : Friends of the viewing user and what they are playing, with relative update times
//  2. [TrendsView] : The trending playlist from the catalog
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// A polling round runs on every tick (or on demand) through the now-playing engine; its progress updates flow
// through a channel and are shown in the status line without blocking the UI.
//
// Keyboard navigation uses vim-style bindings (j/k, tab, p, r, q) with contextual help displayed via
// charmbracelet/bubbles/help.
package ui
