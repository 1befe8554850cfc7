// Package inventory holds the derived data behind the inventory, reminders
// and budget screens: filtering, ordering and budget aggregation.
package inventory
