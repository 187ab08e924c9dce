// Package grouping gathers loose tracks into per-album containers.
//
// Every container below the root is grouped on its own: items are keyed by
// their album tag and year, groups no larger than the threshold stay put, and
// larger groups move into a container named after the key. Containers inside
// the quarantine folder are never regrouped; their items go through the
// attached Cleaner instead.
package grouping
