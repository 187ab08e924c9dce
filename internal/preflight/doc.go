// Package preflight checks that the library root and tunesweep's own state
// directories are usable before a run touches anything.
//
// A dry run only needs to read the library, so the root is checked for
// read access alone; applied runs also need write access.
package preflight
