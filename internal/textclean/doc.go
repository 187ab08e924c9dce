// Package textclean rewrites noisy music file names and tag values into a
// canonical form.
//
// A Pipeline holds a fixed, ordered rule table. Normalize runs the table over
// the base of a file name (the extension is split off first and never
// touched) and CleanText runs the attribute subset over title, artist and
// album values. Feature-credit tokens such as "[Artist].ft" are swapped for
// private-use placeholders before any destructive rule runs and restored
// byte-for-byte at the end.
//
// Both entry points settle: the rule table is re-applied until the output
// stops changing, so calling Normalize on its own output returns the same
// name and no extracted tokens. The convergence scheduler depends on this.
package textclean
