// Package shred overwrites a file's contents before removing it, to make forensic
// recovery of the data harder.
//
// A shred runs in three phases: validate, overwrite, remove. The overwrite phase
// writes the captured file length in fixed-size blocks once per pass using a
// cryptographically secure random source, syncs after every pass, finishes with a
// single zero-fill pass, truncates the file to zero length and syncs again. Only
// then is the file handle released and the directory entry removed.
//
// # Usage
//
//	s := shred.New()
//	if err := s.SecurelyDelete("/tmp/secret.txt", 3); err != nil {
//	    switch shred.KindOf(err) {
//	    case shred.KindNotFound:
//	        // nothing to do
//	    case shred.KindDeleteFailed:
//	        // contents destroyed, name still present
//	    default:
//	        return err
//	    }
//	}
//
// # Limitations
//
// The overwrite only reaches the primary data extent exposed through standard file
// I/O. Wear-leveling flash, copy-on-write and journaling filesystems, and snapshots
// may keep older copies of the data. The file length is captured once when the file
// is opened; bytes appended by another process during a shred are not overwritten.
//
// A Shredder holds no per-call state and may be used from several goroutines on
// different files. Two concurrent shreds of the same path are not coordinated.
package shred
