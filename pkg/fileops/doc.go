// Package fileops provides the filesystem checks that run before and after a shred.
//
// A shred cannot be undone, so targets are validated before any byte is
// overwritten. The helpers here resolve what a path actually refers to and refuse
// the cases where overwriting it would hurt the system or surprise the user.
//
// # Target Validation
//
// ValidateShredTarget is the single entry point used by the command line, the TUI
// and the MCP server:
//
//  1. **Empty paths** are rejected.
//  2. **Home shortcuts** ("~/") are expanded and the path is made absolute.
//  3. **Reserved locations** such as /etc, /bin or C:\Windows are rejected
//     (IsReservedDirectory). Temporary directories are always allowed.
//  4. **Directories** are rejected; callers expand them with a scanner first.
//  5. **Symbolic links** are rejected unless explicitly allowed, because
//     overwriting through a link destroys the target while only the link name
//     is removed. When allowed, the resolved target is returned instead.
//
// A path that does not exist passes validation unchanged so that the shredder
// itself reports it as not found.
//
// # Example
//
//	target, err := fileops.ValidateShredTarget("~/notes/secret.txt", fileops.TargetOptions{})
//	if err != nil {
//	    return fmt.Errorf("refusing to shred: %w", err)
//	}
//	err = shredder.SecurelyDelete(target.Path, 3)
//
// # Directory Operations
//
// SecureDirectoryScanner enumerates the regular files below a directory inside an
// os.Root boundary. Symbolic links are never followed or returned. After a
// recursive shred, RemoveEmptyDirs deletes the directories that were emptied.
package fileops
