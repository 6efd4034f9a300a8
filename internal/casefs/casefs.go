// Package casefs materializes contingency case directories from a base case.
//
// Two policies coexist. Stage builds an ephemeral working copy: whatever sits
// at the destination is removed first, files that will be rewritten are
// hard-linked and every other file becomes a symbolic link into the base
// case. Save persists a finished working copy: an existing destination is
// renamed aside with OldSuffix before the new tree takes its place.
package casefs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// OldSuffix is appended to a persisted case directory that is replaced by
// a new one.
const OldSuffix = ".OLD"

// FSError reports a failed filesystem operation on a case tree.
type FSError struct {
	Op   string
	Path string
	Err  error
}

func (e *FSError) Error() string {
	return fmt.Sprintf("casefs: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FSError) Unwrap() error { return e.Err }

func fsErr(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return &FSError{Op: op, Path: path, Err: err}
}

// Stage mirrors base into staging. Paths in mutable are relative to base
// and are hard-linked (or copied when linking fails); all other regular
// files are symlinked to their absolute base path.
func Stage(base, staging string, mutable []string) error {
	absBase, err := filepath.Abs(base)
	if err != nil {
		return fsErr("abs", base, err)
	}
	absStaging, err := filepath.Abs(staging)
	if err != nil {
		return fsErr("abs", staging, err)
	}
	if err := Teardown(absStaging); err != nil {
		return err
	}
	if err := os.MkdirAll(absStaging, 0o755); err != nil {
		return fsErr("mkdir", absStaging, err)
	}

	rewrite := make(map[string]bool, len(mutable))
	for _, m := range mutable {
		rewrite[filepath.Clean(m)] = true
	}

	return filepath.WalkDir(absBase, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fsErr("walk", path, err)
		}
		if path == absBase {
			return nil
		}
		if path == absStaging || strings.HasPrefix(path, absStaging+string(filepath.Separator)) {
			return filepath.SkipDir
		}
		rel, err := filepath.Rel(absBase, path)
		if err != nil {
			return fsErr("rel", path, err)
		}
		dst := filepath.Join(absStaging, rel)

		switch {
		case d.IsDir():
			return fsErr("mkdir", dst, os.Mkdir(dst, 0o755))
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fsErr("readlink", path, err)
			}
			return fsErr("symlink", dst, os.Symlink(target, dst))
		case rewrite[rel]:
			return linkOrCopy(path, dst)
		default:
			return fsErr("symlink", dst, os.Symlink(path, dst))
		}
	})
}

// Save moves a finished working copy to dest. An existing dest is renamed
// to dest+OldSuffix, replacing any earlier one.
func Save(staging, dest string) error {
	if _, err := os.Lstat(dest); err == nil {
		old := dest + OldSuffix
		if err := os.RemoveAll(old); err != nil {
			return fsErr("remove", old, err)
		}
		if err := os.Rename(dest, old); err != nil {
			return fsErr("rename", dest, err)
		}
	} else if !os.IsNotExist(err) {
		return fsErr("stat", dest, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fsErr("mkdir", filepath.Dir(dest), err)
	}
	if err := os.Rename(staging, dest); err == nil {
		return nil
	}

	// Rename across filesystems fails; fall back to a linked copy.
	if err := copyTree(staging, dest); err != nil {
		_ = os.RemoveAll(dest)
		return err
	}
	return Teardown(staging)
}

// Teardown removes dir and everything below it. A missing dir is not an
// error.
func Teardown(dir string) error {
	return fsErr("remove", dir, os.RemoveAll(dir))
}

// WriteAtomic replaces path with data through a temporary file in the same
// directory, so a hard link shared with the base case is never written
// through.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return fsErr("create", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fsErr("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fsErr("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fsErr("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fsErr("rename", path, err)
	}
	return nil
}

func linkOrCopy(src, dst string) error {
	if err := os.Link(src, dst); err == nil {
		return nil
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fsErr("open", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fsErr("stat", src, err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fsErr("create", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fsErr("copy", dst, err)
	}
	return fsErr("close", dst, out.Close())
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fsErr("walk", path, err)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return fsErr("rel", path, err)
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return fsErr("mkdir", target, os.MkdirAll(target, 0o755))
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return fsErr("readlink", path, err)
			}
			return fsErr("symlink", target, os.Symlink(link, target))
		default:
			return linkOrCopy(path, target)
		}
	})
}

// DirName builds the directory name of a case: prefix, '#', then the
// element name with path separators and blanks replaced.
func DirName(prefix, element string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", " ", "_", "\t", "_", ":", "_")
	return prefix + "#" + r.Replace(element)
}
