// Package output renders the final ranked mirror list: pacman mirrorlist
// text and a CSV statistics dump. Both writers consume the pipeline's output
// and hold no state of their own.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"

	"github.com/pacmirror/pacmirror/internal/mirror"
)

// MirrorlistHeader writes the mirrorlist file preamble.
func MirrorlistHeader(w io.Writer, sourceURL string, now time.Time) error {
	_, err := fmt.Fprintf(w, `#
# /etc/pacman.d/mirrorlist
#
#
# Arch Linux mirrorlist generated by pacmirror
#
# source: %s
# when: %s
#

`, sourceURL, now.Format(time.RFC1123Z))
	return err
}

// Mirrorlist writes one pacman server line per mirror:
//
//	Server = <url>$repo/os/$arch
func Mirrorlist(w io.Writer, mirrors mirror.Mirrors) error {
	for i := range mirrors {
		if _, err := fmt.Fprintf(w, "Server = %s$repo/os/$arch\n", mirrors[i].URL); err != nil {
			return err
		}
	}
	return nil
}

// WriteMirrorlistFile writes a complete mirrorlist (header plus server
// lines) to path. The file must not already exist.
func WriteMirrorlistFile(fs afero.Fs, path, sourceURL string, mirrors mirror.Mirrors) error {
	f, err := createNew(fs, path)
	if err != nil {
		return fmt.Errorf("creating mirrorlist file: %w", err)
	}
	defer f.Close()

	if err := MirrorlistHeader(f, sourceURL, time.Now()); err != nil {
		return fmt.Errorf("writing mirrorlist header: %w", err)
	}
	if err := Mirrorlist(f, mirrors); err != nil {
		return fmt.Errorf("writing mirrorlist: %w", err)
	}
	return nil
}

func createNew(fs afero.Fs, path string) (afero.File, error) {
	if exists, err := afero.Exists(fs, path); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%s already exists", path)
	}
	return fs.Create(path)
}
