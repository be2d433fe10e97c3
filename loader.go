package defclean

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Defconfig is an open defconfig file read line by line, top to bottom.
type Defconfig struct {
	path   string
	file   *os.File
	gz     *gzip.Reader
	r      *bufio.Reader
	lineNo int
	err    error
	done   bool
}

// IsGzipPath reports whether path should be read through gzip. Any
// occurrence of ".gz" counts, not only a trailing extension.
func IsGzipPath(path string) bool {
	return strings.Contains(path, ".gz")
}

// OpenDefconfig opens path for line iteration, decompressing when
// IsGzipPath(path). All failures are *FileAccessError.
func OpenDefconfig(path string) (*Defconfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &FileAccessError{Path: path, Err: errors.New("is a directory")}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &FileAccessError{Path: path, Err: err}
	}

	d := &Defconfig{path: path, file: f}
	var src io.Reader = f
	if IsGzipPath(path) {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, &FileAccessError{Path: path, Err: fmt.Errorf("gzip: %w", err)}
		}
		d.gz = gz
		src = gz
	}
	d.r = bufio.NewReader(src)
	return d, nil
}

// Next returns the next line without its terminator. ok is false at EOF or
// on a read error; check Err afterwards.
func (d *Defconfig) Next() (line string, ok bool) {
	if d.done {
		return "", false
	}
	line, err := d.r.ReadString('\n')
	if err != nil {
		d.done = true
		if !errors.Is(err, io.EOF) {
			d.err = &FileAccessError{Path: d.path, Err: err}
			return "", false
		}
		if line == "" {
			return "", false
		}
	}
	d.lineNo++
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true
}

// LineNo returns the 1-based number of the line last returned by Next.
func (d *Defconfig) LineNo() int {
	return d.lineNo
}

// Err returns the first non-EOF read error as a *FileAccessError.
func (d *Defconfig) Err() error {
	return d.err
}

// Close releases the decompressor and the underlying file.
func (d *Defconfig) Close() error {
	var gzErr error
	if d.gz != nil {
		gzErr = d.gz.Close()
	}
	if err := d.file.Close(); err != nil {
		return err
	}
	return gzErr
}
