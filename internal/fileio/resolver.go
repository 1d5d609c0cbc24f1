package fileio

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Sentinel endpoint names understood by the resolver.
const (
	// StdinMark binds the source to standard input.
	StdinMark = "stdin"

	// StdoutMark binds the destination to standard output.
	StdoutMark = "stdout"

	// NullMark binds the destination to a discard sink, skipping the
	// existence check.
	NullMark = "null"
)

// openFiles resolves both endpoint names. The source is checked first, so a
// bad source wins over a bad destination when both fail.
func (d *Driver) openFiles(srcName, dstName string) (io.ReadCloser, io.WriteCloser, error) {
	src, err := d.openSource(srcName)
	if err != nil {
		return nil, nil, err
	}
	dst, err := d.openDestination(dstName)
	if err != nil {
		src.Close()
		return nil, nil, err
	}
	return src, dst, nil
}

func (d *Driver) openSource(name string) (io.ReadCloser, error) {
	if name == StdinMark {
		d.logger.Debug("using stdin for input")
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, fatal(CodeOpenSource, name, err, "cannot open source file %s", name)
	}
	return f, nil
}

func (d *Driver) openDestination(name string) (io.WriteCloser, error) {
	if name == StdoutMark {
		d.logger.Debug("using stdout for output")
		return nopWriteCloser{os.Stdout}, nil
	}
	if name == NullMark {
		return nopWriteCloser{io.Discard}, nil
	}

	if _, err := os.Stat(name); err == nil && !d.cfg.Overwrite {
		if err := d.confirmOverwrite(name); err != nil {
			return nil, err
		}
	}

	f, err := os.Create(name)
	if err != nil {
		return nil, fatal(CodeOpenDestination, name, err, "cannot open destination file %s", name)
	}
	return f, nil
}

// confirmOverwrite asks the user before clobbering an existing destination.
// Without an interactive channel (verbosity too low, or no prompt reader)
// the whole operation aborts.
func (d *Driver) confirmOverwrite(name string) error {
	if d.cfg.Verbosity <= 1 || d.prompt == nil {
		return fatal(CodeAborted, name, nil, "operation aborted: %s already exists", name)
	}

	d.display(2, "warning: %s already exists\n", name)
	d.display(2, "overwrite? (y/N): ")
	line, _ := bufio.NewReader(d.prompt).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" || (line[0] != 'y' && line[0] != 'Y') {
		return fatal(CodeAborted, name, nil, "operation aborted: %s already exists", name)
	}
	return nil
}

// sourceSize returns the size of a regular-file source, or -1 when the size
// cannot be determined (stdin, pipes, devices).
func sourceSize(name string) int64 {
	if name == StdinMark {
		return -1
	}
	info, err := os.Stat(name)
	if err != nil || !info.Mode().IsRegular() {
		return -1
	}
	return info.Size()
}

// nopWriteCloser keeps Close from reaching shared process streams.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
