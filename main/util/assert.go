package util

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
)

// ErrMissingFlag reports a required flag left empty.
var ErrMissingFlag = errors.New("missing required flag")

// Fatalf logs and exits. Only main calls it: inside a group, errors go
// back through RunGroup so the other ranks are aborted first.
func Fatalf(format string, v ...interface{}) {
	log.Fatalf("--> "+format, v...)
}

// Assert exits when err is not nil, prefixed with what was being done.
func Assert(err error, doing string, v ...interface{}) {
	if err == nil {
		return
	}
	Fatalf("%s: %v", fmt.Sprintf(doing, v...), err)
}

// CheckDir verifies path names an accessible directory.
func CheckDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("directory '%s' is not accessible: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("'%s' is not a directory", path)
	}
	return nil
}

// CheckRequired verifies every named command line flag has a value.
func CheckRequired(names ...string) error {
	var missing []string
	for _, name := range names {
		fl := flag.Lookup(name)
		if fl == nil || len(fl.Value.String()) == 0 {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFlag, strings.Join(missing, ", "))
	}
	return nil
}
