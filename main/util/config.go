package util

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// ApplyConfig reads a TOML file whose top-level keys are flag names, and
// sets every flag that was not given on the command line. Arrays become
// comma separated lists.
func ApplyConfig(fs *flag.FlagSet, path string) error {
	var values map[string]interface{}
	if _, err := toml.DecodeFile(path, &values); err != nil {
		return err
	}

	given := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) {
		given[fl.Name] = true
	})

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if fs.Lookup(key) == nil {
			return fmt.Errorf("unknown flag '%s'", key)
		}
		if given[key] {
			continue
		}
		if err := fs.Set(key, configValue(values[key])); err != nil {
			return fmt.Errorf("flag '%s': %v", key, err)
		}
	}
	return nil
}

func configValue(v interface{}) string {
	list, ok := v.([]interface{})
	if !ok {
		return fmt.Sprint(v)
	}
	items := make([]string, len(list))
	for i, item := range list {
		items[i] = fmt.Sprint(item)
	}
	return strings.Join(items, ",")
}
