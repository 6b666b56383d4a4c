// Package gcode loads print jobs from G-code files on disk.
package gcode

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Load reads the G-code file at path and returns its lines with their
// newlines preserved, ready to be concatenated into an upload payload.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gcode: %w", err)
	}
	defer file.Close()

	var lines []string
	reader := bufio.NewReaderSize(file, 64*1024)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			lines = append(lines, line)
		}
		if err != nil {
			break
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("gcode file %s is empty", path)
	}
	return lines, nil
}

// JobName derives a job name from a G-code file path: the base name with the
// usual G-code extensions stripped.
func JobName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".gcode", ".gco", ".g"} {
		if strings.EqualFold(filepath.Ext(name), ext) {
			return strings.TrimSuffix(name, filepath.Ext(name))
		}
	}
	return name
}
