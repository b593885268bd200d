package buildfile

import (
	"fmt"
	"os"
	"strings"
)

// InsertDeclaration adds one KEY=value line to the metadata file at path.
//
// The line is inserted immediately before the first blank line of the file,
// scanning from the top; if the file has no blank line it is appended at the
// end. Each call re-scans the file, so inserting several declarations in a
// row places them in call order ahead of the same blank line. Downstream
// tooling depends on this layout, so the rule must not degrade to a plain
// append.
//
// There is no rollback: a failed write can leave the earlier insertions of a
// batch in place.
func InsertDeclaration(path, line string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	text := string(raw)
	trailingNewline := strings.HasSuffix(text, "\n")
	lines := strings.Split(text, "\n")
	if trailingNewline {
		// Drop the empty element produced by the final newline so it is
		// not mistaken for a blank line.
		lines = lines[:len(lines)-1]
	}

	inserted := false
	out := make([]string, 0, len(lines)+1)
	for _, l := range lines {
		if !inserted && strings.TrimSpace(l) == "" {
			out = append(out, line)
			inserted = true
		}
		out = append(out, l)
	}
	if !inserted {
		out = append(out, line)
	}

	result := strings.Join(out, "\n")
	if trailingNewline {
		result += "\n"
	}
	if err := os.WriteFile(path, []byte(result), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
