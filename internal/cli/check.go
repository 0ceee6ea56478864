package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/jackpatch/pkg/adapters/file"
)

// Check validates a patch file and prints a summary of what would be loaded.
// It fails when the file cannot be parsed or is not a patch document.
func Check(path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rep, err := file.Inspect(f)
	if err != nil {
		return err
	}
	if rep.Root != file.RootTag {
		return fmt.Errorf("%s: root element is %q, not %s; it would load as an empty patch", path, rep.Root, file.RootTag)
	}

	printSystemMessage(out, "%s: %d connection(s)", path, len(rep.Connections))

	var warnings []string
	if rep.Duplicates > 0 {
		warnings = append(warnings, fmt.Sprintf("%d duplicate connection(s) ignored", rep.Duplicates))
	}
	if rep.Skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d unknown element(s) ignored", rep.Skipped))
	}
	if rep.Incomplete > 0 {
		warnings = append(warnings, fmt.Sprintf("%d connection(s) missing from/to ignored", rep.Incomplete))
	}
	for _, c := range rep.Connections {
		if !strings.Contains(c.From, ":") || !strings.Contains(c.To, ":") {
			warnings = append(warnings, fmt.Sprintf("%s is not a client:port pair", c))
		}
	}
	for _, w := range warnings {
		printSystemMessage(out, "warning: %s", w)
	}
	return nil
}
