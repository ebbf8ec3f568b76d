package misskey

import "fmt"

// CreatedLine renders the confirmation printed after a note is created.
func CreatedLine(n *Note) string {
	return fmt.Sprintf("create: id=%s id=%s ", n.ID, n.CreatedAt)
}

// TimelineLines renders one line per note that has text; notes without text
// are skipped.
func TimelineLines(notes []Note) []string {
	lines := make([]string, 0, len(notes))
	for _, n := range notes {
		if !n.HasText() {
			continue
		}
		lines = append(lines, TimelineLine(n))
	}
	return lines
}

// TimelineLine renders a single timeline note. The caller ensures it has text.
func TimelineLine(n Note) string {
	return fmt.Sprintf("user=%s text=%s", n.User.DisplayName(), *n.Text)
}
