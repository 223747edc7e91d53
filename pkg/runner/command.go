package runner

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aretw0/dotmap"
	"github.com/aretw0/dotmap/internal/presentation/graph"
	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/session"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
)

// Content formats carried by Reply.Format.
const (
	FormatMarkdown = "markdown"
	FormatMermaid  = "mermaid"
)

// Command is one parsed REPL line.
type Command struct {
	Name string   `json:"command"`
	Args []string `json:"args,omitempty"`
}

// ParseCommand splits a line into a command name and its arguments.
// The name is case-insensitive; aliases resolve to their canonical name.
func ParseCommand(line string) (Command, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false
	}
	name := strings.ToLower(fields[0])
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	return Command{Name: name, Args: fields[1:]}, true
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Reply is what handlers present after a command ran.
type Reply struct {
	Command string        `json:"command"`
	Changed bool          `json:"changed"`
	Message string        `json:"message,omitempty"`
	Error   string        `json:"error,omitempty"`
	Format  string        `json:"format,omitempty"`
	Content string        `json:"content,omitempty"`
	View    *session.View `json:"view,omitempty"`
}

type commandDef struct {
	usage string
	help  string
	run   func(ed *dotmap.Editor, args []string) (Reply, error)
}

var aliases = map[string]string{
	"direction": "dir",
	"rm":        "delete",
	"del":       "delete",
	"quit":      "exit",
	"?":         "help",
	"status":    "show",
}

var commands map[string]commandDef

func init() {
	commands = map[string]commandDef{
		"mode": {"mode <place|connect|adjust>", "switch interaction mode", func(ed *dotmap.Editor, args []string) (Reply, error) {
			if len(args) != 1 {
				return Reply{}, usageErr("mode")
			}
			m, err := domain.ParseMode(args[0])
			if err != nil {
				return Reply{}, err
			}
			prev := ed.Mode()
			changed := ed.SetMode(m)
			return Reply{Changed: changed || prev != m, Message: fmt.Sprintf("mode %s", m)}, nil
		}},
		"click": pointerCommand("click <x> <y>", "click on the canvas", (*dotmap.Editor).Click),
		"down":  pointerCommand("down <x> <y>", "press the pointer (starts a drag in adjust mode)", (*dotmap.Editor).PointerDown),
		"move":  pointerCommand("move <x> <y>", "move the pointer (rotates the dragged dot)", (*dotmap.Editor).PointerMove),
		"up": {"up", "release the pointer", func(ed *dotmap.Editor, args []string) (Reply, error) {
			return committed(ed.PointerUp()), nil
		}},
		"leave": {"leave", "pointer leaves the canvas", func(ed *dotmap.Editor, args []string) (Reply, error) {
			return committed(ed.PointerLeave()), nil
		}},
		"select": {"select <dot-id>", "select a dot", func(ed *dotmap.Editor, args []string) (Reply, error) {
			if len(args) != 1 {
				return Reply{}, usageErr("select")
			}
			return committed(ed.Select(args[0])), nil
		}},
		"dir": {"dir <dot-id> <degrees>", "set a dot heading", func(ed *dotmap.Editor, args []string) (Reply, error) {
			if len(args) != 2 {
				return Reply{}, usageErr("dir")
			}
			deg, err := strconv.Atoi(args[1])
			if err != nil {
				return Reply{}, fmt.Errorf("degrees must be an integer: %w", err)
			}
			return committed(ed.SetDirection(args[0], deg)), nil
		}},
		"label": {"label <dot-id> [text]", "set or clear a dot label", func(ed *dotmap.Editor, args []string) (Reply, error) {
			if len(args) < 1 {
				return Reply{}, usageErr("label")
			}
			label, err := SanitizeLabel(strings.Join(args[1:], " "))
			if err != nil {
				return Reply{}, err
			}
			return committed(ed.EditDot(args[0], &label, nil)), nil
		}},
		"color": {"color <dot-id> [color]", "set or clear a dot color", func(ed *dotmap.Editor, args []string) (Reply, error) {
			if len(args) < 1 || len(args) > 2 {
				return Reply{}, usageErr("color")
			}
			color := ""
			if len(args) == 2 {
				c, err := SanitizeColor(args[1])
				if err != nil {
					return Reply{}, err
				}
				color = c
			}
			return committed(ed.EditDot(args[0], nil, &color)), nil
		}},
		"style": {"style <conn-id> <solid|dashed|dotted> [color] [label]", "restyle a connection", func(ed *dotmap.Editor, args []string) (Reply, error) {
			if len(args) < 2 {
				return Reply{}, usageErr("style")
			}
			if _, err := domain.ParseConnectionStyle(args[1]); err != nil {
				return Reply{}, err
			}
			color, label := "", ""
			if len(args) > 2 {
				c, err := SanitizeColor(args[2])
				if err != nil {
					return Reply{}, err
				}
				color = c
			}
			if len(args) > 3 {
				l, err := SanitizeLabel(strings.Join(args[3:], " "))
				if err != nil {
					return Reply{}, err
				}
				label = l
			}
			return committed(ed.SetConnectionStyle(args[0], args[1], color, label)), nil
		}},
		"delete": {"delete", "delete the selected dot and its connections", func(ed *dotmap.Editor, args []string) (Reply, error) {
			return committed(ed.DeleteSelected()), nil
		}},
		"clear": {"clear", "remove everything from the canvas", func(ed *dotmap.Editor, args []string) (Reply, error) {
			return committed(ed.ClearAll()), nil
		}},
		"undo": {"undo", "step back in history", func(ed *dotmap.Editor, args []string) (Reply, error) {
			ok := ed.Undo()
			if !ok {
				return Reply{Message: "nothing to undo"}, nil
			}
			return Reply{Changed: true, Message: historyLine(ed)}, nil
		}},
		"redo": {"redo", "step forward in history", func(ed *dotmap.Editor, args []string) (Reply, error) {
			ok := ed.Redo()
			if !ok {
				return Reply{Message: "nothing to redo"}, nil
			}
			return Reply{Changed: true, Message: historyLine(ed)}, nil
		}},
		"show": {"show", "summarize the canvas", func(ed *dotmap.Editor, args []string) (Reply, error) {
			return Reply{Format: FormatMarkdown, Content: Summary(ed)}, nil
		}},
		"graph": {"graph", "print the canvas as a Mermaid diagram", func(ed *dotmap.Editor, args []string) (Reply, error) {
			content := graph.GenerateMermaid(ed.CurrentSnapshot(), graph.OverlayFrom(ed.ActiveGesture()))
			return Reply{Format: FormatMermaid, Content: content}, nil
		}},
		"history": {"history", "show the undo cursor", func(ed *dotmap.Editor, args []string) (Reply, error) {
			return Reply{Message: historyLine(ed)}, nil
		}},
		"help": {"help", "list commands", func(ed *dotmap.Editor, args []string) (Reply, error) {
			return Reply{Format: FormatMarkdown, Content: Help()}, nil
		}},
	}
}

// Execute runs a command against an editor. Usage mistakes are returned as
// errors; the editor is left unchanged in that case.
func Execute(ed *dotmap.Editor, cmd Command) (Reply, error) {
	s, ok := commands[cmd.Name]
	if !ok {
		return Reply{Command: cmd.Name}, fmt.Errorf("%w: %q (try 'help')", ErrUnknownCommand, cmd.Name)
	}
	reply, err := s.run(ed, cmd.Args)
	reply.Command = cmd.Name
	return reply, err
}

// Help lists every command as a markdown table.
func Help() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("| command | description |\n|---|---|\n")
	for _, name := range names {
		s := commands[name]
		fmt.Fprintf(&sb, "| `%s` | %s |\n", s.usage, s.help)
	}
	sb.WriteString("| `exit` | leave the REPL |\n")
	return sb.String()
}

// Summary describes the canvas as markdown.
func Summary(ed *dotmap.Editor) string {
	snap := ed.CurrentSnapshot()
	stats := snap.Stats()

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Mode:** %s  \n", ed.Mode())
	fmt.Fprintf(&sb, "**Dots:** %d, **Connections:** %d  \n", stats.Dots, stats.Connections)
	fmt.Fprintf(&sb, "**History:** %s\n", historyLine(ed))

	if g := ed.ActiveGesture(); !g.IsIdle() {
		switch {
		case g.ConnectionStart != "":
			fmt.Fprintf(&sb, "\nConnecting from `%s`.\n", g.ConnectionStart)
		case g.Drag != nil:
			fmt.Fprintf(&sb, "\nRotating `%s`.\n", g.Drag.DotID)
		}
	}

	if len(snap.Dots) > 0 {
		sb.WriteString("\n| dot | x | y | heading | label |\n|---|---|---|---|---|\n")
		for _, d := range snap.Dots {
			id := d.ID
			if d.Selected {
				id = "**" + id + "**"
			}
			fmt.Fprintf(&sb, "| %s | %g | %g | %d° | %s |\n", id, d.X, d.Y, d.Direction, d.Label)
		}
	}
	if len(snap.Connections) > 0 {
		sb.WriteString("\n| connection | from | to | style |\n|---|---|---|---|\n")
		for _, c := range snap.Connections {
			style := c.Style
			if style == "" {
				style = domain.StyleSolid
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", c.ID, c.SourceID, c.TargetID, style)
		}
	}
	return sb.String()
}

func pointerCommand(usage, help string, fn func(*dotmap.Editor, float64, float64) bool) commandDef {
	name := strings.Fields(usage)[0]
	return commandDef{usage, help, func(ed *dotmap.Editor, args []string) (Reply, error) {
		if len(args) != 2 {
			return Reply{}, usageErr(name)
		}
		x, errX := strconv.ParseFloat(args[0], 64)
		y, errY := strconv.ParseFloat(args[1], 64)
		if err := errors.Join(errX, errY); err != nil {
			return Reply{}, fmt.Errorf("coordinates must be numbers: %w", err)
		}
		return committed(fn(ed, x, y)), nil
	}}
}

func committed(changed bool) Reply {
	if changed {
		return Reply{Changed: true, Message: "ok"}
	}
	return Reply{Message: "nothing committed"}
}

func historyLine(ed *dotmap.Editor) string {
	return fmt.Sprintf("%d/%d", ed.HistoryCursor()+1, ed.HistoryLen())
}

func usageErr(name string) error {
	return fmt.Errorf("%w: %s", ErrUsage, commands[name].usage)
}
