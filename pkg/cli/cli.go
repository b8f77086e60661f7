// Package cli is a small flag framework: long and short flag forms, a
// generated help page wrapped to the terminal width, positional
// arguments collected in order.
package cli

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/term"
)

type Value interface {
	String() string
	Set(string) error
}

type stringValue struct{ p *string }

func (v *stringValue) Set(s string) error { *v.p = s; return nil }
func (v *stringValue) String() string     { return *v.p }

type boolValue struct{ p *bool }

func (v *boolValue) Set(s string) error {
	if s == "" {
		*v.p = true
		return nil
	}
	val, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': %w", s, err)
	}
	*v.p = val
	return nil
}
func (v *boolValue) String() string { return strconv.FormatBool(*v.p) }

type Flag struct {
	Name      string
	Shorthand string
	Usage     string
	ValueName string
	Value     Value
}

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	ordered    []*Flag
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
	}
}

func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) String(p *string, name, shorthand, value, valueName, usage string) {
	*p = value
	f.add(&Flag{Name: name, Shorthand: shorthand, Usage: usage, ValueName: valueName, Value: &stringValue{p}})
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	f.add(&Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: &boolValue{p}})
}

func (f *FlagSet) add(flag *Flag) {
	if flag.Name == "" {
		panic("flag name cannot be empty")
	}
	if _, dup := f.flags[flag.Name]; dup {
		panic(fmt.Sprintf("flag redefined: %s", flag.Name))
	}
	f.flags[flag.Name] = flag
	if flag.Shorthand != "" {
		if _, dup := f.shorthands[flag.Shorthand]; dup {
			panic(fmt.Sprintf("shorthand flag redefined: %s", flag.Shorthand))
		}
		f.shorthands[flag.Shorthand] = flag
	}
	f.ordered = append(f.ordered, flag)
}

func (f *FlagSet) Parse(arguments []string) error {
	f.args = nil
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		switch {
		case arg == "--":
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		case strings.HasPrefix(arg, "--"):
			if err := f.parseFlag(arg[2:], "--", f.flags, arguments, &i); err != nil {
				return err
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			if err := f.parseFlag(arg[1:], "-", f.shorthands, arguments, &i); err != nil {
				return err
			}
		default:
			f.args = append(f.args, arg)
		}
	}
	return nil
}

func (f *FlagSet) parseFlag(body, dash string, table map[string]*Flag, arguments []string, i *int) error {
	name, value, hasValue := strings.Cut(body, "=")
	flag, ok := table[name]
	if !ok {
		return fmt.Errorf("unknown flag: %s%s", dash, name)
	}
	if hasValue {
		return flag.Value.Set(value)
	}
	if _, isBool := flag.Value.(*boolValue); isBool {
		return flag.Value.Set("")
	}
	if *i+1 >= len(arguments) {
		return fmt.Errorf("flag needs an argument: %s%s", dash, name)
	}
	*i++
	return flag.Value.Set(arguments[*i])
}

// App ties a FlagSet to an action and owns the --help page.
type App struct {
	Name        string
	Synopsis    string
	Description string
	FlagSet     *FlagSet
	Action      func(args []string) error
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name)}
}

func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.writeHelp(os.Stderr)
		return err
	}
	if help {
		a.writeHelp(os.Stdout)
		return nil
	}
	if a.Action != nil {
		return a.Action(a.FlagSet.Args())
	}
	return nil
}

func (a *App) writeHelp(w *os.File) {
	var sb strings.Builder
	termWidth := terminalWidth()

	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, a.Synopsis)
	if a.Description != "" {
		sb.WriteString("\n")
		for _, line := range wrapText(a.Description, termWidth-4) {
			fmt.Fprintf(&sb, "    %s\n", line)
		}
	}

	flags := make([]*Flag, len(a.FlagSet.ordered))
	copy(flags, a.FlagSet.ordered)
	sort.Slice(flags, func(i, j int) bool { return flags[i].Name < flags[j].Name })

	maxWidth := 0
	for _, flag := range flags {
		if n := len(flagLabel(flag)); n > maxWidth {
			maxWidth = n
		}
	}

	sb.WriteString("\nOptions\n")
	for _, flag := range flags {
		label := flagLabel(flag)
		usageWidth := termWidth - maxWidth - 8
		if usageWidth < 10 {
			usageWidth = 10
		}
		lines := wrapText(flag.Usage, usageWidth)
		if len(lines) == 0 {
			lines = []string{""}
		}
		fmt.Fprintf(&sb, "    %-*s  %s\n", maxWidth, label, lines[0])
		for _, line := range lines[1:] {
			fmt.Fprintf(&sb, "    %-*s  %s\n", maxWidth, "", line)
		}
	}
	fmt.Fprint(w, sb.String())
}

func flagLabel(flag *Flag) string {
	var b strings.Builder
	if flag.Shorthand != "" {
		fmt.Fprintf(&b, "-%s, ", flag.Shorthand)
	}
	fmt.Fprintf(&b, "--%s", flag.Name)
	if flag.ValueName != "" {
		fmt.Fprintf(&b, " <%s>", flag.ValueName)
	}
	return b.String()
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 20 {
		return 80
	}
	return width
}

func wrapText(text string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{text}
	}
	words := strings.Fields(text)
	var lines []string
	var current strings.Builder
	for _, word := range words {
		if current.Len() > 0 && current.Len()+1+len(word) > maxWidth {
			lines = append(lines, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(word)
	}
	if current.Len() > 0 {
		lines = append(lines, current.String())
	}
	return lines
}
