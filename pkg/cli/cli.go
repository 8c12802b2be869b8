// Package cli parses typed command line options, including -W/-F style flag
// groups, and renders the usage and help pages.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"golang.org/x/exp/slices"
	"golang.org/x/term"
)

// ErrUsage wraps every command line parsing failure.
var ErrUsage = errors.New("usage error")

type Value interface {
	String() string
	Set(string) error
	Get() any
}

// scalar stores a parsed option of type T in *p.
type scalar[T any] struct {
	p      *T
	kind   string
	parse  func(string) (T, error)
	format func(T) string
}

func (v *scalar[T]) Set(s string) error {
	val, err := v.parse(s)
	if err != nil {
		return fmt.Errorf("invalid %s value '%s'", v.kind, s)
	}
	*v.p = val
	return nil
}
func (v *scalar[T]) String() string { return v.format(*v.p) }
func (v *scalar[T]) Get() any       { return *v.p }

// parseSwitch reads a boolean option; a bare switch means true.
func parseSwitch(s string) (bool, error) {
	if s == "" {
		return true, nil
	}
	return strconv.ParseBool(s)
}

func identity(s string) (string, error) { return s, nil }

func isSwitch(v Value) bool {
	_, ok := v.(*scalar[bool])
	return ok
}

type Flag struct {
	Name        string
	Shorthand   string
	Usage       string
	Value       Value
	DefValue    string
	Placeholder string // names the value of a non-boolean flag in the help page
}

// FlagGroup is a family of boolean flags sharing a prefix, where every entry
// also has a "no-" form: -Wname and -Wno-name.
type FlagGroup struct {
	Name        string
	Description string
	Kind        string
	Header      string
	Entries     []FlagGroupEntry
}

type FlagGroupEntry struct {
	Name     string
	Prefix   string
	Usage    string
	Enabled  *bool
	Disabled *bool
}

func (e FlagGroupEntry) on() string  { return e.Prefix + e.Name }
func (e FlagGroupEntry) off() string { return e.Prefix + "no-" + e.Name }

type FlagSet struct {
	name       string
	flags      map[string]*Flag
	shorthands map[string]*Flag
	grouped    map[string]bool
	groups     []FlagGroup
	args       []string
}

func NewFlagSet(name string) *FlagSet {
	return &FlagSet{
		name:       name,
		flags:      make(map[string]*Flag),
		shorthands: make(map[string]*Flag),
		grouped:    make(map[string]bool),
	}
}

// Args returns the operands left after Parse.
func (f *FlagSet) Args() []string { return f.args }

func (f *FlagSet) Lookup(name string) *Flag { return f.flags[name] }

func (f *FlagSet) String(p *string, name, shorthand, value, usage, placeholder string) {
	*p = value
	v := &scalar[string]{p: p, kind: "string", parse: identity, format: func(s string) string { return s }}
	f.Var(v, name, shorthand, usage, value, placeholder)
}

func (f *FlagSet) Bool(p *bool, name, shorthand string, value bool, usage string) {
	*p = value
	v := &scalar[bool]{p: p, kind: "boolean", parse: parseSwitch, format: strconv.FormatBool}
	f.Var(v, name, shorthand, usage, strconv.FormatBool(value), "")
}

func (f *FlagSet) Int(p *int, name, shorthand string, value int, usage, placeholder string) {
	*p = value
	v := &scalar[int]{p: p, kind: "integer", parse: strconv.Atoi, format: strconv.Itoa}
	f.Var(v, name, shorthand, usage, strconv.Itoa(value), placeholder)
}

func (f *FlagSet) Var(value Value, name, shorthand, usage, defValue, placeholder string) {
	switch {
	case name == "":
		panic("flag name cannot be empty")
	case f.flags[name] != nil:
		panic(fmt.Sprintf("flag redefined: %s", name))
	case shorthand != "" && f.shorthands[shorthand] != nil:
		panic(fmt.Sprintf("shorthand flag redefined: %s", shorthand))
	}
	flag := &Flag{Name: name, Shorthand: shorthand, Usage: usage, Value: value, DefValue: defValue, Placeholder: placeholder}
	f.flags[name] = flag
	if shorthand != "" {
		f.shorthands[shorthand] = flag
	}
}

// AddFlagGroup registers a boolean flag for every entry and for its "no-"
// form. Group flags are listed under their group, not with the options.
func (f *FlagSet) AddFlagGroup(name, description, kind, header string, entries []FlagGroupEntry) {
	for _, e := range entries {
		if e.Enabled != nil {
			f.Bool(e.Enabled, e.on(), "", *e.Enabled, e.Usage)
		}
		if e.Disabled != nil {
			f.Bool(e.Disabled, e.off(), "", *e.Disabled, "Disable '"+e.Name+"'")
		}
		f.grouped[e.on()], f.grouped[e.off()] = true, true
	}
	f.groups = append(f.groups, FlagGroup{Name: name, Description: description, Kind: kind, Header: header, Entries: entries})
}

// Parse processes arguments. Long flags take one or two dashes, values follow
// '=' or come from the next argument, "--" ends flag processing and a lone
// "-" is an operand.
func (f *FlagSet) Parse(arguments []string) error {
	f.args = []string{}
	for i := 0; i < len(arguments); i++ {
		arg := arguments[i]
		if arg == "--" {
			f.args = append(f.args, arguments[i+1:]...)
			return nil
		}
		if len(arg) < 2 || arg[0] != '-' {
			f.args = append(f.args, arg)
			continue
		}
		flag, spelled, value, hasValue, err := f.resolve(arg)
		if err != nil {
			return err
		}
		if !hasValue && !isSwitch(flag.Value) {
			if i+1 == len(arguments) {
				return fmt.Errorf("flag needs an argument: %s", spelled)
			}
			i++
			value = arguments[i]
		}
		if err := flag.Value.Set(value); err != nil {
			return fmt.Errorf("%s: %w", spelled, err)
		}
	}
	return nil
}

// resolve finds the flag arg refers to. After a single dash a registered long
// name (-Wall) wins over a shorthand, which may carry its value attached (-j4).
func (f *FlagSet) resolve(arg string) (flag *Flag, spelled, value string, hasValue bool, err error) {
	dashes := "-"
	if strings.HasPrefix(arg, "--") {
		dashes = "--"
	}
	body := arg[len(dashes):]
	name, value, hasValue := strings.Cut(body, "=")
	if name == "" {
		return nil, arg, "", false, errors.New("empty flag name")
	}
	if flag = f.flags[name]; flag != nil {
		return flag, dashes + name, value, hasValue, nil
	}
	if dashes == "--" {
		return nil, arg, "", false, fmt.Errorf("unknown flag: --%s", name)
	}

	short := body[:1]
	if flag = f.shorthands[short]; flag == nil {
		return nil, arg, "", false, fmt.Errorf("unknown shorthand flag: -%s", short)
	}
	if rest := body[1:]; rest != "" && !isSwitch(flag.Value) {
		return flag, "-" + short, rest, true, nil
	}
	return flag, "-" + short, "", false, nil
}

type App struct {
	Name        string
	Version     string
	Synopsis    string
	Description string
	Authors     []string
	Repository  string
	Since       int
	FlagSet     *FlagSet
	Action      func(args []string) error
	Stdout      io.Writer
	Stderr      io.Writer
}

func NewApp(name string) *App {
	return &App{Name: name, FlagSet: NewFlagSet(name), Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run parses arguments and calls Action with the operands. A parse failure
// prints the usage page to Stderr and returns an error wrapping ErrUsage.
func (a *App) Run(arguments []string) error {
	help := false
	a.FlagSet.Bool(&help, "help", "h", false, "Display this information")

	if err := a.FlagSet.Parse(arguments); err != nil {
		fmt.Fprintf(a.Stderr, "%s: %v\n", a.Name, err)
		a.writeUsage(a.Stderr)
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if help {
		a.writeHelp(a.Stdout)
		return nil
	}
	if a.Action == nil {
		return nil
	}
	return a.Action(a.FlagSet.Args())
}

// Help pages

const (
	indentUnit    = "    "
	defaultWidth  = 80
	minWidth      = 20
	minUsageWidth = 10
)

func indent(level int) string { return strings.Repeat(indentUnit, level) }

// row is one line of a help table: a flag spelling, its usage text and an
// optional marker such as the default value.
type row struct{ left, usage, right string }

// table aligns rows in columns and wraps usage text to the terminal width.
type table struct {
	width      int
	leftWidth  int
	usageWidth int
}

func newTable(width int, sections ...[]row) table {
	t := table{width: width}
	for _, rows := range sections {
		for _, r := range rows {
			t.leftWidth = max(t.leftWidth, len(r.left))
			if r.right != "" {
				t.usageWidth = max(t.usageWidth, len(r.usage))
			}
		}
	}
	return t
}

func (t table) write(sb *strings.Builder, r row) {
	prefix := indent(2)
	room := max(t.width-len(prefix)-t.leftWidth-3-len(r.right), minUsageWidth)
	lines := wrapText(r.usage, room)
	first := ""
	if len(lines) > 0 {
		first = lines[0]
	}
	if r.right == "" {
		fmt.Fprintf(sb, "%s%-*s %s\n", prefix, t.leftWidth, r.left, first)
	} else {
		fmt.Fprintf(sb, "%s%-*s %-*s  %s\n", prefix, t.leftWidth, r.left, min(t.usageWidth, room), first, r.right)
	}
	pad := strings.Repeat(" ", t.leftWidth+1)
	for i := 1; i < len(lines); i++ {
		fmt.Fprintf(sb, "%s%s%s\n", prefix, pad, lines[i])
	}
}

func heading(sb *strings.Builder, title string) {
	fmt.Fprintf(sb, "\n%s%s\n", indent(1), title)
}

func spelling(f *Flag) string {
	switch {
	case isSwitch(f.Value) && f.Shorthand != "":
		return "-" + f.Shorthand + ", --" + f.Name
	case isSwitch(f.Value), f.Placeholder == "" && f.Shorthand == "":
		return "--" + f.Name
	case f.Shorthand != "":
		return fmt.Sprintf("-%s <%s>, --%s <%s>", f.Shorthand, f.Placeholder, f.Name, f.Placeholder)
	}
	return "--" + f.Name + "=" + f.Placeholder
}

func (a *App) optionRows() []row {
	flags := lo.Filter(lo.Values(a.FlagSet.flags), func(f *Flag, _ int) bool { return !a.FlagSet.grouped[f.Name] })
	slices.SortFunc(flags, func(x, y *Flag) int { return strings.Compare(x.Name, y.Name) })
	return lo.Map(flags, func(f *Flag, _ int) row {
		r := row{left: spelling(f), usage: f.Usage}
		if !isSwitch(f.Value) && f.DefValue != "" {
			r.right = "|" + f.DefValue + "|"
		}
		return r
	})
}

// groupBlock is the help page section of one flag group: the two generic
// switch forms followed by every entry with its default state.
type groupBlock struct {
	group    FlagGroup
	switches []row
	entries  []row
}

func newGroupBlock(g FlagGroup) groupBlock {
	kind := g.Kind
	if kind == "" {
		kind = "flag"
	}
	prefix := ""
	if len(g.Entries) > 0 {
		prefix = g.Entries[0].Prefix
	}
	b := groupBlock{group: g, switches: []row{
		{left: fmt.Sprintf("-%s<%s>", prefix, kind), usage: "Enable a specific " + kind},
		{left: fmt.Sprintf("-%sno-<%s>", prefix, kind), usage: "Disable a specific " + kind},
	}}
	entries := slices.Clone(g.Entries)
	slices.SortFunc(entries, func(x, y FlagGroupEntry) int { return strings.Compare(x.Name, y.Name) })
	for _, e := range entries {
		state := "|-|"
		if e.Enabled != nil && *e.Enabled && (e.Disabled == nil || !*e.Disabled) {
			state = "|x|"
		}
		b.entries = append(b.entries, row{left: e.Name, usage: e.Usage, right: state})
	}
	return b
}

func (a *App) writeUsage(w io.Writer) {
	var sb strings.Builder
	synopsis := a.Synopsis
	if synopsis == "" {
		synopsis = "[options] <file> ..."
	}
	fmt.Fprintf(&sb, "Usage: %s %s\n", a.Name, synopsis)

	if opts := a.optionRows(); len(opts) > 0 {
		t := newTable(terminalWidth(), opts)
		heading(&sb, "Options")
		for _, r := range opts {
			t.write(&sb, r)
		}
	}
	fmt.Fprintf(&sb, "\nRun '%s --help' for all available options and flags.\n", a.Name)
	io.WriteString(w, sb.String())
}

func (a *App) writeHelp(w io.Writer) {
	opts := a.optionRows()
	groups := slices.Clone(a.FlagSet.groups)
	slices.SortFunc(groups, func(x, y FlagGroup) int { return strings.Compare(x.Name, y.Name) })
	blocks := lo.Map(groups, func(g FlagGroup, _ int) groupBlock { return newGroupBlock(g) })

	sections := [][]row{opts}
	for _, b := range blocks {
		sections = append(sections, b.switches, b.entries)
	}
	width := terminalWidth()
	t := newTable(width, sections...)

	var sb strings.Builder
	sb.WriteString("\n")
	if a.Version != "" {
		fmt.Fprintf(&sb, "%s%s %s\n", indent(1), a.Name, a.Version)
	}
	fmt.Fprintf(&sb, "%sCopyright (c) %d: %s and contributors\n", indent(1), a.Since, strings.Join(a.Authors, ", "))
	if a.Repository != "" {
		fmt.Fprintf(&sb, "%sFor more details refer to %s\n", indent(1), a.Repository)
	}

	if a.Synopsis != "" {
		heading(&sb, "Synopsis")
		synopsis := strings.NewReplacer("[", "<", "]", ">").Replace(a.Synopsis)
		fmt.Fprintf(&sb, "%s%s %s\n", indent(2), a.Name, synopsis)
	}
	if a.Description != "" {
		heading(&sb, "Description")
		for _, line := range wrapText(a.Description, width-len(indent(2))) {
			fmt.Fprintf(&sb, "%s%s\n", indent(2), line)
		}
	}

	if len(opts) > 0 {
		heading(&sb, "Options")
		for _, r := range opts {
			t.write(&sb, r)
		}
	}
	for _, b := range blocks {
		heading(&sb, b.group.Name)
		for _, r := range b.switches {
			t.write(&sb, r)
		}
		if b.group.Header != "" {
			fmt.Fprintf(&sb, "%s%s\n", indent(1), b.group.Header)
		}
		for _, r := range b.entries {
			t.write(&sb, r)
		}
	}
	io.WriteString(w, sb.String())
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return defaultWidth
	}
	return max(width, minWidth)
}

// wrapText splits text into lines of at most width bytes, breaking at spaces.
// A word longer than width gets a line of its own.
func wrapText(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}
	lines := []string{}
	line := ""
	for _, word := range strings.Fields(text) {
		switch {
		case line == "":
			line = word
		case len(line)+1+len(word) > width:
			lines = append(lines, line)
			line = word
		default:
			line += " " + word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}
