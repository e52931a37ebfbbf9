package command

import (
	"context"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	oscerrors "github.com/joona/osckit/errors"
)

// Loader builds a fresh Command.
type Loader func() Command

// Registry maps command names, which may span several words such as
// "server list", to loaders.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// Register adds name. A name can be registered once; a second Register for
// it fails and keeps the first loader.
func (r *Registry) Register(name string, loader Loader) error {
	if r.Has(name) {
		return oscerrors.Commandf("command %q already registered", normalize(name))
	}
	r.loaders[normalize(name)] = loader
	return nil
}

func normalize(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.loaders))
	for name := range r.loaders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Find looks name up exactly and then as a unique prefix.
func (r *Registry) Find(name string) (string, Loader, error) {
	name = normalize(name)
	if loader, ok := r.loaders[name]; ok {
		return name, loader, nil
	}
	switch candidates := r.prefixed(strings.Fields(name)); len(candidates) {
	case 0:
		return "", nil, &oscerrors.NotFoundError{Kind: "command", Query: name, Suggestion: r.suggest([]string{name})}
	case 1:
		return candidates[0], r.loaders[candidates[0]], nil
	default:
		return "", nil, &oscerrors.AmbiguousMatchError{Kind: "command", Query: name, IDs: candidates}
	}
}

// prefixed returns the names with exactly len(words) words where each typed
// word is a prefix of the word in the same position.
func (r *Registry) prefixed(words []string) []string {
	var out []string
	for _, name := range r.Names() {
		parts := strings.Fields(name)
		if len(parts) != len(words) {
			continue
		}
		match := true
		for i, w := range words {
			if !strings.HasPrefix(parts[i], w) {
				match = false
				break
			}
		}
		if match {
			out = append(out, name)
		}
	}
	return out
}

// FindCommand resolves the command named by the leading words of argv and
// returns the arguments that follow it. Exact matches on the longest run of
// words win; prefix matching, word by word against names of the same length,
// is tried only when nothing matches exactly.
func (r *Registry) FindCommand(argv []string) (string, Loader, []string, error) {
	words := argv
	for i, arg := range argv {
		if strings.HasPrefix(arg, "-") {
			words = argv[:i]
			break
		}
	}
	if len(words) == 0 {
		return "", nil, nil, oscerrors.Commandf("no command given")
	}

	for n := len(words); n > 0; n-- {
		name := strings.Join(words[:n], " ")
		if loader, ok := r.loaders[name]; ok {
			return name, loader, argv[n:], nil
		}
	}
	for n := len(words); n > 0; n-- {
		switch candidates := r.prefixed(words[:n]); len(candidates) {
		case 0:
			continue
		case 1:
			return candidates[0], r.loaders[candidates[0]], argv[n:], nil
		default:
			return "", nil, nil, &oscerrors.AmbiguousMatchError{
				Kind:  "command",
				Query: strings.Join(words[:n], " "),
				IDs:   candidates,
			}
		}
	}
	return "", nil, nil, &oscerrors.NotFoundError{
		Kind:       "command",
		Query:      strings.Join(words, " "),
		Suggestion: r.suggest(words),
	}
}

// Binder builds the Context cmd runs with from a parsed urfave invocation.
type Binder func(cCtx *cli.Context, cmd Command) (*Context, error)

// CLICommand adapts the named command to a *cli.Command.
func (r *Registry) CLICommand(name string, bind Binder) (*cli.Command, error) {
	name = normalize(name)
	loader, ok := r.loaders[name]
	if !ok {
		return nil, &oscerrors.NotFoundError{Kind: "command", Query: name, Suggestion: r.suggest(strings.Fields(name))}
	}
	cmd := loader()
	cc := &cli.Command{
		Name:  name,
		Usage: cmd.Usage(),
		Flags: cmd.Flags(),
		Action: func(cCtx *cli.Context) error {
			ctx, err := bind(cCtx, cmd)
			if err != nil {
				return err
			}
			if ctx.CLI == nil {
				ctx.CLI = cCtx
			}
			return cmd.Execute(ctx)
		},
	}
	if a, ok := cmd.(ArgsUser); ok {
		cc.ArgsUsage = a.ArgsUsage()
	}
	return cc, nil
}

// Run resolves argv and executes the command as its own urfave app, so the
// command's flags are parsed from the arguments after its name.
func (r *Registry) Run(ctx context.Context, argv []string, bind Binder) error {
	name, _, rest, err := r.FindCommand(argv)
	if err != nil {
		return err
	}
	cc, err := r.CLICommand(name, bind)
	if err != nil {
		return err
	}
	app := &cli.App{
		Name:            name,
		Usage:           cc.Usage,
		ArgsUsage:       cc.ArgsUsage,
		Flags:           cc.Flags,
		Action:          cc.Action,
		HideHelpCommand: true,
		HideVersion:     true,
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return oscerrors.Commandf("%s: %w", name, err)
		},
		ExitErrHandler: func(*cli.Context, error) {},
	}
	return app.RunContext(ctx, append([]string{name}, rest...))
}

// RequiresAuth reports whether cmd needs credentials.
func RequiresAuth(cmd Command) bool {
	if a, ok := cmd.(AuthRequirer); ok {
		return a.AuthRequired()
	}
	return true
}

// suggest returns the registered name closest to some leading run of words,
// or "" when nothing is within an edit distance of 3.
func (r *Registry) suggest(words []string) string {
	best, bestDistance := "", 4
	names := r.Names()
	for n := len(words); n > 0; n-- {
		typed := strings.Join(words[:n], " ")
		for _, name := range names {
			if d := levenshtein(typed, name); d < bestDistance {
				best, bestDistance = name, d
			}
		}
	}
	return best
}

// levenshtein is the single-character edit distance between a and b.
func levenshtein(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	previous := make([]int, len(a)+1)
	for i := range previous {
		previous[i] = i
	}
	for j := 1; j <= len(b); j++ {
		current := make([]int, len(a)+1)
		current[0] = j
		for i := 1; i <= len(a); i++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			current[i] = min(previous[i]+1, current[i-1]+1, previous[i-1]+cost)
		}
		previous = current
	}
	return previous[len(a)]
}

// Has reports whether name is registered exactly.
func (r *Registry) Has(name string) bool {
	_, ok := r.loaders[normalize(name)]
	return ok
}
