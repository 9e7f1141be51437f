package command

import (
	"maps"
	"slices"
	"strings"
)

// cmdMeta are the characters cmd.exe interprets on a command line. Each is
// prefixed with a caret so cmd passes it through literally; a caret-escaped
// quote does not toggle cmd's quoting state.
const cmdMeta = `()%!^"<>&|`

// CmdLine renders s as a command line for cmd.exe /s /c. Each argument is
// quoted the way CommandLineToArgvW parses it, then cmd.exe metacharacters
// are caret-escaped. Env is not included; see SetPrefix.
func CmdLine(s Spec) string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, argvQuote(s.Program))
	for _, a := range s.Args {
		parts = append(parts, argvQuote(a))
	}
	return caretEscape(strings.Join(parts, " "))
}

// SetPrefix renders s.Env as cmd.exe assignments ready to precede a
// command: `set "K=V"&& `. Keys are sorted and an empty Env yields "".
// The quotes make cmd take the value literally, so quotes inside a value
// are dropped.
func SetPrefix(s Spec) string {
	var b strings.Builder
	for _, k := range slices.Sorted(maps.Keys(s.Env)) {
		v := strings.ReplaceAll(s.Env[k], `"`, "")
		b.WriteString(`set "` + k + "=" + v + `"&& `)
	}
	return b.String()
}

// ShellLine renders s for a POSIX shell: single-quoted environment
// assignments, sorted by key, followed by the single-quoted command.
func ShellLine(s Spec) string {
	parts := make([]string, 0, len(s.Env)+len(s.Args)+1)
	for _, k := range slices.Sorted(maps.Keys(s.Env)) {
		parts = append(parts, k+"="+shellQuote(s.Env[k]))
	}
	parts = append(parts, shellQuote(s.Program))
	for _, a := range s.Args {
		parts = append(parts, shellQuote(a))
	}
	return strings.Join(parts, " ")
}

// argvQuote quotes one argument for CommandLineToArgvW: backslashes are
// literal unless they precede a quote, in which case they are doubled.
func argvQuote(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\n\v\"") {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	slashes := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			slashes++
		case '"':
			b.WriteString(strings.Repeat(`\`, slashes+1))
			slashes = 0
		default:
			slashes = 0
		}
		b.WriteByte(s[i])
	}
	b.WriteString(strings.Repeat(`\`, slashes))
	b.WriteByte('"')
	return b.String()
}

func caretEscape(s string) string {
	if !strings.ContainsAny(s, cmdMeta) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(cmdMeta, r) {
			b.WriteByte('^')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// shellQuote leaves plain words alone and single-quotes everything else.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	plain := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune("-_./:=,+@%", r))
	}) < 0
	if plain {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
