// Package command runs the external programs the installer drives.
//
// A Runner executes one program to completion, streams decoded output text to
// an observer as it arrives, and buffers stdout and stderr for inspection once
// the process has exited. Detach starts a program that the installer never
// waits for.
package command

import (
	"sort"
	"strings"
)

// Spec identifies one external command: the program name (resolved through
// PATH), its argument list, and optional environment overrides layered on top
// of the current process environment.
type Spec struct {
	Program string
	Args    []string
	Env     map[string]string
}

// String renders the command line as a user would type it, for logs and
// echoed progress. Arguments containing whitespace or quotes are
// double-quoted. Use CmdLine or ShellLine to build a line a shell executes.
func (s Spec) String() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, quoteArg(s.Program))
	for _, a := range s.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

// WithEnv returns a copy of s with the given overrides merged over its own.
func (s Spec) WithEnv(overrides map[string]string) Spec {
	if len(overrides) == 0 {
		return s
	}
	merged := make(map[string]string, len(s.Env)+len(overrides))
	for k, v := range s.Env {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	s.Env = merged
	return s
}

// environ layers the overrides over base. Keys are emitted in sorted order so
// the child environment is deterministic.
func (s Spec) environ(base []string) []string {
	if len(s.Env) == 0 {
		return nil // nil Env means "inherit" for os/exec
	}
	env := make([]string, 0, len(base)+len(s.Env))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := lookupFold(s.Env, key); overridden {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(s.Env))
	for k := range s.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+s.Env[k])
	}
	return env
}

// lookupFold finds key in m, ignoring case on platforms where environment
// names are case-insensitive.
func lookupFold(m map[string]string, key string) (string, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	if !envCaseInsensitive {
		return "", false
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func quoteArg(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"'") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
