package ptyengine

import "os"

// StripVars is the process-wide list of environment variables removed
// before spawning an agent child, so a kild session opened from inside
// an existing agent session doesn't trip the parent's nesting-detection
// guard (original_source's sessions/env_cleanup.rs). Configurable via
// AppendStripVars for agents added later.
var StripVars = []string{
	"CLAUDECODE",
}

// AppendStripVars extends the process-wide strip list, e.g. from config.
func AppendStripVars(names ...string) {
	StripVars = append(StripVars, names...)
}

// cleanEnv returns base with every name in StripVars removed and overlay
// applied on top.
func cleanEnv(base []string, overlay map[string]string) []string {
	strip := make(map[string]bool, len(StripVars))
	for _, v := range StripVars {
		strip[v] = true
	}

	out := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		if name, _, ok := splitEnv(kv); ok && strip[name] {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range overlay {
		out = append(out, k+"="+v)
	}
	return out
}

func splitEnv(kv string) (name, value string, ok bool) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			return kv[:i], kv[i+1:], true
		}
	}
	return "", "", false
}

func environ() []string {
	return os.Environ()
}
