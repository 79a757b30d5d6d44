package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"gorm.io/gorm"

	"github.com/fleetwatch/fleetwatch/internal/database"
)

// SecretsProvider resolves the env vars scoped to one plugin
type SecretsProvider interface {
	For(scopeType, scopeID string) (map[string]string, error)
}

// PluginHandler executes a plugin definition as a child process. The
// dispatch context is serialized as JSON onto the child's stdin; stdout
// may carry a self-identifying JSON result that overrides the action's
// code and description.
type PluginHandler struct {
	db      *gorm.DB
	secrets SecretsProvider
}

// NewPluginHandler creates the plugin action handler
func NewPluginHandler(db *gorm.DB, secrets SecretsProvider) *PluginHandler {
	return &PluginHandler{db: db, secrets: secrets}
}

// Timeout is the outer deadline; individual plugins tighten it via their
// own timeout_seconds
func (h *PluginHandler) Timeout() time.Duration {
	return 300 * time.Second
}

// Handle resolves the plugin, builds its environment and runs it
func (h *PluginHandler) Handle(ctx context.Context, a *Action, dc *Context) {
	plugin, err := database.GetPluginByPluginID(h.db, a.PluginID)
	if err != nil {
		a.Fail(CodePluginNotFound, fmt.Sprintf("plugin not found: %s", a.PluginID))
		return
	}
	if !plugin.Enabled {
		a.Fail(CodePluginDisabled, fmt.Sprintf("plugin is disabled: %s", a.PluginID))
		return
	}

	env := environMap(os.Environ())

	if h.secrets != nil {
		secrets, err := h.secrets.For("plugin", plugin.PluginID)
		if err != nil {
			a.Fail(CodePluginError, fmt.Sprintf("failed to load secrets for plugin %s: %v", plugin.PluginID, err))
			return
		}
		for k, v := range secrets {
			env[k] = v
		}
	}

	// Plugin params go in last; values may reference $VAR against the
	// environment built so far (single pass, no recursion).
	mergeParams(env, plugin.Params)

	var cred *syscall.Credential
	if plugin.RunAs != "" {
		c, userEnv, err := resolveIdentity(plugin.RunAs)
		if err != nil {
			a.Fail(CodePluginBadUser, fmt.Sprintf("cannot resolve plugin user %q: %v", plugin.RunAs, err))
			return
		}
		cred = c
		for k, v := range userEnv {
			env[k] = v
		}
	}

	timeout := time.Duration(plugin.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{}
	var scriptPath string
	if plugin.Script != "" {
		f, err := os.CreateTemp("", "fleetwatch-plugin-*.sh")
		if err != nil {
			a.Fail(CodePluginError, fmt.Sprintf("failed to stage plugin script: %v", err))
			return
		}
		scriptPath = f.Name()
		defer os.Remove(scriptPath)
		if _, err := f.WriteString(plugin.Script); err != nil {
			f.Close()
			a.Fail(CodePluginError, fmt.Sprintf("failed to stage plugin script: %v", err))
			return
		}
		f.Close()
		args = append(args, scriptPath)
	}

	cmd := exec.CommandContext(cctx, plugin.Command, args...)
	cmd.Env = flattenEnv(env)
	if cred != nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{Credential: cred}
	}

	stdinPayload, _ := json.Marshal(map[string]interface{}{
		"condition":   dc.Condition,
		"record_kind": dc.RecordKind,
		"record_id":   dc.RecordID,
		"title":       dc.Title,
		"server":      dc.Server,
		"params":      a.Params,
		"data":        dc.Data,
	})
	cmd.Stdin = bytes.NewReader(stdinPayload)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	// A self-identifying JSON object on stdout is authoritative for
	// code/description; raw output is appended either way.
	var details strings.Builder
	if out, ok := parsePluginOutput(stdout.Bytes()); ok {
		a.Code = out.code()
		a.Description = out.Description
		if out.Details != "" {
			details.WriteString(out.Details)
			details.WriteString("\n\n")
		}
	} else {
		a.Succeed(fmt.Sprintf("Plugin '%s' completed", plugin.Name))
		if s := strings.TrimSpace(stdout.String()); s != "" {
			details.WriteString(fencedSection("Output", s))
		}
	}
	if s := strings.TrimSpace(stderr.String()); s != "" {
		details.WriteString(fencedSection("STDERR", s))
	}

	if runErr != nil {
		a.Fail(CodePluginError, fmt.Sprintf("plugin process failed: %v", runErr))
		details.WriteString(processErrorDetail(cmd, runErr, cctx))
	}

	a.Details = strings.TrimSpace(details.String())
}

// pluginOutput is the structured result a plugin may print as its sole
// stdout content. The marker field distinguishes it from incidental JSON.
type pluginOutput struct {
	Marker      bool        `json:"fleetwatch_plugin"`
	Code        interface{} `json:"code"`
	Description string      `json:"description"`
	Details     string      `json:"details"`
}

// code normalizes the plugin-supplied code (number or string) to a string
func (o *pluginOutput) code() string {
	switch v := o.Code.(type) {
	case nil:
		return CodeOK
	case string:
		if v == "" {
			return CodeOK
		}
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// parsePluginOutput accepts stdout only when it is a single JSON object
// carrying the marker field
func parsePluginOutput(stdout []byte) (*pluginOutput, bool) {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 || trimmed[0] != '{' || trimmed[len(trimmed)-1] != '}' {
		return nil, false
	}
	var out pluginOutput
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, false
	}
	if !out.Marker {
		return nil, false
	}
	return &out, true
}

// environMap converts KEY=VALUE pairs into a map
func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if i := strings.IndexByte(kv, '='); i > 0 {
			env[kv[:i]] = kv[i+1:]
		}
	}
	return env
}

// flattenEnv converts the map back to sorted KEY=VALUE pairs
func flattenEnv(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

// mergeParams adds plugin params to env, expanding $VAR references
// against the environment built so far
func mergeParams(env map[string]string, params database.JSONB) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, ok := params[k].(string)
		if !ok {
			v = fmt.Sprintf("%v", params[k])
		}
		env[k] = expandEnvValue(v, env)
	}
}

// expandEnvValue performs one non-recursive pass of $NAME / ${NAME}
// substitution. Unknown names expand to the empty string, matching
// os.Expand semantics.
func expandEnvValue(value string, env map[string]string) string {
	return os.Expand(value, func(name string) string {
		return env[name]
	})
}

// resolveIdentity maps a username or numeric uid to process credentials
// plus the USER/HOME/SHELL vars the child expects
func resolveIdentity(runAs string) (*syscall.Credential, map[string]string, error) {
	var u *user.User
	var err error
	if _, numErr := strconv.Atoi(runAs); numErr == nil {
		u, err = user.LookupId(runAs)
	} else {
		u, err = user.Lookup(runAs)
	}
	if err != nil {
		return nil, nil, err
	}

	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid uid %q: %w", u.Uid, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid gid %q: %w", u.Gid, err)
	}

	env := map[string]string{
		"USER":  u.Username,
		"HOME":  u.HomeDir,
		"SHELL": "/bin/sh",
	}
	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, env, nil
}

// fencedSection renders a titled fenced code block for the details field
func fencedSection(title, content string) string {
	return fmt.Sprintf("## %s\n\n```\n%s\n```\n\n", title, content)
}

// processErrorDetail describes how the child process ended
func processErrorDetail(cmd *exec.Cmd, runErr error, ctx context.Context) string {
	var b strings.Builder
	b.WriteString("## Process\n\n")
	if ctx.Err() == context.DeadlineExceeded {
		b.WriteString("- timed out\n")
	}
	if cmd.ProcessState != nil {
		b.WriteString(fmt.Sprintf("- exit code: %d\n", cmd.ProcessState.ExitCode()))
		if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			b.WriteString(fmt.Sprintf("- signal: %s\n", ws.Signal()))
		}
	} else {
		b.WriteString(fmt.Sprintf("- error: %v\n", runErr))
	}
	b.WriteString("\n")
	return b.String()
}
