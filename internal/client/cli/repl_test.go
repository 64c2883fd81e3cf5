package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmitrijs2005/propscan/internal/client/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool
	failWith error

	calls []string
	args  [][]string
}

func (f *fakeExec) record(name string, args ...string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	return f.failWith
}

func (f *fakeExec) isLoggedIn(context.Context) bool { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error  { return f.record("register") }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login")
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout")
}
func (f *fakeExec) Balance(context.Context) error { return f.record("balance") }
func (f *fakeExec) Refresh(context.Context) error { return f.record("refresh") }
func (f *fakeExec) Scan(_ context.Context, url string) error {
	return f.record("scan", url)
}
func (f *fakeExec) Compare(_ context.Context, ids []string) error {
	return f.record("compare", ids...)
}
func (f *fakeExec) Ask(_ context.Context, id, q string) error {
	return f.record("ask", id, q)
}
func (f *fakeExec) History(context.Context) error { return f.record("history") }
func (f *fakeExec) Stats(context.Context) error   { return f.record("stats") }

func runLines(t *testing.T, exec *fakeExec, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	runREPL(context.Background(), exec, func() string { return "(status)" }, in, &out)
	return out.String()
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	exec := &fakeExec{}
	out := runLines(t, exec,
		"help",
		"login",
		"help",
		"",
		"scan https://homes.example/a",
		"compare p1 p2 p3",
		"ask p1 how old is the roof?",
		"balance",
		"refresh",
		"history",
		"stats",
		"foobar",
		"logout",
		"exit",
		"balance",
	)

	assert.Equal(t, []string{"login", "scan", "compare", "ask", "balance", "refresh", "history", "stats", "logout"}, exec.calls)
	assert.Equal(t, []string{"https://homes.example/a"}, exec.args[1])
	assert.Equal(t, []string{"p1", "p2", "p3"}, exec.args[2])
	assert.Equal(t, []string{"p1", "how old is the roof?"}, exec.args[3])

	assert.Contains(t, out, helpLoggedOut)
	assert.Contains(t, out, helpLoggedIn)
	assert.Contains(t, out, "Unknown command: foobar")
	assert.Contains(t, out, "propscan (status)> ")
	assert.True(t, strings.HasSuffix(out, "Bye!\n"))
}

func TestRunREPL_UsageHints(t *testing.T) {
	exec := &fakeExec{loggedIn: true}
	out := runLines(t, exec, "scan", "scan a b", "compare p1", "ask p1", "quit")

	assert.Empty(t, exec.calls)
	assert.Contains(t, out, "Usage: scan <url>")
	assert.Contains(t, out, "Usage: compare <id> <id>...")
	assert.Contains(t, out, "Usage: ask <id> <question>")
}

func TestRunREPL_PrintsUserMessageOnly(t *testing.T) {
	exec := &fakeExec{loggedIn: true, failWith: &transport.Error{
		Outcome: transport.OutcomeTimeout,
		Message: transport.MsgTimeout,
		Reason:  "context deadline exceeded",
	}}
	out := runLines(t, exec, "scan https://homes.example/a", "history")

	assert.Equal(t, 2, strings.Count(out, transport.MsgTimeout))
	assert.NotContains(t, out, "deadline")
}

func TestRunREPL_UnknownErrorIsGeneric(t *testing.T) {
	exec := &fakeExec{failWith: errors.New("sql: database is locked")}
	out := runLines(t, exec, "login")

	require.Equal(t, []string{"login"}, exec.calls)
	assert.Contains(t, out, transport.MsgGeneric)
	assert.NotContains(t, out, "locked")
}
