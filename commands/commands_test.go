package commands

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"southwinds.dev/rooster"
	"southwinds.dev/rooster/internal/clierror"
	"southwinds.dev/rooster/internal/crypto"
	"southwinds.dev/rooster/internal/format"
	"southwinds.dev/rooster/internal/generate"
	"southwinds.dev/rooster/internal/misc"
	"southwinds.dev/rooster/internal/prompt"
	"southwinds.dev/rooster/persist"
	"southwinds.dev/rooster/secure"
)

type fakePrompter struct {
	passwords []string
	answers   []bool
	prompts   []string
}

func (p *fakePrompter) Password(text string) (*secure.Buffer, error) {
	p.prompts = append(p.prompts, text)
	if len(p.passwords) == 0 {
		return nil, io.ErrUnexpectedEOF
	}
	next := p.passwords[0]
	p.passwords = p.passwords[1:]
	return secure.NewFromString(next), nil
}

func (p *fakePrompter) Line(text string) (string, error) {
	p.prompts = append(p.prompts, text)
	return "", io.ErrUnexpectedEOF
}

func (p *fakePrompter) Confirm(question string) (bool, error) {
	p.prompts = append(p.prompts, question)
	if len(p.answers) == 0 {
		return false, io.ErrUnexpectedEOF
	}
	next := p.answers[0]
	p.answers = p.answers[1:]
	return next, nil
}

type fakeClipboard struct {
	text string
	err  error
}

func (c *fakeClipboard) Copy(text string) error {
	if c.err != nil {
		return c.err
	}
	c.text = text
	return nil
}

type harness struct {
	t        *testing.T
	storage  *persist.MemoryStore
	prompter *fakePrompter
	board    *fakeClipboard
	out      *bytes.Buffer
	errOut   *bytes.Buffer
	ctx      *Context
	registry *Registry
	options  []rooster.Option
}

func cheapSchemes(t *testing.T) format.Registry {
	t.Helper()
	schemes := format.DefaultSchemes()
	for i := range schemes {
		switch kdf := schemes[i].KDF.(type) {
		case crypto.PBKDF2:
			kdf.Iterations = 16
			schemes[i].KDF = kdf
		case crypto.Argon2id:
			kdf.Time = 1
			kdf.Memory = 64
			kdf.Threads = 1
			schemes[i].KDF = kdf
		}
	}
	r, err := format.NewRegistry(misc.CurrentFormat, schemes...)
	require.NoError(t, err)
	return r
}

// newHarness returns a harness whose storage is empty.
func newHarness(t *testing.T) *harness {
	h := &harness{
		t:        t,
		storage:  persist.NewMemoryStore(nil),
		prompter: &fakePrompter{},
		board:    &fakeClipboard{},
		out:      &bytes.Buffer{},
		errOut:   &bytes.Buffer{},
		registry: NewRegistry(),
		options:  []rooster.Option{rooster.WithSchemes(cheapSchemes(t))},
	}
	h.ctx = &Context{
		Out:       h.out,
		Err:       h.errOut,
		Prompter:  h.prompter,
		Clipboard: h.board,
		Generate:  generate.Options{Length: misc.DefaultPasswordLength},
	}
	return h
}

// newSeededHarness returns a harness holding a file unlocked by "master".
func newSeededHarness(t *testing.T, entries ...[3]string) *harness {
	h := newHarness(t)
	store, err := rooster.New(secure.NewFromString("master"), h.options...)
	require.NoError(t, err)
	defer store.Close()
	for _, e := range entries {
		require.NoError(t, store.Add(rooster.NewEntry(e[0], e[1], secure.NewFromString(e[2]))))
	}
	require.NoError(t, store.Sync(h.storage))
	return h
}

func (h *harness) run(passwords []string, name string, args ...string) error {
	h.t.Helper()
	c, ok := h.registry.Lookup(name)
	require.True(h.t, ok, "command %s", name)
	h.prompter.passwords = passwords
	h.prompter.prompts = nil
	h.out.Reset()
	h.errOut.Reset()
	r := &Runner{Storage: h.storage, Context: h.ctx, Options: h.options}
	return r.Run(c, args)
}

func (h *harness) reopen(passphrase string) *rooster.Store {
	h.t.Helper()
	data, err := h.storage.Load()
	require.NoError(h.t, err)
	store, err := rooster.FromInput(secure.NewFromString(passphrase), data, h.options...)
	require.NoError(h.t, err)
	h.t.Cleanup(store.Close)
	return store
}

func (h *harness) password(name string) string {
	h.t.Helper()
	e, err := h.reopen("master").Get(name)
	require.NoError(h.t, err)
	defer e.Destroy()
	data, err := e.Password.Bytes()
	require.NoError(h.t, err)
	return string(data)
}

func requireCLICode(t *testing.T, err error, code string) {
	t.Helper()
	var cliErr *clierror.CLIError
	require.True(t, errors.As(err, &cliErr), "expected a CLI error, got %v", err)
	assert.Equal(t, code, cliErr.Code)
}

func TestRegistryHasEveryCommand(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{
		"add", "change", "change-master-password", "delete", "export", "generate",
		"get", "list", "regenerate", "rename", "search",
	} {
		c, ok := r.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, name, c.Name())
		assert.NotEmpty(t, c.Help())
	}
	assert.Len(t, r.All(), 11)
	assert.Equal(t, "add", r.All()[0].Name())

	assert.Error(t, r.Register(listCommand{}))
}

func TestExportHelpWarnsAboutPlaintext(t *testing.T) {
	c, _ := NewRegistry().Lookup("export")
	assert.Contains(t, c.Help(), "UNENCRYPTED")
}

type unreadableStorage struct {
	*persist.MemoryStore
}

func (unreadableStorage) Exists() (bool, error) {
	return false, errors.New("permission denied")
}

func TestRunnerReportsUnreadableLocation(t *testing.T) {
	h := newHarness(t)
	c, _ := h.registry.Lookup("list")
	r := &Runner{Storage: unreadableStorage{h.storage}, Context: h.ctx, Options: h.options}

	err := r.Run(c, nil)
	var ioErr *rooster.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "stat", ioErr.Op)
	assert.Empty(t, h.prompter.prompts, "nothing is asked before the file is found")
}

func TestRunnerCreatesMissingFile(t *testing.T) {
	h := newHarness(t)
	h.prompter.answers = []bool{true}

	require.NoError(t, h.run([]string{"master", "master"}, "list"))
	assert.Contains(t, h.out.String(), "No passwords on file")
	assert.Equal(t, 1, h.storage.Saves())
	assert.Equal(t, 0, h.reopen("master").Len())
}

func TestRunnerDeclinedCreate(t *testing.T) {
	h := newHarness(t)
	h.prompter.answers = []bool{false}

	err := h.run(nil, "list")
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Equal(t, 0, h.storage.Saves())
}

func TestRunnerRejectsMismatchedNewPassword(t *testing.T) {
	h := newHarness(t)
	h.prompter.answers = []bool{true}

	err := h.run([]string{"master", "mister"}, "list")
	assert.ErrorIs(t, err, prompt.ErrMismatch)
	assert.Equal(t, 0, h.storage.Saves())
}

func TestRunnerRejectsEmptyNewPassword(t *testing.T) {
	h := newHarness(t)
	h.prompter.answers = []bool{true}

	requireCLICode(t, h.run([]string{"", ""}, "list"), clierror.CodeInvalidInput)
	assert.Equal(t, 0, h.storage.Saves())
}

func TestRunnerWrongMasterPassword(t *testing.T) {
	h := newSeededHarness(t)

	err := h.run([]string{"wrong"}, "add", "github", "alice")
	assert.ErrorIs(t, err, rooster.ErrAuthentication)
	assert.Equal(t, 1, h.storage.Saves())
}

func TestRunnerChecksArgumentsBeforePrompting(t *testing.T) {
	h := newSeededHarness(t)

	requireCLICode(t, h.run(nil, "get"), clierror.CodeInvalidInput)
	requireCLICode(t, h.run(nil, "list", "extra"), clierror.CodeInvalidInput)
	assert.Empty(t, h.prompter.prompts)
}

func TestAddThenGet(t *testing.T) {
	h := newSeededHarness(t)

	require.NoError(t, h.run([]string{"master", "hunter2"}, "add", "github", "alice"))
	assert.Equal(t, 2, h.storage.Saves())
	assert.Contains(t, h.prompter.prompts[1], "github")
	assert.Equal(t, "hunter2", h.password("github"))

	require.NoError(t, h.run([]string{"master"}, "get", "github"))
	assert.Equal(t, "hunter2", h.board.text)
	assert.Contains(t, h.out.String(), "Username: alice")
	assert.NotContains(t, h.out.String(), "hunter2")
	assert.Equal(t, 2, h.storage.Saves(), "reading must not rewrite the file")
}

func TestGetShowPrintsPassword(t *testing.T) {
	h := newSeededHarness(t, [3]string{"github", "alice", "hunter2"})
	h.ctx.Show = true

	require.NoError(t, h.run([]string{"master"}, "get", "github"))
	assert.Equal(t, "hunter2\n", h.out.String())
	assert.Empty(t, h.board.text)
}

func TestGetClipboardFailure(t *testing.T) {
	h := newSeededHarness(t, [3]string{"github", "alice", "hunter2"})
	h.board.err = errors.New("exec: \"xclip\": executable file not found in $PATH")

	requireCLICode(t, h.run([]string{"master"}, "get", "github"), clierror.CodeClipboardUnavailable)
}

func TestGetMissingEntry(t *testing.T) {
	h := newSeededHarness(t)

	err := h.run([]string{"master"}, "get", "github")
	assert.ErrorIs(t, err, rooster.ErrNotFound)
	assert.Equal(t, clierror.ExitNotFound, clierror.FromError(err).ExitCode)
}

func TestAddDuplicateDoesNotPrompt(t *testing.T) {
	h := newSeededHarness(t, [3]string{"github", "alice", "hunter2"})

	err := h.run([]string{"master", "other"}, "add", "github", "bob")
	assert.ErrorIs(t, err, rooster.ErrDuplicateName)
	assert.Len(t, h.prompter.prompts, 1)
	assert.Equal(t, 1, h.storage.Saves())
	assert.Equal(t, "hunter2", h.password("github"))
}

func TestAddEmptyPassword(t *testing.T) {
	h := newSeededHarness(t)

	requireCLICode(t, h.run([]string{"master", ""}, "add", "github", "alice"), clierror.CodeInvalidInput)
	assert.Equal(t, 1, h.storage.Saves())
}

func TestGenerate(t *testing.T) {
	h := newSeededHarness(t)
	h.ctx.Generate = generate.Options{Length: 20, Alnum: true}

	require.NoError(t, h.run([]string{"master"}, "generate", "github", "alice"))
	require.Len(t, h.board.text, 20)
	for _, r := range h.board.text {
		assert.True(t, unicode.IsLetter(r) || unicode.IsDigit(r), "unexpected %q", r)
	}
	assert.Equal(t, h.board.text, h.password("github"))

	summaries := h.reopen("master").List()
	require.Len(t, summaries, 1)
	assert.Equal(t, "alice", summaries[0].Username)
}

func TestGenerateRejectsImpossibleLength(t *testing.T) {
	h := newSeededHarness(t)
	h.ctx.Generate = generate.Options{Length: 2}

	requireCLICode(t, h.run([]string{"master"}, "generate", "github", "alice"), clierror.CodeInvalidInput)
	assert.Equal(t, 1, h.storage.Saves())
}

func TestRegenerate(t *testing.T) {
	h := newSeededHarness(t, [3]string{"github", "alice", "hunter2"})

	require.NoError(t, h.run([]string{"master"}, "regenerate", "github"))
	assert.Len(t, h.board.text, misc.DefaultPasswordLength)
	assert.Equal(t, h.board.text, h.password("github"))

	err := h.run([]string{"master"}, "regenerate", "gitlab")
	assert.ErrorIs(t, err, rooster.ErrNotFound)
}

func TestChange(t *testing.T) {
	h := newSeededHarness(t, [3]string{"github", "alice", "hunter2"})

	require.NoError(t, h.run([]string{"master", "correct horse"}, "change", "github"))
	assert.Equal(t, "correct horse", h.password("github"))

	err := h.run([]string{"master", "unused"}, "change", "gitlab")
	assert.ErrorIs(t, err, rooster.ErrNotFound)
	assert.Len(t, h.prompter.prompts, 1)
}

func TestDelete(t *testing.T) {
	h := newSeededHarness(t, [3]string{"github", "alice", "hunter2"}, [3]string{"gitlab", "bob", "pw"})

	require.NoError(t, h.run([]string{"master"}, "delete", "github"))
	summaries := h.reopen("master").List()
	require.Len(t, summaries, 1)
	assert.Equal(t, "gitlab", summaries[0].Name)

	saves := h.storage.Saves()
	assert.ErrorIs(t, h.run([]string{"master"}, "delete", "github"), rooster.ErrNotFound)
	assert.Equal(t, saves, h.storage.Saves())
}

func TestRename(t *testing.T) {
	h := newSeededHarness(t, [3]string{"github", "alice", "hunter2"}, [3]string{"gitlab", "bob", "pw"})

	require.NoError(t, h.run([]string{"master"}, "rename", "github", "gh"))
	assert.Equal(t, "hunter2", h.password("gh"))

	err := h.run([]string{"master"}, "rename", "gh", "gitlab")
	assert.ErrorIs(t, err, rooster.ErrDuplicateName)
}

func TestListAndSearch(t *testing.T) {
	h := newSeededHarness(t,
		[3]string{"zulip", "carol", "a"},
		[3]string{"GitHub", "alice", "b"},
		[3]string{"mail", "", "c"},
	)

	require.NoError(t, h.run([]string{"master"}, "list"))
	out := h.out.String()
	assert.Contains(t, out, "APP")
	assert.Less(t, bytes.Index([]byte(out), []byte("zulip")), bytes.Index([]byte(out), []byte("GitHub")))
	assert.Contains(t, out, "mail")

	require.NoError(t, h.run([]string{"master"}, "search", "git"))
	assert.Contains(t, h.out.String(), "GitHub")
	assert.NotContains(t, h.out.String(), "zulip")

	require.NoError(t, h.run([]string{"master"}, "search", "CAROL"))
	assert.Contains(t, h.out.String(), "zulip")

	require.NoError(t, h.run([]string{"master"}, "search", "nothing"))
	assert.Contains(t, h.out.String(), "Nothing matches")
}

func TestExport(t *testing.T) {
	h := newSeededHarness(t, [3]string{"github", "alice", "hunter2"})
	h.ctx.ExportFormat = rooster.ExportYAML

	require.NoError(t, h.run([]string{"master"}, "export"))
	assert.Contains(t, h.out.String(), "password: hunter2")
	assert.Contains(t, h.errOut.String(), "not encrypted")
	assert.Equal(t, 1, h.storage.Saves())

	h.ctx.ExportFormat = "csv"
	requireCLICode(t, h.run([]string{"master"}, "export"), clierror.CodeInvalidInput)
}

func TestChangeMasterPassword(t *testing.T) {
	h := newSeededHarness(t, [3]string{"github", "alice", "hunter2"})

	require.NoError(t, h.run([]string{"master", "new master", "new master"}, "change-master-password"))

	data, err := h.storage.Load()
	require.NoError(t, err)
	_, err = rooster.FromInput(secure.NewFromString("master"), data, h.options...)
	assert.ErrorIs(t, err, rooster.ErrAuthentication)

	store := h.reopen("new master")
	e, err := store.Get("github")
	require.NoError(t, err)
	defer e.Destroy()
	assert.Equal(t, "alice", e.Username)
}

func TestChangeMasterPasswordMismatch(t *testing.T) {
	h := newSeededHarness(t)

	err := h.run([]string{"master", "one", "two"}, "change-master-password")
	assert.ErrorIs(t, err, prompt.ErrMismatch)
	assert.Equal(t, 1, h.storage.Saves())
	h.reopen("master")
}
