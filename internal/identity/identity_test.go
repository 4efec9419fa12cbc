package identity

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "nested", "identity.json"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := tempStore(t)

	email, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, email, "missing file means anonymous")

	require.NoError(t, store.Save("a@x.com"))
	email, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)

	require.NoError(t, store.Clear())
	email, err = store.Load()
	require.NoError(t, err)
	assert.Empty(t, email)

	// Clearing twice is fine.
	require.NoError(t, store.Clear())
}

func TestSignInPersistsAndFiresHookOnce(t *testing.T) {
	store := tempStore(t)
	r := NewResolver(StaticProvider{Email: "a@x.com"}, store)

	var hooked []string
	r.Bind(func(email string) { hooked = append(hooked, email) })
	assert.Empty(t, hooked, "no identity yet, hook must not fire at bind")
	assert.Equal(t, StateAnonymous, r.State())

	email, err := r.SignIn(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)
	assert.Equal(t, []string{"a@x.com"}, hooked, "hook fires exactly once per transition")
	assert.Equal(t, StateAuthenticated, r.State())

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", persisted)
}

func TestSignInFailureLeavesStateUntouched(t *testing.T) {
	store := tempStore(t)
	r := NewResolver(StaticProvider{}, store)

	var fired bool
	r.Bind(func(string) { fired = true })

	_, err := r.SignIn(context.Background())
	require.ErrorIs(t, err, ErrEmptyIdentity)

	assert.Equal(t, StateAnonymous, r.State())
	assert.False(t, fired)
	_, ok := r.Current()
	assert.False(t, ok)

	persisted, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, persisted)
}

func TestBindFiresForRestoredIdentity(t *testing.T) {
	store := tempStore(t)
	require.NoError(t, store.Save("back@x.com"))

	r := NewResolver(StaticProvider{Email: "unused@x.com"}, store)
	assert.Equal(t, StateAuthenticated, r.State())

	var hooked []string
	r.Bind(func(email string) { hooked = append(hooked, email) })
	assert.Equal(t, []string{"back@x.com"}, hooked, "returning visitor rejoins without signing in")
}

func TestPromptProviderValidatesEmail(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "valid email", input: "a@x.com\n", want: "a@x.com"},
		{name: "surrounding whitespace", input: "  a@x.com  \n", want: "a@x.com"},
		{name: "blank line", input: "\n", wantErr: true},
		{name: "not an email", input: "nope\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PromptProvider{In: strings.NewReader(tt.input), Out: io.Discard}
			got, err := p.SignIn(context.Background())
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
