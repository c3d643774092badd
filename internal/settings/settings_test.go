package settings_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hijack-addon/hijack/internal/hostconfig"
	"hijack-addon/hijack/internal/settings"
)

// mutableHost lets a test change host values after the proxy is built.
type mutableHost struct {
	mu     sync.RWMutex
	values map[string]any
}

func (h *mutableHost) Lookup(name string) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.values[name]
	return v, ok
}

func (h *mutableHost) set(name string, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values[name] = v
}

func (h *mutableHost) unset(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.values, name)
}

func djangoLikeHost() *mutableHost {
	return &mutableHost{values: map[string]any{
		"LOGIN_REDIRECT_URL":  "/accounts/profile/",
		"LOGOUT_REDIRECT_URL": nil,
		"DEBUG":               true,
	}}
}

func TestGet(t *testing.T) {
	tests := []struct {
		name    string
		host    map[string]any
		key     string
		want    any
		wantErr bool
	}{
		{
			name: "host value wins over default",
			host: map[string]any{"INSERT_BEFORE": "</main>"},
			key:  settings.KeyInsertBefore,
			want: "</main>",
		},
		{
			name: "host value wins for permission check",
			host: map[string]any{"PERMISSION_CHECK": "hijack.permissions.superusers_and_staff"},
			key:  settings.KeyPermissionCheck,
			want: "hijack.permissions.superusers_and_staff",
		},
		{
			name: "insert before default",
			host: map[string]any{},
			key:  settings.KeyInsertBefore,
			want: "</body>",
		},
		{
			name: "permission check default",
			host: map[string]any{},
			key:  settings.KeyPermissionCheck,
			want: "hijack.permissions.superusers_only",
		},
		{
			name: "host only key",
			host: map[string]any{"DEBUG": false},
			key:  "DEBUG",
			want: false,
		},
		{
			name:    "undefined everywhere",
			host:    map[string]any{},
			key:     "NOT_A_SETTING",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := settings.New(hostconfig.NewMap(tt.host))

			got, err := p.Get(tt.key)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, settings.ErrMissingAttribute))

				var missing *settings.MissingAttributeError
				require.ErrorAs(t, err, &missing)
				assert.Equal(t, tt.key, missing.Name)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoginRedirectSnapshot(t *testing.T) {
	p := settings.New(hostconfig.NewMap(map[string]any{"LOGIN_REDIRECT_URL": "/home/"}))

	got, err := p.Get(settings.KeyLoginRedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "/home/", got)
	assert.True(t, p.Snapshotted(settings.KeyLoginRedirectURL))
	assert.False(t, p.Snapshotted(settings.KeyLogoutRedirectURL))

	_, err = p.Get(settings.KeyLogoutRedirectURL)
	assert.ErrorIs(t, err, settings.ErrMissingAttribute)
}

func TestLiveVersusSnapshot(t *testing.T) {
	host := djangoLikeHost()
	p := settings.New(host)

	// Live keys follow the host.
	host.set("DEBUG", false)
	v, err := p.Get("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, false, v)

	// A host change to a snapshotted key is visible while the host defines it.
	host.set("LOGIN_REDIRECT_URL", "/dashboard/")
	url, err := p.LoginRedirectURL()
	require.NoError(t, err)
	assert.Equal(t, "/dashboard/", url)

	// Once the host drops it, the value captured at construction answers.
	host.unset("LOGIN_REDIRECT_URL")
	v, src, err := p.Resolve(settings.KeyLoginRedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "/accounts/profile/", v)
	assert.Equal(t, settings.SourceDefault, src)

	// Non-snapshotted keys have nothing to fall back to.
	host.unset("DEBUG")
	_, err = p.Get("DEBUG")
	assert.ErrorIs(t, err, settings.ErrMissingAttribute)
}

func TestResolveSource(t *testing.T) {
	p := settings.New(hostconfig.NewMap(map[string]any{"INSERT_BEFORE": "</html>"}))

	_, src, err := p.Resolve(settings.KeyInsertBefore)
	require.NoError(t, err)
	assert.Equal(t, settings.SourceHost, src)

	_, src, err = p.Resolve(settings.KeyPermissionCheck)
	require.NoError(t, err)
	assert.Equal(t, settings.SourceDefault, src)
}

func TestStringAccessors(t *testing.T) {
	host := djangoLikeHost()
	p := settings.New(host)

	check, err := p.PermissionCheck()
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultPermissionCheck, check)

	marker, err := p.InsertBefore()
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultInsertBefore, marker)

	// The host defines LOGOUT_REDIRECT_URL as nil, which is not a string.
	_, err = p.LogoutRedirectURL()
	var typeErr *settings.TypeError
	require.ErrorAs(t, err, &typeErr)
	assert.Equal(t, settings.KeyLogoutRedirectURL, typeErr.Name)

	_, err = p.String("MISSING")
	assert.ErrorIs(t, err, settings.ErrMissingAttribute)
}

func TestConcurrentReads(t *testing.T) {
	p := settings.New(djangoLikeHost())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v, err := p.Get(settings.KeyInsertBefore)
				assert.NoError(t, err)
				assert.Equal(t, "</body>", v)
			}
		}()
	}
	wg.Wait()
}
