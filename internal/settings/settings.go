// Package settings resolves add-on configuration against the host
// application's settings, falling back to built-in defaults.
package settings

import (
	"errors"
	"fmt"
)

// Keys known to the add-on.
const (
	KeyPermissionCheck   = "PERMISSION_CHECK"
	KeyInsertBefore      = "INSERT_BEFORE"
	KeyLoginRedirectURL  = "LOGIN_REDIRECT_URL"
	KeyLogoutRedirectURL = "LOGOUT_REDIRECT_URL"
)

// Built-in default values.
const (
	DefaultPermissionCheck = "hijack.permissions.superusers_only"
	DefaultInsertBefore    = "</body>"
)

// ErrMissingAttribute is matched by errors returned when a key is defined
// neither by the host nor by the defaults.
var ErrMissingAttribute = errors.New("missing attribute")

// MissingAttributeError reports the key that could not be resolved.
type MissingAttributeError struct {
	Name string
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("setting %q: %s", e.Name, ErrMissingAttribute)
}

func (e *MissingAttributeError) Is(target error) bool {
	return target == ErrMissingAttribute
}

// TypeError is returned by the string accessors when the resolved value is
// not a string.
type TypeError struct {
	Name  string
	Value any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("setting %q: expected string, got %T", e.Name, e.Value)
}

// Host is the application's configuration source. Lookup reports whether
// name is defined and, if so, its value.
type Host interface {
	Lookup(name string) (any, bool)
}

// Source tells where a resolved value came from.
type Source string

const (
	SourceHost    Source = "host"
	SourceDefault Source = "default"
)

// Proxy forwards lookups to a Host and falls back to its defaults.
// It is read-only after New and safe for concurrent use.
type Proxy struct {
	host     Host
	defaults map[string]any
	snapshot map[string]bool
}

// New builds a Proxy over host. LOGIN_REDIRECT_URL and LOGOUT_REDIRECT_URL
// are read from host once, here; later lookups of those keys still prefer
// the host and only fall back to the captured values on a host miss.
// A redirect key the host does not define at this point gets no default.
func New(host Host) *Proxy {
	p := &Proxy{
		host: host,
		defaults: map[string]any{
			KeyPermissionCheck: DefaultPermissionCheck,
			KeyInsertBefore:    DefaultInsertBefore,
		},
		snapshot: make(map[string]bool, 2),
	}

	for _, key := range []string{KeyLoginRedirectURL, KeyLogoutRedirectURL} {
		if v, ok := host.Lookup(key); ok {
			p.defaults[key] = v
			p.snapshot[key] = true
		}
	}

	return p
}

// Get returns the host's value for name, or the default when the host does
// not define it.
func (p *Proxy) Get(name string) (any, error) {
	v, _, err := p.Resolve(name)
	return v, err
}

// Resolve is Get that also reports which tier answered.
func (p *Proxy) Resolve(name string) (any, Source, error) {
	if v, ok := p.host.Lookup(name); ok {
		return v, SourceHost, nil
	}
	if v, ok := p.defaults[name]; ok {
		return v, SourceDefault, nil
	}
	return nil, "", &MissingAttributeError{Name: name}
}

// Snapshotted reports whether name was captured from the host in New.
func (p *Proxy) Snapshotted(name string) bool {
	return p.snapshot[name]
}

// String resolves name and requires a string value.
func (p *Proxy) String(name string) (string, error) {
	v, err := p.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", &TypeError{Name: name, Value: v}
	}
	return s, nil
}

// PermissionCheck returns the identifier of the active permission policy.
func (p *Proxy) PermissionCheck() (string, error) {
	return p.String(KeyPermissionCheck)
}

// InsertBefore returns the marker the notification banner is inserted before.
func (p *Proxy) InsertBefore() (string, error) {
	return p.String(KeyInsertBefore)
}

func (p *Proxy) LoginRedirectURL() (string, error) {
	return p.String(KeyLoginRedirectURL)
}

func (p *Proxy) LogoutRedirectURL() (string, error) {
	return p.String(KeyLogoutRedirectURL)
}
