package client

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/trezcool/maktab/core/chat"
)

const (
	keyLanguage = "app_lang"
	keyRole     = "user_role"
	keyTheme    = "theme"

	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Session is the client state kept between runs: UI language, theme and the chosen role.
type Session struct {
	path string
	v    *viper.Viper
}

// DefaultSessionPath is ~/.config/maktab/session.json (or the OS equivalent).
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "maktab", "session.json"), nil
}

// OpenSession loads the session stored at path. A missing file yields the defaults.
func OpenSession(path string) (*Session, error) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return nil, errors.Errorf("session file must be a .json file, got %q", path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault(keyLanguage, string(chat.LangTajik))
	v.SetDefault(keyTheme, ThemeLight)
	v.SetDefault(keyRole, "")

	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "reading session %s", path)
	}
	return &Session{path: path, v: v}, nil
}

// Close persists the session.
func (s *Session) Close() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "creating session dir")
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return errors.Wrapf(err, "writing session %s", s.path)
	}
	return nil
}

func (s *Session) Language() chat.Language {
	return chat.ParseLanguage(s.v.GetString(keyLanguage))
}

func (s *Session) SetLanguage(lang chat.Language) {
	s.v.Set(keyLanguage, string(lang))
}

func (s *Session) Theme() string {
	if s.v.GetString(keyTheme) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

func (s *Session) ToggleTheme() string {
	theme := ThemeDark
	if s.Theme() == ThemeDark {
		theme = ThemeLight
	}
	s.v.Set(keyTheme, theme)
	return theme
}

// LoggedIn reports whether a role was chosen.
func (s *Session) LoggedIn() bool {
	return s.v.GetString(keyRole) != ""
}

// Role defaults to student.
func (s *Session) Role() chat.Role {
	return chat.ParseRole(s.v.GetString(keyRole))
}

func (s *Session) Login(role chat.Role) {
	s.v.Set(keyRole, string(role))
}

func (s *Session) Logout() {
	s.v.Set(keyRole, "")
}
