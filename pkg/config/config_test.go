package config

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/language"

	"github.com/siohaza/haxgo/internal/team"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `
[room]
name = "pub"
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if config.Room.MaxPlayers != DefaultMaxPlayers || config.Server.ENetPort != DefaultENetPort {
		t.Fatalf("defaults not applied: %+v", config)
	}
	if config.Game.ScoreLimit != 3 || config.Game.KickRate.Min != 2 {
		t.Fatalf("game defaults not applied: %+v", config.Game)
	}
	if config.LanguageTag() != language.English {
		t.Fatalf("expected english, got %s", config.LanguageTag())
	}
	st, err := config.LoadStadium()
	if err != nil || st.Name != DefaultStadium {
		t.Fatalf("expected the default stadium, got %v %v", st, err)
	}
}

func TestLoadConfigKeepsExplicitZero(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, `
[game]
score_limit = 0
time_limit = 7

[game.red]
angle = 90
text = 0xFFFFFF
inner = [0xE56E56, 0x000000]

[language]
default = "tr"
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if config.Game.ScoreLimit != 0 || config.Game.TimeLimit != 7 {
		t.Fatalf("unexpected limits %d %d", config.Game.ScoreLimit, config.Game.TimeLimit)
	}
	colors, ok := config.Game.Red.Colors(team.Red)
	if !ok || colors.Angle != 90 || len(colors.Inner) != 2 || colors.Inner[0] != 0xE56E56 {
		t.Fatalf("unexpected red colors %+v", colors)
	}
	if _, ok := config.Game.Blue.Colors(team.Blue); ok {
		t.Fatalf("blue should keep its default colors")
	}
	if config.LanguageTag() != language.Turkish {
		t.Fatalf("expected turkish, got %s", config.LanguageTag())
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"max players":  func(c *Config) { c.Room.MaxPlayers = 300 },
		"score limit":  func(c *Config) { c.Game.ScoreLimit = 15 },
		"kick rate":    func(c *Config) { c.Game.KickRate.Burst = -1 },
		"inner colors": func(c *Config) { c.Game.Blue.Inner = []int{1, 2, 3, 4} },
		"language":     func(c *Config) { c.Language.Default = "not a language!" },
		"flag":         func(c *Config) { c.Room.Flag = "toolong" },
		"master addr":  func(c *Config) { c.Server.MasterAddr = "no-port" },
	}
	for name, mutate := range cases {
		c := Default()
		mutate(c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: expected a validation error", name)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
}

func TestValueHidesPassword(t *testing.T) {
	c := Default()
	c.Room.Password = "hunter2"
	if v, ok := c.Value("room.has_password"); !ok || v != "true" {
		t.Fatalf("unexpected has_password %q %v", v, ok)
	}
	if _, ok := c.Value("room.password"); ok {
		t.Fatalf("password must not be readable")
	}
	if v, _ := c.Value("GAME.SCORE_LIMIT"); v != "3" {
		t.Fatalf("unexpected score limit %q", v)
	}
}

func TestLoadStadiumMissingFile(t *testing.T) {
	c := Default()
	c.Game.Stadium = filepath.Join(t.TempDir(), "missing.hbs")
	if _, err := c.LoadStadium(); err == nil {
		t.Fatalf("expected an error for a missing stadium file")
	}
}
