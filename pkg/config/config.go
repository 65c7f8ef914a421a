package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/language"

	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
	"github.com/siohaza/haxgo/internal/validation"
)

const (
	DefaultENetPort   = 27015
	DefaultWSAddr     = ":8080"
	DefaultPingAddr   = ":27016"
	DefaultMaxPlayers = 12
	DefaultStadium    = "Classic"
	DefaultLanguage   = "en"

	// MaxPlayers is bounded by the one byte player ids use on the wire.
	MaxPlayers = 255
)

type Config struct {
	Room     RoomConfig     `toml:"room"`
	Game     GameConfig     `toml:"game"`
	Server   ServerConfig   `toml:"server"`
	Scripts  ScriptsConfig  `toml:"scripts"`
	Language LanguageConfig `toml:"language"`
}

type RoomConfig struct {
	Name       string `toml:"name"`
	Password   string `toml:"password"`
	MaxPlayers int    `toml:"max_players"`
	Flag       string `toml:"flag"`
	Public     bool   `toml:"public"`

	// NoPlayer keeps the host out of the player list.
	NoPlayer bool `toml:"no_player"`

	WelcomeMessages []string `toml:"welcome_messages"`
}

type GameConfig struct {
	// Stadium is a default stadium name or a path to an .hbs file.
	Stadium    string `toml:"stadium"`
	ScoreLimit int    `toml:"score_limit"`
	TimeLimit  int    `toml:"time_limit"`
	TeamsLock  bool   `toml:"teams_lock"`

	KickRate KickRateConfig `toml:"kick_rate"`
	Red      TeamColors     `toml:"red"`
	Blue     TeamColors     `toml:"blue"`
}

type KickRateConfig struct {
	Min   int `toml:"min"`
	Rate  int `toml:"rate"`
	Burst int `toml:"burst"`
}

type TeamColors struct {
	Angle int   `toml:"angle"`
	Text  int64 `toml:"text"`
	Inner []int `toml:"inner"`
}

// ServerConfig lists the listeners. An empty address or a zero port set
// after loading disables that listener.
type ServerConfig struct {
	ENetPort  int      `toml:"enet_port"`
	WSAddr    string   `toml:"ws_addr"`
	WSOrigins []string `toml:"ws_origins"`
	PingAddr  string   `toml:"ping_addr"`

	// MasterAddr is the host:port of the list server public rooms are
	// announced to.
	MasterAddr string `toml:"master_addr"`

	BansFile  string `toml:"bans_file"`
	ReplayDir string `toml:"replay_dir"`

	// logging configuration
	LogToFile bool `toml:"log_to_file"`
}

type ScriptsConfig struct {
	Room        string `toml:"room"`
	CommandsDir string `toml:"commands_dir"`
}

type LanguageConfig struct {
	Default string `toml:"default"`
}

// Default returns the configuration used when no file is given. A file is
// decoded on top of it, so limits a file sets to 0 stay 0.
func Default() *Config {
	config := &Config{
		Game: GameConfig{
			ScoreLimit: 3,
			TimeLimit:  3,
			KickRate:   KickRateConfig{Min: 2},
		},
	}
	config.applyDefaults()
	return config
}

func LoadConfig(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Room.Name == "" {
		c.Room.Name = "haxgo room"
	}
	if c.Room.MaxPlayers == 0 {
		c.Room.MaxPlayers = DefaultMaxPlayers
	}

	if c.Game.Stadium == "" {
		c.Game.Stadium = DefaultStadium
	}

	if c.Server.ENetPort == 0 {
		c.Server.ENetPort = DefaultENetPort
	}
	if c.Server.WSAddr == "" {
		c.Server.WSAddr = DefaultWSAddr
	}
	if c.Server.PingAddr == "" {
		c.Server.PingAddr = DefaultPingAddr
	}
	if c.Server.BansFile == "" {
		c.Server.BansFile = "bans.json"
	}

	if c.Language.Default == "" {
		c.Language.Default = DefaultLanguage
	}
}

func (c *Config) Validate() error {
	if c.Room.Name == "" {
		return fmt.Errorf("room name cannot be empty")
	}
	if c.Room.MaxPlayers <= 0 || c.Room.MaxPlayers > MaxPlayers {
		return fmt.Errorf("max_players must be between 1 and %d", MaxPlayers)
	}
	if c.Room.Flag != "" {
		if _, err := validation.PlayerFlag(c.Room.Flag); err != nil {
			return fmt.Errorf("room flag: %w", err)
		}
	}

	if c.Game.ScoreLimit < 0 || c.Game.ScoreLimit > validation.MaxScoreLimit {
		return fmt.Errorf("score_limit must be between 0 and %d", validation.MaxScoreLimit)
	}
	if c.Game.TimeLimit < 0 || c.Game.TimeLimit > validation.MaxTimeLimit {
		return fmt.Errorf("time_limit must be between 0 and %d", validation.MaxTimeLimit)
	}
	k := c.Game.KickRate
	if k.Min < 0 || k.Rate < 0 || k.Burst < 0 {
		return fmt.Errorf("kick_rate values cannot be negative")
	}
	for name, colors := range map[string]TeamColors{"red": c.Game.Red, "blue": c.Game.Blue} {
		if len(colors.Inner) > team.MaxInnerColors {
			return fmt.Errorf("%s team has more than %d inner colors", name, team.MaxInnerColors)
		}
	}

	if c.Server.ENetPort < 0 || c.Server.ENetPort > 65535 {
		return fmt.Errorf("invalid enet_port: %d", c.Server.ENetPort)
	}
	if c.Server.MasterAddr != "" {
		if _, _, err := net.SplitHostPort(c.Server.MasterAddr); err != nil {
			return fmt.Errorf("invalid master_addr %q: %w", c.Server.MasterAddr, err)
		}
	}

	if _, err := language.Parse(c.Language.Default); err != nil {
		return fmt.Errorf("invalid default language %q: %w", c.Language.Default, err)
	}

	return nil
}

// LanguageTag is the parsed default language. Validate has checked it.
func (c *Config) LanguageTag() language.Tag {
	tag, err := language.Parse(c.Language.Default)
	if err != nil {
		return language.English
	}
	return tag
}

// LoadStadium resolves Game.Stadium: a default stadium by name, else an
// .hbs file.
func (c *Config) LoadStadium() (*stadium.Stadium, error) {
	if st, ok := stadium.DefaultByName(c.Game.Stadium); ok {
		return st, nil
	}
	data, err := os.ReadFile(c.Game.Stadium)
	if err != nil {
		return nil, fmt.Errorf("failed to read stadium %q: %w", c.Game.Stadium, err)
	}
	st, err := stadium.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stadium %q: %w", c.Game.Stadium, err)
	}
	return st, nil
}

// Colors converts the section to team colours. A section with no inner
// colours keeps the team default.
func (t TeamColors) Colors(id team.ID) (team.Colors, bool) {
	if len(t.Inner) == 0 {
		return team.DefaultColors(id), false
	}
	colors := team.Colors{Angle: t.Angle, Text: physics.Color(t.Text)}
	for _, inner := range t.Inner {
		colors.Inner = append(colors.Inner, physics.Color(inner))
	}
	return colors, true
}

// Value looks up a setting by its dotted name, for room scripts. The
// password is never exposed.
func (c *Config) Value(key string) (string, bool) {
	switch strings.ToLower(key) {
	case "room.name":
		return c.Room.Name, true
	case "room.max_players":
		return strconv.Itoa(c.Room.MaxPlayers), true
	case "room.flag":
		return c.Room.Flag, true
	case "room.public":
		return strconv.FormatBool(c.Room.Public), true
	case "room.has_password":
		return strconv.FormatBool(c.Room.Password != ""), true
	case "game.stadium":
		return c.Game.Stadium, true
	case "game.score_limit":
		return strconv.Itoa(c.Game.ScoreLimit), true
	case "game.time_limit":
		return strconv.Itoa(c.Game.TimeLimit), true
	case "game.teams_lock":
		return strconv.FormatBool(c.Game.TeamsLock), true
	case "language.default":
		return c.Language.Default, true
	}
	return "", false
}
