package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/tailscale/hujson"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const DefaultPath = "tessa.jsonc"

var (
	ErrNoToken  = errors.New("bot token is required")
	ErrNoGuilds = errors.New("at least one guild must be configured")
)

type Config struct {
	Token                string                    `json:"token"`
	IgnoreSkinTone       bool                      `json:"ignore_skintone"`
	InheritGuildDefaults *bool                     `json:"inherit_guild_defaults"`
	Presets              map[string]Preset         `json:"presets"`
	Guilds               map[Snowflake]GuildConfig `json:"guilds"`
}

type Preset struct {
	Reactions        []string `json:"reactions"`
	BannedReactions  []string `json:"banned_reactions"`
	ShuffleReactions bool     `json:"shuffle_reactions"`
}

// GuildConfig mixes fixed keys with channel entries keyed by snowflake, so
// it cannot be decoded with struct tags alone.
type GuildConfig struct {
	Enabled  *bool
	EventLog Snowflake
	Default  ChannelConfig
	Channels map[Snowflake]ChannelConfig
	Skipped  []string
}

// ChannelConfig uses pointer fields so an absent key can fall back to the
// guild default entry.
type ChannelConfig struct {
	Preset            *string          `json:"preset"`
	AutoReactions     *ReactionSetting `json:"auto_reactions"`
	ModerateReactions *ReactionSetting `json:"moderate_reactions"`
	ShuffleReactions  *bool            `json:"shuffle_reactions"`
}

// ReactionSetting decodes the two action keys, which take either form:
// a bool switching the named preset's list on or off, or an inline emoji
// list replacing it.
type ReactionSetting struct {
	Enabled bool
	List    []string
}

func (r *ReactionSetting) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &r.List); err != nil {
			return err
		}
		if r.List == nil {
			r.List = []string{}
		}
		r.Enabled = true
		return nil
	}
	return json.Unmarshal(data, &r.Enabled)
}

// Snowflake decodes from either a JSON string or a bare number; hand written
// configs use both spellings.
type Snowflake snowflake.ID

func (s *Snowflake) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		*s = 0
		return nil
	}
	id, err := snowflake.Parse(strings.Trim(raw, `"`))
	if err != nil {
		return fmt.Errorf("invalid snowflake %s: %w", raw, err)
	}
	*s = Snowflake(id)
	return nil
}

func (s Snowflake) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s Snowflake) ID() snowflake.ID {
	return snowflake.ID(s)
}

func (s Snowflake) String() string {
	return snowflake.ID(s).String()
}

func (g *GuildConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	for key, value := range raw {
		switch key {
		case "enabled":
			if err := json.Unmarshal(value, &g.Enabled); err != nil {
				return fmt.Errorf("enabled: %w", err)
			}
		case "event_log":
			if err := json.Unmarshal(value, &g.EventLog); err != nil {
				return fmt.Errorf("event_log: %w", err)
			}
		case "preset":
			if err := json.Unmarshal(value, &g.Default.Preset); err != nil {
				return fmt.Errorf("preset: %w", err)
			}
		case "auto_reactions":
			if err := json.Unmarshal(value, &g.Default.AutoReactions); err != nil {
				return fmt.Errorf("auto_reactions: %w", err)
			}
		case "moderate_reactions":
			if err := json.Unmarshal(value, &g.Default.ModerateReactions); err != nil {
				return fmt.Errorf("moderate_reactions: %w", err)
			}
		case "shuffle_reactions":
			if err := json.Unmarshal(value, &g.Default.ShuffleReactions); err != nil {
				return fmt.Errorf("shuffle_reactions: %w", err)
			}
		default:
			id, err := snowflake.Parse(key)
			if err != nil {
				g.Skipped = append(g.Skipped, key)
				continue
			}
			var channel ChannelConfig
			if err := json.Unmarshal(value, &channel); err != nil {
				return fmt.Errorf("channel %s: %w", key, err)
			}
			if g.Channels == nil {
				g.Channels = make(map[Snowflake]ChannelConfig)
			}
			g.Channels[Snowflake(id)] = channel
		}
	}
	return nil
}

func (g GuildConfig) IsEnabled() bool {
	return g.Enabled == nil || *g.Enabled
}

func (c *Config) SkinToneInsensitive() bool {
	return c.IgnoreSkinTone
}

func (c *Config) InheritDefaults() bool {
	return c.InheritGuildDefaults == nil || *c.InheritGuildDefaults
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return nil, fmt.Errorf("not valid JSONC: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, err
	}

	if cfg.Token == "" {
		return nil, ErrNoToken
	}
	if len(cfg.Guilds) == 0 {
		return nil, ErrNoGuilds
	}
	for guildID, guild := range cfg.Guilds {
		if guildID == 0 {
			return nil, errors.New("guild id 0 is not a valid snowflake")
		}
		for channelID := range guild.Channels {
			if channelID == 0 {
				return nil, fmt.Errorf("channel id 0 in guild %s is not a valid snowflake", guildID)
			}
		}
	}
	return &cfg, nil
}

func BuildLogger(debug, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zapcore.InfoLevel
	if debug || verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}
