package emoji

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
)

// Ref identifies one reaction emoji. Unicode emoji carry only Name (the
// literal codepoints); custom guild emoji carry Name plus a nonzero ID.
type Ref struct {
	Name     string
	ID       snowflake.ID
	Animated bool
}

// Parse accepts the emoji spellings allowed in configuration: a unicode
// literal, a bare custom form "name:id" or "a:name:id", or a full mention
// "<:name:id>" / "<a:name:id>". Shortcodes like ":wave:" are rejected
// since there is no catalog to resolve them against.
func Parse(s string) (Ref, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Ref{}, fmt.Errorf("empty emoji")
	}

	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		ref, err := parseCustom(s[1 : len(s)-1])
		if err != nil {
			return Ref{}, fmt.Errorf("malformed emoji mention %q", s)
		}
		return ref, nil
	}

	if strings.Contains(s, ":") {
		if strings.HasPrefix(s, ":") && strings.HasSuffix(s, ":") {
			return Ref{}, fmt.Errorf("shortcode %q cannot be resolved, use the literal or name:id form", s)
		}
		return parseCustom(s)
	}

	return Ref{Name: s}, nil
}

func parseCustom(s string) (Ref, error) {
	parts := strings.Split(s, ":")
	animated := false
	if len(parts) == 3 && parts[0] == "a" {
		animated = true
		parts = parts[1:]
	}
	if len(parts) != 2 || parts[0] == "" {
		return Ref{}, fmt.Errorf("malformed custom emoji %q", s)
	}

	id, err := snowflake.Parse(parts[1])
	if err != nil || id == 0 {
		return Ref{}, fmt.Errorf("malformed custom emoji id %q", parts[1])
	}
	return Ref{Name: parts[0], ID: id, Animated: animated}, nil
}

// FromComponent adapts an emoji attached to a gateway event or message.
func FromComponent(e *discordgo.Emoji) Ref {
	if e == nil {
		return Ref{}
	}
	if e.ID == "" {
		return Ref{Name: e.Name}
	}
	id, err := snowflake.Parse(e.ID)
	if err != nil {
		return Ref{Name: e.Name, Animated: e.Animated}
	}
	return Ref{Name: e.Name, ID: id, Animated: e.Animated}
}

func (r Ref) IsCustom() bool {
	return r.ID != 0
}

func (r Ref) IsZero() bool {
	return r.Name == "" && r.ID == 0
}

// APIName is the form the reaction REST endpoints expect: "name:id" for
// custom emoji, the literal for unicode.
func (r Ref) APIName() string {
	if r.IsCustom() {
		return r.Name + ":" + r.ID.String()
	}
	return r.Name
}

// String is the display form used in logs and audit entries. Custom emoji
// render as a mention so chat clients show the actual image.
func (r Ref) String() string {
	if !r.IsCustom() {
		return r.Name
	}
	if r.Animated {
		return "<a:" + r.Name + ":" + r.ID.String() + ">"
	}
	return "<:" + r.Name + ":" + r.ID.String() + ">"
}

// Neutral returns the reference with skin tone modifiers stripped from the
// unicode literal. Custom emoji are returned unchanged.
func (r Ref) Neutral() Ref {
	if r.IsCustom() {
		return r
	}
	r.Name = NeutralSkinTone(r.Name)
	return r
}

// NeutralSkinTone removes the five Fitzpatrick modifiers (U+1F3FB through
// U+1F3FF) wherever they occur, including inside ZWJ sequences.
func NeutralSkinTone(s string) string {
	return strings.Map(func(c rune) rune {
		if c >= '\U0001F3FB' && c <= '\U0001F3FF' {
			return -1
		}
		return c
	}, s)
}
