package emoji_test

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irydacea/tessa/internal/emoji"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    emoji.Ref
		wantErr bool
	}{
		{
			name:  "unicode literal",
			input: "👍",
			want:  emoji.Ref{Name: "👍"},
		},
		{
			name:  "unicode with skin tone",
			input: "👍🏿",
			want:  emoji.Ref{Name: "👍🏿"},
		},
		{
			name:  "bare custom",
			input: "blobcat:123456789012345678",
			want:  emoji.Ref{Name: "blobcat", ID: snowflake.ID(123456789012345678)},
		},
		{
			name:  "bare animated custom",
			input: "a:party:123456789012345678",
			want:  emoji.Ref{Name: "party", ID: snowflake.ID(123456789012345678), Animated: true},
		},
		{
			name:  "custom mention",
			input: "<:blobcat:123456789012345678>",
			want:  emoji.Ref{Name: "blobcat", ID: snowflake.ID(123456789012345678)},
		},
		{
			name:  "animated mention",
			input: "<a:party:123456789012345678>",
			want:  emoji.Ref{Name: "party", ID: snowflake.ID(123456789012345678), Animated: true},
		},
		{
			name:  "surrounding whitespace",
			input: "  🎉 ",
			want:  emoji.Ref{Name: "🎉"},
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
		{
			name:    "shortcode",
			input:   ":wave:",
			wantErr: true,
		},
		{
			name:    "custom with zero id",
			input:   "blobcat:0",
			wantErr: true,
		},
		{
			name:    "custom with non numeric id",
			input:   "blobcat:abc",
			wantErr: true,
		},
		{
			name:    "mention missing name",
			input:   "<::123456789012345678>",
			wantErr: true,
		},
		{
			name:    "too many separators",
			input:   "x:y:z:1",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := emoji.Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRefForms(t *testing.T) {
	t.Parallel()

	unicode := emoji.Ref{Name: "👍"}
	assert.Equal(t, "👍", unicode.APIName())
	assert.Equal(t, "👍", unicode.String())
	assert.False(t, unicode.IsCustom())

	custom := emoji.Ref{Name: "blobcat", ID: snowflake.ID(42)}
	assert.Equal(t, "blobcat:42", custom.APIName())
	assert.Equal(t, "<:blobcat:42>", custom.String())
	assert.True(t, custom.IsCustom())

	animated := emoji.Ref{Name: "party", ID: snowflake.ID(42), Animated: true}
	assert.Equal(t, "<a:party:42>", animated.String())
}

func TestFromComponent(t *testing.T) {
	t.Parallel()

	got := emoji.FromComponent(&discordgo.Emoji{Name: "👍"})
	assert.Equal(t, emoji.Ref{Name: "👍"}, got)

	got = emoji.FromComponent(&discordgo.Emoji{Name: "party", ID: "42", Animated: true})
	assert.Equal(t, emoji.Ref{Name: "party", ID: snowflake.ID(42), Animated: true}, got)

	assert.True(t, emoji.FromComponent(nil).IsZero())
}

func TestNeutralSkinTone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "no modifier", input: "👍", want: "👍"},
		{name: "trailing modifier", input: "👍🏿", want: "👍"},
		{name: "each modifier", input: "👋🏻👋🏼👋🏽👋🏾👋🏿", want: "👋👋👋👋👋"},
		{name: "inside zwj sequence", input: "🧑🏽‍🚒", want: "🧑‍🚒"},
		{name: "plain text untouched", input: "ok", want: "ok"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := emoji.NeutralSkinTone(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, emoji.NeutralSkinTone(got))
		})
	}
}

func TestNeutral(t *testing.T) {
	t.Parallel()

	toned := emoji.Ref{Name: "👍🏽"}
	assert.Equal(t, emoji.Ref{Name: "👍"}, toned.Neutral())

	custom := emoji.Ref{Name: "thumbs🏽", ID: snowflake.ID(42)}
	assert.Equal(t, custom, custom.Neutral())
}
