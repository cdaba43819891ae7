package style

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetTheme(t *testing.T) {
	t.Cleanup(func() { SetTheme("dark") })

	assert.True(t, SetTheme("catppuccin"))
	assert.Equal(t, "catppuccin", CurrentThemeName)
	assert.Equal(t, catppuccinTheme.Primary, Primary)
	assert.Equal(t, catppuccinTheme.Error, ErrorText.GetForeground())

	assert.False(t, SetTheme("neon"))
	assert.Equal(t, "catppuccin", CurrentThemeName)
}

func TestThemeNamesMatchThemes(t *testing.T) {
	assert.Len(t, ThemeNames, len(Themes))
	for _, name := range ThemeNames {
		assert.Contains(t, Themes, name)
	}
}
