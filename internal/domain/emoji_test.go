package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsEmoji(t *testing.T) {
	valid := []string{
		"👍",        // simple emoticon
		"❤️",       // heart + variation selector
		"☀",        // misc symbol without selector
		"⭐",        // arrows/stars block
		"⏰",        // misc technical
		"👋🏽",       // skin tone modifier
		"🇰🇷",       // regional indicator pair
		"1️⃣",      // keycap sequence
		"#️⃣",      // keycap with hash base
		"👨‍👩‍👧",    // ZWJ family sequence
		"🧑🏾‍🚀",     // ZWJ with skin tone
	}
	for _, s := range valid {
		assert.True(t, IsEmoji(s), "expected %q to be a valid emoji", s)
	}

	invalid := []string{
		"",            // empty
		"a",           // plain letter
		"hello",       // word
		"1",           // bare keycap base without combiner
		"👍👍",          // two emojis, not one
		"👍 ",          // trailing space
		"<3",          // ascii art
		"🇰🇷🇯🇵",        // two flags
		"👍👍👍👍👍👍👍👍👍👍👍", // over the rune bound
	}
	for _, s := range invalid {
		assert.False(t, IsEmoji(s), "expected %q to be rejected", s)
	}
}
