package domain

import "unicode/utf8"

// maxEmojiRunes bounds composed sequences (flags, skin tones, ZWJ families)
const maxEmojiRunes = 10

// IsEmoji reports whether s is a single emoji, possibly composed of
// modifiers, variation selectors and zero-width joiners. The check is a
// block-range allowlist over the common emoji planes, not a full Unicode
// emoji-sequence parser. A second base rune is only allowed after a
// zero-width joiner (family sequences) or as the pair of a regional
// indicator (flags).
func IsEmoji(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > maxEmojiRunes {
		return false
	}

	hasBase := false
	afterJoiner := false
	afterRegional := false
	regionals := 0

	for _, r := range s {
		switch {
		case r == 0x200D: // zero-width joiner
			if !hasBase {
				return false
			}
			afterJoiner = true
			continue
		case emojiModifier(r):
			// variation selectors, keycap combiner, skin tones
		case regionalIndicator(r):
			regionals++
			if regionals > 2 {
				return false
			}
			if hasBase && !afterRegional && !afterJoiner {
				return false
			}
			hasBase = true
			afterRegional = true
			afterJoiner = false
			continue
		case emojiBase(r):
			if hasBase && !afterJoiner {
				return false
			}
			hasBase = true
			afterJoiner = false
			afterRegional = false
			continue
		case keycapBase(r):
			// '0'-'9', '#', '*' are valid only inside keycap sequences
		default:
			return false
		}
		afterJoiner = false
		afterRegional = false
	}

	if !hasBase {
		// keycap sequences like "1️⃣" carry no base-plane rune
		return hasKeycap(s)
	}
	return true
}

func regionalIndicator(r rune) bool {
	return r >= 0x1F1E6 && r <= 0x1F1FF
}

func emojiBase(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // emoticons, symbols, transport, supplemental
		return true
	case r >= 0x2300 && r <= 0x23FF: // misc technical (⌚ ⏰)
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols + dingbats (☀ ❤ ✅)
		return true
	case r >= 0x2B00 && r <= 0x2BFF: // arrows + stars (⭐ ⬆)
		return true
	case r == 0x2122 || r == 0x2139: // ™ ℹ
		return true
	default:
		return false
	}
}

func emojiModifier(r rune) bool {
	switch {
	case r == 0xFE0F || r == 0xFE0E: // variation selectors
		return true
	case r == 0x20E3: // combining keycap
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF: // skin tone modifiers
		return true
	default:
		return false
	}
}

func keycapBase(r rune) bool {
	return (r >= '0' && r <= '9') || r == '#' || r == '*'
}

func hasKeycap(s string) bool {
	for _, r := range s {
		if r == 0x20E3 {
			return true
		}
	}
	return false
}
