// Package levelwords hands out the non-secret codenames shown next to each
// level. Codenames are display-only flavor: they are never compared against
// the level password and must not equal it.
package levelwords

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"gandalf-gate/internal/levels"
)

// One hand-authored pool per level, 12 codenames each.
var pools = [levels.Count][]string{
	{"Lantern", "Willow", "Ember", "Quill", "Thistle", "Acorn", "Bramble", "Fiddle", "Clover", "Pebble", "Satchel", "Tinder"},
	{"Gallows", "Riddle", "Marrow", "Cinder", "Hollow", "Vesper", "Tallow", "Gloam", "Wicket", "Fable", "Shilling", "Creel"},
	{"Obsidian", "Falcon", "Rampart", "Sigil", "Torrent", "Bastion", "Warden", "Halberd", "Crucible", "Vanguard", "Parapet", "Standard"},
	{"Palimpsest", "Orrery", "Athenaeum", "Vellum", "Cipher", "Lexicon", "Codex", "Scriptorium", "Monograph", "Folio", "Gloss", "Rubric"},
	{"Nightjar", "Umber", "Sable", "Waning", "Eclipse", "Tenebris", "Dusk", "Mirk", "Shade", "Veil", "Nocturne", "Penumbra"},
	{"Serpentine", "Quicksilver", "Alembic", "Tincture", "Vitriol", "Calcine", "Athanor", "Mordant", "Crux", "Elixir", "Ferment", "Sublimate"},
	{"Paladin", "Reliquary", "Oriflamme", "Chantry", "Hallowed", "Censer", "Anchorite", "Basilica", "Litany", "Vestment", "Psalter", "Aureole"},
	{"Maiar", "Istari", "Glamdring", "Narya", "Eldritch", "Numinous", "Arcanum", "Apotheosis", "Demiurge", "Primordial", "Sempiternal", "Aetherium"},
}

func pool(levelID int) []string {
	if levelID < 1 {
		levelID = 1
	}
	if levelID > levels.Count {
		levelID = levels.Count
	}
	return pools[levelID-1]
}

// RollRandom picks a uniformly random codename from the level's pool.
func RollRandom(levelID int) string {
	p := pool(levelID)
	return p[rand.IntN(len(p))]
}

// RollAvoiding picks a random codename from the level's pool, skipping
// previous so a returning player never sees the word they just had. When the
// pool is trivial or previous is not in it, it behaves like RollRandom.
func RollAvoiding(levelID int, previous string) string {
	p := pool(levelID)
	if len(p) < 2 || !contains(p, previous) {
		return p[rand.IntN(len(p))]
	}
	for {
		w := p[rand.IntN(len(p))]
		if w != previous {
			return w
		}
	}
}

// Derive deterministically maps (sessionID, levelID) into the level's pool.
// Used as a read-only fallback when a session has no stored word for a level,
// so repeated state reads stay consistent without a write.
func Derive(sessionID string, levelID int) string {
	p := pool(levelID)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", sessionID, levelID)))
	idx := binary.BigEndian.Uint64(sum[:8]) % uint64(len(p))
	return p[idx]
}

func contains(p []string, w string) bool {
	for _, x := range p {
		if x == w {
			return true
		}
	}
	return false
}
