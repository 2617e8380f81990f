package module

import "github.com/louisbranch/tabletop.chat/internal/session"

// Preset IDs shipped with the binary.
const (
	PresetSoloMystery    = "solo_mystery"
	PresetDragonCave     = "dragon_cave"
	PresetHauntedMansion = "haunted_mansion"
	PresetCyberpunkHeist = "cyberpunk_heist"
)

// DefaultModuleID is used when a session starts without naming one.
const DefaultModuleID = PresetSoloMystery

func presets() []WorldTemplate {
	return []WorldTemplate{
		{
			ID:          PresetSoloMystery,
			Name:        "The Vanishing Lodger",
			Description: "A single-investigator mystery in a rain-soaked port town.",
			Opening: "Rain hammers the tin roof of the Saltmarsh boarding house. " +
				"The landlady wrings her hands at your door: the lodger in room " +
				"three has not been seen for four days, and his rent was paid a " +
				"year in advance. The door is locked from the inside.",
			Location:  "Saltmarsh boarding house",
			TimeOfDay: "evening",
			Weather:   "rain",
			Tension:   3,
			Lore: []string{
				"The lodger signed the register as 'M. Harlow' in a careful, practiced hand.",
				"Room three's window faces the harbor and has been painted shut for years.",
				"The landlady heard dragging sounds two nights ago but told no one.",
			},
			NPCs: []session.NPC{
				{Name: "Widow Crane", Status: "anxious", Location: "front parlor", Attitude: "cooperative",
					Description: "The landlady. Knows more about her lodgers than she admits."},
				{Name: "Constable Pell", Status: "on duty", Location: "harbor office", Attitude: "dismissive",
					Description: "Considers the disappearance a private matter, for now."},
			},
			Hooks: []string{
				"Why was a year's rent paid in advance?",
				"What made the dragging sounds?",
			},
		},
		{
			ID:          PresetDragonCave,
			Name:        "Embers of Korrath",
			Description: "A classic delve into a dragon's mountain lair.",
			Opening: "The village of Thornfield burned in a single night. Its " +
				"survivors pooled what little they had to hire you. Above the " +
				"treeline, smoke still curls from a cleft in Mount Korrath, " +
				"where the old maps mark only one word: wyrm.",
			Location:  "foot of Mount Korrath",
			TimeOfDay: "dawn",
			Weather:   "ash-gray overcast",
			Tension:   4,
			Lore: []string{
				"The dragon Korrath has slept for two centuries. Something woke it.",
				"A dwarven mine once cut into the mountain's western face.",
				"Thornfield's shrine kept a silver bell said to calm great beasts.",
			},
			NPCs: []session.NPC{
				{Name: "Maro", Status: "wounded", Location: "refugee camp", Attitude: "desperate",
					Description: "Thornfield's blacksmith. Saw the dragon take his daughter alive."},
			},
			Hooks: []string{
				"Find the old mine entrance.",
				"Recover the silver bell from the ruined shrine.",
			},
		},
		{
			ID:          PresetHauntedMansion,
			Name:        "Gallows Hill House",
			Description: "Survival horror in a manor that does not want to be left.",
			Opening: "The carriage driver refuses to pass the gate. Gallows Hill " +
				"House waits at the end of the drive, every window dark except " +
				"one on the third floor, where a candle burns in a room that " +
				"has been sealed since the hanging judge died.",
			Location:  "Gallows Hill House gatehouse",
			TimeOfDay: "midnight",
			Weather:   "fog",
			Tension:   5,
			Lore: []string{
				"Judge Ambrose Vane hanged eleven people from the oak in the east garden.",
				"The house has had nine owners in forty years. None stayed a full season.",
				"Servants' records mention a door in the cellar that was bricked over twice.",
			},
			NPCs: []session.NPC{
				{Name: "The Caretaker", Status: "watching", Location: "grounds", Attitude: "unreadable",
					Description: "Tends the garden at night. No one remembers hiring him."},
			},
			Hooks: []string{
				"Who lit the candle in the sealed room?",
				"What lies behind the bricked cellar door?",
			},
		},
		{
			ID:          PresetCyberpunkHeist,
			Name:        "Glass Orchid Run",
			Description: "A crew-versus-corporation heist in the arcology stacks.",
			Opening: "The fixer's message is six words long: 'Orchid vault. Floor " +
				"ninety. Tonight.' Senhara Biotech's arcology towers over the " +
				"stacks, and somewhere on floor ninety sits a prototype neural " +
				"lace worth more than the district you grew up in.",
			Location:  "noodle bar under the Senhara arcology",
			TimeOfDay: "night",
			Weather:   "acid drizzle",
			Tension:   4,
			Lore: []string{
				"Senhara rotates vault access codes every six hours.",
				"Floor ninety's service elevator still runs on the old municipal grid.",
				"The fixer, Lotte, has never burned a crew. There is a first time for everything.",
			},
			NPCs: []session.NPC{
				{Name: "Lotte", Status: "unreachable", Location: "unknown", Attitude: "transactional",
					Description: "The fixer. Pays on delivery, asks no questions, answers fewer."},
				{Name: "Vex", Status: "jacked in", Location: "noodle bar back room", Attitude: "friendly",
					Description: "Freelance intrusion specialist, available for a cut."},
			},
			Hooks: []string{
				"Find a way onto the municipal grid.",
				"Learn why Lotte went quiet after sending the job.",
			},
		},
	}
}
