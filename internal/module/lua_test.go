package module

import (
	"os"
	"path/filepath"
	"testing"
)

const frostKeepScript = `
return {
    id = "frost_keep",
    name = "The Frost Keep",
    description = "A siege survival module.",
    opening = "Snow buries the pass behind you as the keep's gate groans open.",
    location = "Frost Keep gatehouse",
    time_of_day = "dusk",
    weather = "blizzard",
    tension = 4,
    lore = {
        "The keep has not been resupplied in a month.",
        "Wolves in the pass move in unnatural silence.",
    },
    npcs = {
        { name = "Edda", status = "commanding", location = "gatehouse", attitude = "wary",
          description = "Castellan of the keep." },
    },
    hooks = { "Why did the last courier never arrive?" },
}
`

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestLoadLuaFile(t *testing.T) {
	path := writeScript(t, t.TempDir(), "frost_keep.lua", frostKeepScript)

	template, err := LoadLuaFile(path)
	if err != nil {
		t.Fatalf("LoadLuaFile: %v", err)
	}
	if template.ID != "frost_keep" || template.Name != "The Frost Keep" {
		t.Fatalf("template = %+v", template)
	}
	if template.Tension != 4 {
		t.Fatalf("Tension = %d, want 4", template.Tension)
	}
	if len(template.Lore) != 2 {
		t.Fatalf("len(Lore) = %d, want 2", len(template.Lore))
	}
	if len(template.NPCs) != 1 || template.NPCs[0].Name != "Edda" {
		t.Fatalf("NPCs = %+v", template.NPCs)
	}
	if len(template.Hooks) != 1 {
		t.Fatalf("len(Hooks) = %d, want 1", len(template.Hooks))
	}
}

func TestLoadLuaFileDefaultsIDFromFilename(t *testing.T) {
	script := `
return {
    name = "Nameless Vale",
    opening = "The vale has no name on any map.",
}
`
	path := writeScript(t, t.TempDir(), "nameless_vale.lua", script)

	template, err := LoadLuaFile(path)
	if err != nil {
		t.Fatalf("LoadLuaFile: %v", err)
	}
	if template.ID != "nameless_vale" {
		t.Fatalf("ID = %q, want nameless_vale", template.ID)
	}
}

func TestLoadLuaFileRejectsNonTable(t *testing.T) {
	path := writeScript(t, t.TempDir(), "bad.lua", `return "nope"`)
	if _, err := LoadLuaFile(path); err == nil {
		t.Fatal("non-table return accepted")
	}
}

func TestLoadLuaDir(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "frost_keep.lua", frostKeepScript)
	writeScript(t, dir, "notes.txt", "not a module")

	catalog := NewCatalog()
	loaded, err := catalog.LoadLuaDir(dir)
	if err != nil {
		t.Fatalf("LoadLuaDir: %v", err)
	}
	if loaded != 1 {
		t.Fatalf("loaded = %d, want 1", loaded)
	}
	if _, err := catalog.Get("frost_keep"); err != nil {
		t.Fatalf("Get(frost_keep): %v", err)
	}
}

func TestLoadLuaDirMissingIsEmpty(t *testing.T) {
	catalog := NewCatalog()
	loaded, err := catalog.LoadLuaDir(filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("LoadLuaDir: %v", err)
	}
	if loaded != 0 {
		t.Fatalf("loaded = %d, want 0", loaded)
	}
}
