package module

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Shopify/go-lua"
	"github.com/louisbranch/tabletop.chat/internal/session"
)

// LoadLuaFile evaluates a Lua script that returns a module table and
// converts it into a WorldTemplate.
//
// The script's return value uses string keys matching the template
// fields, for example:
//
//	return {
//	    id = "frost_keep",
//	    name = "The Frost Keep",
//	    opening = "Snow buries the pass behind you...",
//	    lore = { "...", "..." },
//	    npcs = { { name = "Edda", attitude = "wary" } },
//	}
func LoadLuaFile(path string) (WorldTemplate, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return WorldTemplate{}, fmt.Errorf("load module script %s: %w", path, err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return WorldTemplate{}, fmt.Errorf("run module script %s: %w", path, err)
	}
	if state.TypeOf(-1) != lua.TypeTable {
		state.Pop(1)
		return WorldTemplate{}, fmt.Errorf("module script %s must return a table", path)
	}

	values := tableToMap(state, -1)
	state.Pop(1)

	template := templateFromMap(values)
	if strings.TrimSpace(template.ID) == "" {
		template.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := template.Validate(); err != nil {
		return WorldTemplate{}, fmt.Errorf("module script %s: %w", path, err)
	}
	return template, nil
}

// LoadLuaDir registers every .lua script in dir into the catalog. A
// missing directory is not an error so the custom-module path can be
// configured before any scripts exist.
func (c *Catalog) LoadLuaDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("read module dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".lua") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	loaded := 0
	for _, name := range names {
		template, err := LoadLuaFile(filepath.Join(dir, name))
		if err != nil {
			return loaded, err
		}
		if err := c.Register(template); err != nil {
			return loaded, err
		}
		loaded++
	}
	return loaded, nil
}

func templateFromMap(values map[string]any) WorldTemplate {
	template := WorldTemplate{
		ID:          stringField(values, "id"),
		Name:        stringField(values, "name"),
		Description: stringField(values, "description"),
		Opening:     stringField(values, "opening"),
		Location:    stringField(values, "location"),
		TimeOfDay:   stringField(values, "time_of_day"),
		Weather:     stringField(values, "weather"),
		Tension:     intField(values, "tension"),
		Lore:        stringSliceField(values, "lore"),
		Hooks:       stringSliceField(values, "hooks"),
	}
	if raw, ok := values["npcs"].([]any); ok {
		for _, entry := range raw {
			fields, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			template.NPCs = append(template.NPCs, session.NPC{
				Name:        stringField(fields, "name"),
				Status:      stringField(fields, "status"),
				Location:    stringField(fields, "location"),
				Attitude:    stringField(fields, "attitude"),
				Description: stringField(fields, "description"),
			})
		}
	}
	return template
}

func stringField(values map[string]any, key string) string {
	value, _ := values[key].(string)
	return value
}

func intField(values map[string]any, key string) int {
	switch value := values[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	default:
		return 0
	}
}

func stringSliceField(values map[string]any, key string) []string {
	raw, ok := values[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, entry := range raw {
		if value, ok := entry.(string); ok {
			out = append(out, value)
		}
	}
	return out
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return value
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo decodes a table as a slice when its keys form the dense
// range 1..n, and as a map otherwise.
func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	state.PushNil()
	for state.Next(index) {
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				if idx > maxIndex {
					maxIndex = idx
				}
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}

	return tableToMap(state, index)
}
