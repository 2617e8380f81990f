package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	errs "github.com/louisbranch/tabletop.chat/internal/errors"
	"github.com/louisbranch/tabletop.chat/internal/session"
)

// Tool names.
const (
	toolRollDice     = "roll_dice"
	toolPlayerStatus = "player_status"
	toolWorldState   = "world_state"
	toolSearchLore   = "search_lore"
	toolModifyPlayer = "modify_player"
)

func (s *Server) registerTools() {
	s.server.AddTool(mcp.NewTool(toolRollDice,
		mcp.WithDescription("Roll dice for a player using standard notation, e.g. 2d6+3. Defaults to d20."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Chat group running the game")),
		mcp.WithString("participant_id", mcp.Required(), mcp.Description("Participant rolling the dice")),
		mcp.WithString("expression", mcp.Description("Dice expression, defaults to d20")),
	), s.handleRollDice)

	s.server.AddTool(mcp.NewTool(toolPlayerStatus,
		mcp.WithDescription("Show a player's character sheet: attributes, HP/MP, inventory, status effects."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Chat group running the game")),
		mcp.WithString("participant_id", mcp.Required(), mcp.Description("Participant to look up")),
	), s.handlePlayerStatus)

	s.server.AddTool(mcp.NewTool(toolWorldState,
		mcp.WithDescription("Show the current world state, story tension, and party for a group's game."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Chat group running the game")),
	), s.handleWorldState)

	s.server.AddTool(mcp.NewTool(toolSearchLore,
		mcp.WithDescription("Search the session's lore and discovered clues."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Chat group running the game")),
		mcp.WithString("query", mcp.Description("Substring to match; empty returns everything")),
	), s.handleSearchLore)

	s.server.AddTool(mcp.NewTool(toolModifyPlayer,
		mcp.WithDescription("Apply game effects to a player: damage or healing, mana, items, status effects."),
		mcp.WithString("group_id", mcp.Required(), mcp.Description("Chat group running the game")),
		mcp.WithString("participant_id", mcp.Required(), mcp.Description("Participant to modify")),
		mcp.WithNumber("hp_delta", mcp.Description("Hit point change, negative for damage")),
		mcp.WithNumber("mp_delta", mcp.Description("Mana point change, negative for spending")),
		mcp.WithString("add_item", mcp.Description("Item name to add to the inventory")),
		mcp.WithString("remove_item", mcp.Description("Item name to remove from the inventory")),
		mcp.WithNumber("quantity", mcp.Description("Item quantity for add_item or remove_item, defaults to 1")),
		mcp.WithString("add_status", mcp.Description("Status effect to apply")),
		mcp.WithString("remove_status", mcp.Description("Status effect to clear")),
	), s.handleModifyPlayer)
}

func (s *Server) handleRollDice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupID, err := request.RequireString("group_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	participantID, err := request.RequireString("participant_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	expression := request.GetString("expression", "d20")

	result, err := s.engine.Roll(ctx, groupID, participantID, expression)
	if err != nil {
		return toolError(err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s = %d", result.Expression, result.Total)
	if len(result.Rolls) > 0 {
		fmt.Fprintf(&b, " (rolls %v", result.Rolls)
		if result.Modifier != 0 {
			fmt.Fprintf(&b, ", modifier %+d", result.Modifier)
		}
		b.WriteString(")")
	}
	if result.CriticalSuccess {
		b.WriteString(" critical success!")
	}
	if result.CriticalFailure {
		b.WriteString(" critical failure!")
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handlePlayerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupID, err := request.RequireString("group_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	participantID, err := request.RequireString("participant_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p, err := s.engine.Player(ctx, groupID, participantID)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(formatPlayer(p)), nil
}

func (s *Server) handleWorldState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupID, err := request.RequireString("group_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, err := s.engine.Status(ctx, groupID)
	if err != nil {
		return toolError(err), nil
	}

	var b strings.Builder
	sess := report.Session
	fmt.Fprintf(&b, "World: %s (%s)\n", sess.WorldName, sess.Status)
	fmt.Fprintf(&b, "Scene: %s\n", sess.World.Describe())
	fmt.Fprintf(&b, "Tension: %d/10\n", sess.Story.Tension)
	if sess.Story.Summary != "" {
		fmt.Fprintf(&b, "Story so far: %s\n", sess.Story.Summary)
	}
	if len(report.Players) > 0 {
		b.WriteString("Party:")
		for _, p := range report.Players {
			fmt.Fprintf(&b, " %s (HP %d/%d)", p.CharacterName, p.HPCurrent, p.HPMax)
		}
		b.WriteString("\n")
	}
	if report.Pending > 0 {
		fmt.Fprintf(&b, "Actions waiting this turn: %d\n", report.Pending)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleSearchLore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupID, err := request.RequireString("group_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query := request.GetString("query", "")

	matches, err := s.engine.SearchLore(ctx, groupID, query)
	if err != nil {
		return toolError(err), nil
	}
	if len(matches) == 0 {
		return mcp.NewToolResultText("No lore matches."), nil
	}
	return mcp.NewToolResultText(strings.Join(matches, "\n")), nil
}

func (s *Server) handleModifyPlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	groupID, err := request.RequireString("group_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	participantID, err := request.RequireString("participant_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	hpDelta := request.GetInt("hp_delta", 0)
	mpDelta := request.GetInt("mp_delta", 0)
	addItem := strings.TrimSpace(request.GetString("add_item", ""))
	removeItem := strings.TrimSpace(request.GetString("remove_item", ""))
	quantity := request.GetInt("quantity", 1)
	addStatus := strings.TrimSpace(request.GetString("add_status", ""))
	removeStatus := strings.TrimSpace(request.GetString("remove_status", ""))

	var changes []string
	updated, err := s.engine.UpdatePlayer(ctx, groupID, participantID, func(p *session.Player, now time.Time) error {
		if hpDelta != 0 {
			before, after := p.ModifyHP(hpDelta, now)
			changes = append(changes, fmt.Sprintf("HP %d -> %d", before, after))
		}
		if mpDelta != 0 {
			before, after := p.ModifyMP(mpDelta, now)
			changes = append(changes, fmt.Sprintf("MP %d -> %d", before, after))
		}
		if addItem != "" {
			if err := p.AddItem(session.Item{Name: addItem, Quantity: quantity}, now); err != nil {
				return err
			}
			changes = append(changes, fmt.Sprintf("added %dx %s", quantity, addItem))
		}
		if removeItem != "" {
			if err := p.RemoveItem(removeItem, quantity, now); err != nil {
				return err
			}
			changes = append(changes, fmt.Sprintf("removed %dx %s", quantity, removeItem))
		}
		if addStatus != "" {
			p.AddStatusEffect(addStatus, now)
			changes = append(changes, fmt.Sprintf("now %s", addStatus))
		}
		if removeStatus != "" {
			p.RemoveStatusEffect(removeStatus, now)
			changes = append(changes, fmt.Sprintf("no longer %s", removeStatus))
		}
		return nil
	})
	if err != nil {
		return toolError(err), nil
	}
	if len(changes) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("%s is unchanged.", updated.CharacterName)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s: %s", updated.CharacterName, strings.Join(changes, ", "))), nil
}

func formatPlayer(p *session.Player) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (level %d)\n", p.CharacterName, p.Level)
	fmt.Fprintf(&b, "HP %d/%d, MP %d/%d\n", p.HPCurrent, p.HPMax, p.MPCurrent, p.MPMax)
	a := p.Attributes
	fmt.Fprintf(&b, "STR %d DEX %d CON %d INT %d WIS %d CHA %d\n",
		a.Strength, a.Dexterity, a.Constitution, a.Intelligence, a.Wisdom, a.Charisma)
	if p.FreePoints > 0 && !p.Locked {
		fmt.Fprintf(&b, "Unspent attribute points: %d\n", p.FreePoints)
	}
	if len(p.StatusEffects) > 0 {
		fmt.Fprintf(&b, "Status: %s\n", strings.Join(p.StatusEffects, ", "))
	}
	if len(p.Inventory) == 0 {
		b.WriteString("Inventory: empty")
		return b.String()
	}
	b.WriteString("Inventory:")
	for _, item := range p.Inventory {
		fmt.Fprintf(&b, " %dx %s", item.Quantity, item.Name)
	}
	return b.String()
}

// toolError maps an engine error to a tool result carrying the
// user-facing message for its code.
func toolError(err error) *mcp.CallToolResult {
	code := errs.CodeOf(err)
	if code == errs.CodeUnknown {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(code.Message())
}
